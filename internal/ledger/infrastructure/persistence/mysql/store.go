// Package mysql 基于 GORM 的账本存储实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
)

// MySQL 错误码
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

type ledgerStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewLedgerStore 创建 MySQL 账本存储
func NewLedgerStore(db *gorm.DB, lockTimeout time.Duration) domain.LedgerStore {
	return &ledgerStore{db: db, lockTimeout: lockTimeout}
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Account{}, &domain.Holding{}, &domain.Transaction{})
}

func (s *ledgerStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (s *ledgerStore) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *ledgerStore) ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	var holdings []*domain.Holding
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("symbol asc").
		Find(&holdings).Error
	return holdings, err
}

// View 在单个事务内读取账户与持仓，REPEATABLE READ 下两条查询
// 使用同一一致性快照，不会混入中途提交的交易
func (s *ledgerStore) View(ctx context.Context, accountID string) (*domain.Account, []*domain.Holding, error) {
	var account domain.Account
	var holdings []*domain.Holding

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ?", accountID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		return tx.Where("account_id = ?", accountID).
			Order("symbol asc").
			Find(&holdings).Error
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return &account, holdings, nil
}

func (s *ledgerStore) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, int64, error) {
	var txns []*domain.Transaction
	var total int64

	db := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("account_id = ?", accountID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("executed_at desc, id desc").Limit(limit).Offset(offset).Find(&txns).Error
	return txns, total, err
}

// Trade 在单个数据库事务内执行回调。账户与持仓行使用 SELECT ... FOR UPDATE，
// 锁等待上限为配置值，超时或死锁映射为 ErrContention
func (s *ledgerStore) Trade(ctx context.Context, accountID string, fn func(tx domain.TradeTx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			seconds := int(s.lockTimeout / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			if err := tx.Exec("SET innodb_lock_wait_timeout = ?", seconds).Error; err != nil {
				return fmt.Errorf("failed to set lock wait timeout: %w", err)
			}
		}
		return fn(&tradeTx{tx: tx, accountID: accountID})
	})
	return mapError(err)
}

type tradeTx struct {
	tx        *gorm.DB
	accountID string
}

func (t *tradeTx) Account() (*domain.Account, error) {
	var account domain.Account
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", t.accountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}

func (t *tradeTx) Holding(symbol string) (*domain.Holding, error) {
	var holding domain.Holding
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND symbol = ?", t.accountID, symbol).
		First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &holding, nil
}

func (t *tradeTx) SaveAccount(account *domain.Account) error {
	return mapError(t.tx.Save(account).Error)
}

func (t *tradeTx) SaveHolding(holding *domain.Holding) error {
	return mapError(t.tx.Save(holding).Error)
}

func (t *tradeTx) DeleteHolding(holding *domain.Holding) error {
	// 硬删除：软删除的残留行会占用 (account_id, symbol) 唯一索引，阻塞再次买入
	return mapError(t.tx.Unscoped().Delete(holding).Error)
}

func (t *tradeTx) AppendTransaction(txn *domain.Transaction) error {
	return mapError(t.tx.Create(txn).Error)
}

// mapError 把驱动错误映射到领域错误
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: %s", domain.ErrUniqueViolation, mysqlErr.Message)
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %s", domain.ErrContention, mysqlErr.Message)
		}
	}
	return err
}
