// 包 memory 内存账本存储，供开发环境与测试使用。
// 语义对齐 mysql 实现：账户粒度互斥、带超时的锁获取、提交/回滚一体
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
)

type accountState struct {
	lock     chan struct{} // 容量 1，持有即占锁
	account  *domain.Account
	holdings map[string]*domain.Holding
	journal  []*domain.Transaction
}

// LedgerStore 内存账本存储
type LedgerStore struct {
	mu          sync.RWMutex
	accounts    map[string]*accountState
	txnIDs      map[string]struct{}
	lockTimeout time.Duration
	nextRowID   uint
}

// NewLedgerStore 创建内存账本存储
func NewLedgerStore(lockTimeout time.Duration) *LedgerStore {
	return &LedgerStore{
		accounts:    make(map[string]*accountState),
		txnIDs:      make(map[string]struct{}),
		lockTimeout: lockTimeout,
	}
}

// CreateAccount 创建账户
func (s *LedgerStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account %s", domain.ErrUniqueViolation, account.AccountID)
	}

	s.nextRowID++
	account.ID = s.nextRowID
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt

	s.accounts[account.AccountID] = &accountState{
		lock:     make(chan struct{}, 1),
		account:  copyAccount(account),
		holdings: make(map[string]*domain.Holding),
	}
	return nil
}

// GetAccount 获取账户快照
func (s *LedgerStore) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(state.account), nil
}

// ListHoldings 列出账户全部持仓，按代码排序
func (s *LedgerStore) ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}

	holdings := make([]*domain.Holding, 0, len(state.holdings))
	for _, h := range state.holdings {
		holdings = append(holdings, copyHolding(h))
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

// View 在同一把读锁内返回账户与全部持仓。
// 提交持有写锁，所以两者必然来自同一次提交之后的状态
func (s *LedgerStore) View(ctx context.Context, accountID string) (*domain.Account, []*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.accounts[accountID]
	if !ok {
		return nil, nil, domain.ErrAccountNotFound
	}

	holdings := make([]*domain.Holding, 0, len(state.holdings))
	for _, h := range state.holdings {
		holdings = append(holdings, copyHolding(h))
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return copyAccount(state.account), holdings, nil
}

// ListTransactions 按时间倒序分页列出流水
func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.accounts[accountID]
	if !ok {
		return nil, 0, nil
	}

	total := int64(len(state.journal))
	if offset >= len(state.journal) {
		return nil, total, nil
	}

	// journal 按追加序保存，倒序即最新在前
	result := make([]*domain.Transaction, 0, limit)
	for i := len(state.journal) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, copyTransaction(state.journal[i]))
	}
	return result, total, nil
}

// Trade 在账户锁内执行回调：回调操作的是深拷贝暂存区，
// 成功才写回，失败或取消则整体丢弃
func (s *LedgerStore) Trade(ctx context.Context, accountID string, fn func(tx domain.TradeTx) error) error {
	s.mu.RLock()
	state, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrAccountNotFound
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case state.lock <- struct{}{}:
		defer func() { <-state.lock }()
	case <-timer.C:
		return fmt.Errorf("%w: account %s lock wait exceeded %s", domain.ErrContention, accountID, s.lockTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrContention, ctx.Err())
	}

	tx := &tradeTx{store: s, state: state, staged: newStaging()}
	if err := fn(tx); err != nil {
		return err
	}

	// 提交前的取消要求完整回滚
	if err := ctx.Err(); err != nil {
		return err
	}

	return tx.commit()
}

// staging 事务暂存区：深拷贝读、延迟写
type staging struct {
	account        *domain.Account
	holdings       map[string]*domain.Holding
	deletedSymbols map[string]struct{}
	appended       []*domain.Transaction
}

func newStaging() *staging {
	return &staging{
		holdings:       make(map[string]*domain.Holding),
		deletedSymbols: make(map[string]struct{}),
	}
}

type tradeTx struct {
	store  *LedgerStore
	state  *accountState
	staged *staging
}

func (t *tradeTx) Account() (*domain.Account, error) {
	if t.staged.account == nil {
		t.staged.account = copyAccount(t.state.account)
	}
	return t.staged.account, nil
}

func (t *tradeTx) Holding(symbol string) (*domain.Holding, error) {
	if h, ok := t.staged.holdings[symbol]; ok {
		return h, nil
	}
	if _, deleted := t.staged.deletedSymbols[symbol]; deleted {
		return nil, nil
	}
	h, ok := t.state.holdings[symbol]
	if !ok {
		return nil, nil
	}
	staged := copyHolding(h)
	t.staged.holdings[symbol] = staged
	return staged, nil
}

func (t *tradeTx) SaveAccount(account *domain.Account) error {
	t.staged.account = account
	return nil
}

func (t *tradeTx) SaveHolding(holding *domain.Holding) error {
	delete(t.staged.deletedSymbols, holding.Symbol)
	t.staged.holdings[holding.Symbol] = holding
	return nil
}

func (t *tradeTx) DeleteHolding(holding *domain.Holding) error {
	delete(t.staged.holdings, holding.Symbol)
	t.staged.deletedSymbols[holding.Symbol] = struct{}{}
	return nil
}

func (t *tradeTx) AppendTransaction(txn *domain.Transaction) error {
	t.store.mu.RLock()
	_, dup := t.store.txnIDs[txn.TransactionID]
	t.store.mu.RUnlock()
	if dup {
		return fmt.Errorf("%w: transaction %s", domain.ErrUniqueViolation, txn.TransactionID)
	}
	for _, staged := range t.staged.appended {
		if staged.TransactionID == txn.TransactionID {
			return fmt.Errorf("%w: transaction %s", domain.ErrUniqueViolation, txn.TransactionID)
		}
	}
	t.staged.appended = append(t.staged.appended, txn)
	return nil
}

func (t *tradeTx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	// 暂存时的唯一性检查不持有写锁，另一账户的事务可能已提交同号流水；
	// 写回前在写锁内复查，冲突则整体放弃
	for _, txn := range t.staged.appended {
		if _, dup := t.store.txnIDs[txn.TransactionID]; dup {
			return fmt.Errorf("%w: transaction %s", domain.ErrUniqueViolation, txn.TransactionID)
		}
	}

	now := time.Now().UTC()

	if t.staged.account != nil {
		t.staged.account.UpdatedAt = now
		t.state.account = copyAccount(t.staged.account)
	}
	for symbol := range t.staged.deletedSymbols {
		delete(t.state.holdings, symbol)
	}
	for symbol, h := range t.staged.holdings {
		if h.ID == 0 {
			t.store.nextRowID++
			h.ID = t.store.nextRowID
			h.CreatedAt = now
		}
		h.UpdatedAt = now
		t.state.holdings[symbol] = copyHolding(h)
	}
	for _, txn := range t.staged.appended {
		t.store.nextRowID++
		txn.ID = t.store.nextRowID
		txn.CreatedAt = now
		txn.UpdatedAt = now
		t.store.txnIDs[txn.TransactionID] = struct{}{}
		t.state.journal = append(t.state.journal, copyTransaction(txn))
	}
	return nil
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyHolding(h *domain.Holding) *domain.Holding {
	c := *h
	return &c
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}
