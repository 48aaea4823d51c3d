package domain

import "context"

// LedgerStore 账本存储接口
// Trade 回调内的读写处于同一事务：读带行锁，提交/回滚一体
type LedgerStore interface {
	// CreateAccount 创建账户，业务主键重复时返回 ErrUniqueViolation
	CreateAccount(ctx context.Context, account *Account) error
	// GetAccount 获取账户，不存在时返回 ErrAccountNotFound
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	// ListHoldings 列出账户全部持仓
	ListHoldings(ctx context.Context, accountID string) ([]*Holding, error)
	// ListTransactions 按时间倒序分页列出账户流水
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, int64, error)
	// View 在同一快照内读取账户与其全部持仓（按代码排序）。
	// 两者来自同一一致性读，期间提交的交易要么整体可见要么整体不可见；
	// 账户不存在时返回 ErrAccountNotFound
	View(ctx context.Context, accountID string) (*Account, []*Holding, error)
	// Trade 以 accountID 为锁粒度执行一次原子读改写。
	// fn 返回错误时全部回滚；锁等待超出配置上限返回 ErrContention
	Trade(ctx context.Context, accountID string, fn func(tx TradeTx) error) error
}

// TradeTx 单次交易事务内可见的操作集合
type TradeTx interface {
	// Account 带锁读取本次交易的账户，不存在返回 ErrAccountNotFound
	Account() (*Account, error)
	// Holding 带锁读取指定代码的持仓，未持有返回 (nil, nil)
	Holding(symbol string) (*Holding, error)
	// SaveAccount 写回账户
	SaveAccount(account *Account) error
	// SaveHolding 创建或写回持仓，(account_id, symbol) 冲突返回 ErrUniqueViolation
	SaveHolding(holding *Holding) error
	// DeleteHolding 删除持仓（清仓时调用）
	DeleteHolding(holding *Holding) error
	// AppendTransaction 追加一条流水，transaction_id 冲突返回 ErrUniqueViolation
	AppendTransaction(txn *Transaction) error
}
