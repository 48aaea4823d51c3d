package domain

import "errors"

// 账本操作错误分类。除 ErrContention 外均为终态错误，调用方不应重试；
// ErrContention 表示锁等待超时，调用方应整体重试（重新取价、重新校验余额）。
var (
	// ErrInvalidAmount 金额非法（非正数）
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidQuantity 股数非法（非正整数）
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrUnknownSymbol 行情源无法识别该代码
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInsufficientFunds 可用资金不足
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares 持仓股数不足（含未持有）
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrContention 锁等待超时，可重试
	ErrContention = errors.New("operation contention, retry")
	// ErrUniqueViolation 唯一约束冲突，属程序缺陷而非用户输入问题
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
)
