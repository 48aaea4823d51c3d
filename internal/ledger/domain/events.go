package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEvent 账本集成事件，在事务提交后发布
type LedgerEvent struct {
	// 流水 ID
	TransactionID string `json:"transaction_id"`
	// 账户 ID
	AccountID string `json:"account_id"`
	// 方向
	Direction Direction `json:"direction"`
	// 股票代码，入金为空
	Symbol string `json:"symbol,omitempty"`
	// 股数
	Shares int64 `json:"shares"`
	// 金额
	Amount decimal.Decimal `json:"amount"`
	// 执行时间
	ExecutedAt time.Time `json:"executed_at"`
}

// EventPublisher 账本事件发布接口
// 发布失败由实现方记录日志，不得影响已提交的账本状态
type EventPublisher interface {
	Publish(ctx context.Context, event *LedgerEvent)
}
