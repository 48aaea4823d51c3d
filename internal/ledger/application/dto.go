package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
)

// AccountDTO 账户视图
type AccountDTO struct {
	AccountID   string          `json:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionDTO 流水视图
type TransactionDTO struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Symbol        string          `json:"symbol,omitempty"`
	Direction     string          `json:"direction"`
	Shares        int64           `json:"shares"`
	Amount        decimal.Decimal `json:"amount"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

// HoldingValuationDTO 单个持仓的估值视图
type HoldingValuationDTO struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Shares int64  `json:"shares"`
	// 当前价；报价不可用时为空
	Price *decimal.Decimal `json:"price,omitempty"`
	// 市值 = shares * price；报价不可用时为空
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`
	// 报价不可用标记，true 时该持仓不计入 holdings_total
	PriceUnavailable bool `json:"price_unavailable,omitempty"`
}

// PortfolioDTO 组合估值视图
type PortfolioDTO struct {
	AccountID string                 `json:"account_id"`
	Holdings  []*HoldingValuationDTO `json:"holdings"`
	Cash      decimal.Decimal        `json:"cash"`
	// 可定价持仓市值之和
	HoldingsTotal decimal.Decimal `json:"holdings_total"`
	// 净值 = cash + holdings_total
	NetWorth decimal.Decimal `json:"net_worth"`
	// 任一持仓报价缺失时为 true，提示调用方渲染降级视图
	Degraded bool `json:"degraded,omitempty"`
}

// HistoryDTO 流水分页视图
type HistoryDTO struct {
	AccountID    string            `json:"account_id"`
	Transactions []*TransactionDTO `json:"transactions"`
	Total        int64             `json:"total"`
}

func toAccountDTO(a *domain.Account) *AccountDTO {
	return &AccountDTO{
		AccountID:   a.AccountID,
		CashBalance: a.CashBalance,
		CreatedAt:   a.CreatedAt,
	}
}

func toTransactionDTO(t *domain.Transaction) *TransactionDTO {
	return &TransactionDTO{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		Symbol:        t.Symbol,
		Direction:     string(t.Direction),
		Shares:        t.Shares,
		Amount:        t.Amount,
		ExecutedAt:    t.ExecutedAt,
	}
}
