package domain

import (
	"gorm.io/gorm"
)

// Holding 持仓实体
// (account_id, symbol) 唯一；股数恒为正，清仓时整行删除，绝不落库为 0
type Holding struct {
	gorm.Model
	// 账户 ID
	AccountID string `gorm:"column:account_id;type:varchar(32);uniqueIndex:idx_account_symbol;not null" json:"account_id"`
	// 股票代码
	Symbol string `gorm:"column:symbol;type:varchar(16);uniqueIndex:idx_account_symbol;not null" json:"symbol"`
	// 持有股数，> 0
	Shares int64 `gorm:"column:shares;not null" json:"shares"`
}

// TableName 指定表名
func (Holding) TableName() string {
	return "holdings"
}

// NewHolding 创建持仓，股数必须为正
func NewHolding(accountID, symbol string, shares int64) (*Holding, error) {
	if shares <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Holding{
		AccountID: accountID,
		Symbol:    symbol,
		Shares:    shares,
	}, nil
}

// Add 加仓
func (h *Holding) Add(shares int64) error {
	if shares <= 0 {
		return ErrInvalidQuantity
	}
	h.Shares += shares
	return nil
}

// Remove 减仓，超出持有量返回 ErrInsufficientShares 且不修改状态。
// 减到 0 后调用方必须删除该行
func (h *Holding) Remove(shares int64) error {
	if shares <= 0 {
		return ErrInvalidQuantity
	}
	if shares > h.Shares {
		return ErrInsufficientShares
	}
	h.Shares -= shares
	return nil
}
