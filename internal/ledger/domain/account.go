// 包 domain 经纪账本的领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account 资金账户实体
// 现金余额以分为最小单位（DECIMAL(18,2)），任何时刻不得为负
type Account struct {
	gorm.Model
	// 账户 ID (业务主键)，全局唯一
	AccountID string `gorm:"column:account_id;type:varchar(32);uniqueIndex;not null" json:"account_id"`
	// 现金余额，始终 >= 0
	CashBalance decimal.Decimal `gorm:"column:cash_balance;type:decimal(18,2);default:0;not null" json:"cash_balance"`
	// 最近一笔流水时间，用于保证同账户流水时间单调不减
	LastTradeAt time.Time `gorm:"column:last_trade_at" json:"-"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// NewAccount 创建账户，初始资金取整到分且不得为负
func NewAccount(accountID string, startingCash decimal.Decimal) (*Account, error) {
	cash := RoundCash(startingCash)
	if cash.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Account{
		AccountID:   accountID,
		CashBalance: cash,
	}, nil
}

// Credit 入账，amount 必须已取整到分
func (a *Account) Credit(amount decimal.Decimal) {
	a.CashBalance = a.CashBalance.Add(amount)
}

// Debit 出账，余额不足时返回 ErrInsufficientFunds 且不修改状态
func (a *Account) Debit(amount decimal.Decimal) error {
	if a.CashBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.CashBalance = a.CashBalance.Sub(amount)
	return nil
}

// StampJournal 为一笔新流水分配时间戳，保证同账户单调不减
func (a *Account) StampJournal(now time.Time) time.Time {
	ts := now.UTC()
	if ts.Before(a.LastTradeAt) {
		ts = a.LastTradeAt
	}
	a.LastTradeAt = ts
	return ts
}

// RoundCash 将金额取整到分。采用四舍五入（远离零），50.005 入账为 50.01
func RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
