package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction 流水方向
type Direction string

const (
	// DirectionBuy 买入
	DirectionBuy Direction = "BUY"
	// DirectionSell 卖出
	DirectionSell Direction = "SELL"
	// DirectionDeposit 入金
	DirectionDeposit Direction = "DEPOSIT"
)

// Transaction 流水实体，仅追加、落库后不可变，是唯一的审计轨迹。
// 当前余额与持仓以 Account/Holding 为准，任何逻辑不得通过回放流水推导余额
type Transaction struct {
	gorm.Model
	// 流水 ID (业务主键)，snowflake 生成，全局唯一
	TransactionID string `gorm:"column:transaction_id;type:varchar(32);uniqueIndex;not null" json:"transaction_id"`
	// 账户 ID
	AccountID string `gorm:"column:account_id;type:varchar(32);index;not null" json:"account_id"`
	// 股票代码，入金流水为空
	Symbol string `gorm:"column:symbol;type:varchar(16)" json:"symbol,omitempty"`
	// 方向（BUY, SELL, DEPOSIT）
	Direction Direction `gorm:"column:direction;type:varchar(10);not null" json:"direction"`
	// 股数，入金为 0
	Shares int64 `gorm:"column:shares;not null" json:"shares"`
	// 金额：买入成本 / 卖出所得 / 入金金额，按成交价计
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	// 执行时间，同账户内单调不减
	ExecutedAt time.Time `gorm:"column:executed_at;index;not null" json:"executed_at"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}
