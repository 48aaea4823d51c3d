// Package quote 行情源：对外部报价服务的只读访问
package quote

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound 行情源无法识别该代码
var ErrNotFound = errors.New("symbol not found")

// Quote 一次报价
type Quote struct {
	// 股票代码
	Symbol string `json:"symbol"`
	// 证券名称
	Name string `json:"name"`
	// 当前价格，恒为正
	Price decimal.Decimal `json:"price"`
}

// Source 行情源接口，纯查询、无副作用
type Source interface {
	// Lookup 查询当前报价，无法识别的代码返回 ErrNotFound
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}
