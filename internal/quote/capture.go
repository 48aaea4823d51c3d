package quote

import (
	"context"
	"sync"
)

// Capture 单次操作内的报价捕获。
// 同一代码只向底层行情源查询一次，之后复用首查结果，
// 保证一次交易内扣款与流水使用同一价格。
// 每次引擎调用都新建一个 Capture，绝不跨操作复用
type Capture struct {
	src Source

	mu      sync.Mutex
	quotes  map[string]*Quote
	lookups map[string]error
}

// NewCapture 包装行情源为单操作捕获
func NewCapture(src Source) *Capture {
	return &Capture{
		src:     src,
		quotes:  make(map[string]*Quote),
		lookups: make(map[string]error),
	}
}

// Lookup 查询报价；同一代码的后续调用返回首查结果（含首查错误）
func (c *Capture) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err, seen := c.lookups[symbol]; seen {
		return c.quotes[symbol], err
	}

	q, err := c.src.Lookup(ctx, symbol)
	c.quotes[symbol] = q
	c.lookups[symbol] = err
	return q, err
}
