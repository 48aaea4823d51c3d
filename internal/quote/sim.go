package quote

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/pkg/cache"
	"github.com/wyfcoding/brokerage/pkg/logger"
)

// snapshotTTL 模拟行情落盘快照的保留时间
const snapshotTTL = 24 * time.Hour

// Simulator 模拟行情源，开发与测试环境使用。
// 价格按随机游走演化；配置了 Redis 时最新价会落盘，重启后从上次价格续走
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]decimal.Decimal
	names  map[string]string
	redis  *cache.RedisCache
}

// 默认模拟标的及基准价
var simUniverse = map[string]struct {
	name string
	base float64
}{
	"ACME": {"Acme Corp", 50.00},
	"AAPL": {"Apple Inc", 180.00},
	"GOOG": {"Alphabet Inc", 140.00},
	"MSFT": {"Microsoft Corp", 410.00},
	"TSLA": {"Tesla Inc", 250.00},
	"NFLX": {"Netflix Inc", 620.00},
}

// NewSimulator 创建模拟行情源，redis 可为 nil
func NewSimulator(redis *cache.RedisCache) *Simulator {
	s := &Simulator{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		prices: make(map[string]decimal.Decimal),
		names:  make(map[string]string),
		redis:  redis,
	}
	for symbol, info := range simUniverse {
		s.prices[symbol] = decimal.NewFromFloat(info.base)
		s.names[symbol] = info.name
	}
	s.restore()
	return s
}

// Lookup 查询当前报价，每次查询让价格走一小步
func (s *Simulator) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		return nil, ErrNotFound
	}

	// 随机游走 ±0.5%，下限 0.01
	drift := decimal.NewFromFloat((s.rng.Float64() - 0.5) / 100)
	price = price.Add(price.Mul(drift)).Round(2)
	if !price.IsPositive() {
		price = decimal.NewFromFloat(0.01)
	}
	s.prices[symbol] = price
	s.snapshot(ctx, symbol, price)

	return &Quote{
		Symbol: symbol,
		Name:   s.names[symbol],
		Price:  price,
	}, nil
}

// SetPrice 固定某标的价格，供测试与演示使用
func (s *Simulator) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	symbol = strings.ToUpper(symbol)
	s.prices[symbol] = price
	if _, ok := s.names[symbol]; !ok {
		s.names[symbol] = symbol
	}
}

func (s *Simulator) snapshot(ctx context.Context, symbol string, price decimal.Decimal) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, "quote:sim:"+symbol, price.String(), snapshotTTL); err != nil {
		logger.Warn(ctx, "failed to snapshot sim price", "symbol", symbol, "error", err)
	}
}

func (s *Simulator) restore() {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for symbol := range s.prices {
		val, err := s.redis.Get(ctx, "quote:sim:"+symbol)
		if err != nil || val == "" {
			continue
		}
		if price, err := decimal.NewFromString(val); err == nil && price.IsPositive() {
			s.prices[symbol] = price
		}
	}
}
