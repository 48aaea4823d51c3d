package quote

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// countingSource 每次查询价格 +1，用于观察查询次数
type countingSource struct {
	mu      sync.Mutex
	lookups int
	price   decimal.Decimal
	fail    bool
}

func (s *countingSource) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.fail {
		return nil, ErrNotFound
	}
	s.price = s.price.Add(decimal.NewFromInt(1))
	return &Quote{Symbol: symbol, Name: symbol, Price: s.price}, nil
}

func TestCapture_SingleLookupPerSymbol(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(100)}
	capture := NewCapture(src)

	first, err := capture.Lookup(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	second, err := capture.Lookup(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("second Lookup() error = %v", err)
	}

	if src.lookups != 1 {
		t.Errorf("underlying lookups = %d, want 1", src.lookups)
	}
	if !first.Price.Equal(second.Price) {
		t.Errorf("prices differ within one capture: %s vs %s", first.Price, second.Price)
	}
}

func TestCapture_MemoizesError(t *testing.T) {
	src := &countingSource{fail: true}
	capture := NewCapture(src)

	if _, err := capture.Lookup(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
	}
	if _, err := capture.Lookup(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Lookup() error = %v, want ErrNotFound", err)
	}
	if src.lookups != 1 {
		t.Errorf("underlying lookups = %d, want 1", src.lookups)
	}
}

func TestCapture_FreshAcrossCaptures(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(100)}

	q1, _ := NewCapture(src).Lookup(context.Background(), "ACME")
	q2, _ := NewCapture(src).Lookup(context.Background(), "ACME")

	// 捕获不得跨操作复用：第二次操作必须重新询价
	if src.lookups != 2 {
		t.Errorf("underlying lookups = %d, want 2", src.lookups)
	}
	if q1.Price.Equal(q2.Price) {
		t.Errorf("expected fresh price per capture, both = %s", q1.Price)
	}
}
