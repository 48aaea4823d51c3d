package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRoundCash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50.005", "50.01"},
		{"50.004", "50"},
		{"-0.005", "-0.01"},
		{"1000", "1000"},
		{"19.999", "20"},
	}
	for _, tt := range tests {
		if got := RoundCash(dec(tt.in)); !got.Equal(dec(tt.want)) {
			t.Errorf("RoundCash(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewAccount_RejectsNegativeStartingCash(t *testing.T) {
	if _, err := NewAccount("ACC-1", dec("-1")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("NewAccount(-1) error = %v, want ErrInvalidAmount", err)
	}
}

func TestAccount_DebitInsufficient(t *testing.T) {
	account, err := NewAccount("ACC-1", dec("100"))
	if err != nil {
		t.Fatalf("NewAccount() error = %v", err)
	}

	if err := account.Debit(dec("100.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Debit(100.01) error = %v, want ErrInsufficientFunds", err)
	}
	if !account.CashBalance.Equal(dec("100")) {
		t.Errorf("balance changed on failed debit: %s", account.CashBalance)
	}

	if err := account.Debit(dec("100")); err != nil {
		t.Fatalf("Debit(100) error = %v", err)
	}
	if !account.CashBalance.IsZero() {
		t.Errorf("balance = %s, want 0", account.CashBalance)
	}
}

func TestAccount_StampJournalMonotonic(t *testing.T) {
	account, _ := NewAccount("ACC-1", dec("0"))

	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	if got := account.StampJournal(later); !got.Equal(later) {
		t.Fatalf("first stamp = %v, want %v", got, later)
	}
	// 时钟回拨也不得让流水时间倒退
	if got := account.StampJournal(earlier); !got.Equal(later) {
		t.Errorf("stamp after clock regression = %v, want %v", got, later)
	}
}

func TestNewHolding_RejectsNonPositiveShares(t *testing.T) {
	for _, shares := range []int64{0, -5} {
		if _, err := NewHolding("ACC-1", "ACME", shares); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("NewHolding(shares=%d) error = %v, want ErrInvalidQuantity", shares, err)
		}
	}
}

func TestHolding_Remove(t *testing.T) {
	h, err := NewHolding("ACC-1", "ACME", 10)
	if err != nil {
		t.Fatalf("NewHolding() error = %v", err)
	}

	if err := h.Remove(11); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("Remove(11) error = %v, want ErrInsufficientShares", err)
	}
	if h.Shares != 10 {
		t.Errorf("shares changed on failed remove: %d", h.Shares)
	}

	if err := h.Remove(10); err != nil {
		t.Fatalf("Remove(10) error = %v", err)
	}
	if h.Shares != 0 {
		t.Errorf("shares = %d, want 0", h.Shares)
	}
}
