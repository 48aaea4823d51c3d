package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
)

func newAccount(t *testing.T, store *LedgerStore, accountID, cash string) {
	t.Helper()
	c, err := decimal.NewFromString(cash)
	if err != nil {
		t.Fatal(err)
	}
	account, err := domain.NewAccount(accountID, c)
	if err != nil {
		t.Fatalf("NewAccount() error = %v", err)
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
}

func TestTrade_LockTimeoutSurfacesContention(t *testing.T) {
	store := NewLedgerStore(50 * time.Millisecond)
	newAccount(t, store, "ACC-1", "100")
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error { return nil })
	close(release)
	wg.Wait()

	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("Trade under held lock error = %v, want ErrContention", err)
	}
}

func TestTrade_DifferentAccountsDoNotBlock(t *testing.T) {
	store := NewLedgerStore(100 * time.Millisecond)
	newAccount(t, store, "ACC-1", "100")
	newAccount(t, store, "ACC-2", "100")
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	// ACC-1 被占锁期间，ACC-2 的操作必须照常进行
	if err := store.Trade(ctx, "ACC-2", func(tx domain.TradeTx) error {
		account, err := tx.Account()
		if err != nil {
			return err
		}
		account.Credit(decimal.NewFromInt(1))
		return tx.SaveAccount(account)
	}); err != nil {
		t.Fatalf("Trade on other account error = %v", err)
	}
	close(release)
	wg.Wait()
}

func TestTrade_RollbackOnError(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "100")
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		account, err := tx.Account()
		if err != nil {
			return err
		}
		account.Credit(decimal.NewFromInt(999))
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		h, err := domain.NewHolding("ACC-1", "ACME", 5)
		if err != nil {
			return err
		}
		if err := tx.SaveHolding(h); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Trade() error = %v, want boom", err)
	}

	account, err := store.GetAccount(ctx, "ACC-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if !account.CashBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cash = %s, want 100 (rolled back)", account.CashBalance)
	}
	holdings, _ := store.ListHoldings(ctx, "ACC-1")
	if len(holdings) != 0 {
		t.Errorf("holdings = %+v, want empty (rolled back)", holdings)
	}
}

func TestView_ReturnsAccountAndHoldings(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "100")
	ctx := context.Background()

	if err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		h, err := domain.NewHolding("ACC-1", "ACME", 5)
		if err != nil {
			return err
		}
		return tx.SaveHolding(h)
	}); err != nil {
		t.Fatalf("Trade() error = %v", err)
	}

	account, holdings, err := store.View(ctx, "ACC-1")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if !account.CashBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cash = %s, want 100", account.CashBalance)
	}
	if len(holdings) != 1 || holdings[0].Symbol != "ACME" || holdings[0].Shares != 5 {
		t.Errorf("holdings = %+v, want [ACME x5]", holdings)
	}

	if _, _, err := store.View(ctx, "NOPE"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("View(NOPE) error = %v, want ErrAccountNotFound", err)
	}
}

func TestTrade_CancelBeforeCommitRollsBack(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "100")

	ctx, cancel := context.WithCancel(context.Background())
	err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		account, err := tx.Account()
		if err != nil {
			return err
		}
		account.Credit(decimal.NewFromInt(50))
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		// 提交之前调用方取消
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Trade() error = %v, want context.Canceled", err)
	}

	account, _ := store.GetAccount(context.Background(), "ACC-1")
	if !account.CashBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cash = %s, want 100 (no partial commit)", account.CashBalance)
	}
}

func TestAppendTransaction_DuplicateID(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "100")
	ctx := context.Background()

	txn := func() *domain.Transaction {
		return &domain.Transaction{
			TransactionID: "TXN-1",
			AccountID:     "ACC-1",
			Direction:     domain.DirectionDeposit,
			Amount:        decimal.NewFromInt(1),
			ExecutedAt:    time.Now().UTC(),
		}
	}

	if err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		return tx.AppendTransaction(txn())
	}); err != nil {
		t.Fatalf("first append error = %v", err)
	}

	err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		return tx.AppendTransaction(txn())
	})
	if !errors.Is(err, domain.ErrUniqueViolation) {
		t.Fatalf("duplicate append error = %v, want ErrUniqueViolation", err)
	}
}

func TestAppendTransaction_DuplicateIDAcrossAccounts(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "100")
	newAccount(t, store, "ACC-2", "100")
	ctx := context.Background()

	txn := func(accountID string) *domain.Transaction {
		return &domain.Transaction{
			TransactionID: "TXN-1",
			AccountID:     accountID,
			Direction:     domain.DirectionDeposit,
			Amount:        decimal.NewFromInt(1),
			ExecutedAt:    time.Now().UTC(),
		}
	}

	// ACC-1 先暂存 TXN-1；提交前 ACC-2 用同号流水抢先提交。
	// 账户锁互不相干，唯一性必须在写回时复查
	err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
		if err := tx.AppendTransaction(txn("ACC-1")); err != nil {
			return err
		}
		return store.Trade(ctx, "ACC-2", func(tx2 domain.TradeTx) error {
			account, err := tx2.Account()
			if err != nil {
				return err
			}
			account.Credit(decimal.NewFromInt(1))
			if err := tx2.SaveAccount(account); err != nil {
				return err
			}
			return tx2.AppendTransaction(txn("ACC-2"))
		})
	})
	if !errors.Is(err, domain.ErrUniqueViolation) {
		t.Fatalf("Trade() error = %v, want ErrUniqueViolation", err)
	}

	// 后提交方整体放弃，不留部分状态
	if _, total, _ := store.ListTransactions(ctx, "ACC-1", 10, 0); total != 0 {
		t.Errorf("ACC-1 journal rows = %d, want 0", total)
	}
	if _, total, _ := store.ListTransactions(ctx, "ACC-2", 10, 0); total != 1 {
		t.Errorf("ACC-2 journal rows = %d, want 1", total)
	}
}

func TestListTransactions_Pagination(t *testing.T) {
	store := NewLedgerStore(time.Second)
	newAccount(t, store, "ACC-1", "0")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := string(rune('A' + i))
		if err := store.Trade(ctx, "ACC-1", func(tx domain.TradeTx) error {
			return tx.AppendTransaction(&domain.Transaction{
				TransactionID: "TXN-" + id,
				AccountID:     "ACC-1",
				Direction:     domain.DirectionDeposit,
				Amount:        decimal.NewFromInt(int64(i)),
				ExecutedAt:    time.Now().UTC(),
			})
		}); err != nil {
			t.Fatalf("append #%d error = %v", i, err)
		}
	}

	page, total, err := store.ListTransactions(ctx, "ACC-1", 2, 1)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// 倒序 + offset 1：应为第 4、第 3 条
	if page[0].TransactionID != "TXN-D" || page[1].TransactionID != "TXN-C" {
		t.Errorf("page = [%s %s], want [TXN-D TXN-C]", page[0].TransactionID, page[1].TransactionID)
	}
}
