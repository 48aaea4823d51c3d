package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/internal/quote"
	"github.com/wyfcoding/brokerage/pkg/idgen"
	"github.com/wyfcoding/brokerage/pkg/logger"
	"github.com/wyfcoding/brokerage/pkg/metrics"
)

// TradingService 交易引擎应用服务
// 每个操作是一次账本事务：校验先于写入，失败不留任何部分状态
type TradingService struct {
	store        domain.LedgerStore
	quotes       quote.Source
	publisher    domain.EventPublisher
	metrics      *metrics.Metrics
	startingCash decimal.Decimal
	now          func() time.Time
}

// NewTradingService 创建交易引擎，publisher 与 metrics 允许为 nil
func NewTradingService(
	store domain.LedgerStore,
	quotes quote.Source,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	startingCash decimal.Decimal,
) *TradingService {
	return &TradingService{
		store:        store,
		quotes:       quotes,
		publisher:    publisher,
		metrics:      m,
		startingCash: startingCash,
		now:          time.Now,
	}
}

// CreateAccount 开户并发放初始资金。accountID 为空时自动生成
func (s *TradingService) CreateAccount(ctx context.Context, accountID string) (*AccountDTO, error) {
	if accountID == "" {
		accountID = idgen.GenString("ACC")
	}

	account, err := domain.NewAccount(accountID, s.startingCash)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	logger.Info(ctx, "account created", "account_id", accountID, "starting_cash", account.CashBalance)
	return toAccountDTO(account), nil
}

// Deposit 入金。金额取整到分后必须为正，否则返回 ErrInvalidAmount
func (s *TradingService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*TransactionDTO, error) {
	amount = domain.RoundCash(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var journal *domain.Transaction
	err := s.observe(ctx, domain.DirectionDeposit, func() error {
		return s.store.Trade(ctx, accountID, func(tx domain.TradeTx) error {
			account, err := tx.Account()
			if err != nil {
				return err
			}

			account.Credit(amount)

			journal = &domain.Transaction{
				TransactionID: idgen.GenString("TXN"),
				AccountID:     accountID,
				Direction:     domain.DirectionDeposit,
				Shares:        0,
				Amount:        amount,
				ExecutedAt:    account.StampJournal(s.now()),
			}

			if err := tx.SaveAccount(account); err != nil {
				return err
			}
			return tx.AppendTransaction(journal)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, journal)
	return toTransactionDTO(journal), nil
}

// Buy 买入。报价在操作开始时捕获一次，扣款与流水均使用该价格
func (s *TradingService) Buy(ctx context.Context, accountID, symbol string, shares int64) (*TransactionDTO, error) {
	if shares <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	q, err := s.lookup(ctx, quote.NewCapture(s.quotes), symbol)
	if err != nil {
		return nil, err
	}
	cost := domain.RoundCash(q.Price.Mul(decimal.NewFromInt(shares)))

	var journal *domain.Transaction
	err = s.observe(ctx, domain.DirectionBuy, func() error {
		return s.store.Trade(ctx, accountID, func(tx domain.TradeTx) error {
			account, err := tx.Account()
			if err != nil {
				return err
			}

			if err := account.Debit(cost); err != nil {
				return err
			}

			holding, err := tx.Holding(q.Symbol)
			if err != nil {
				return err
			}
			if holding == nil {
				holding, err = domain.NewHolding(accountID, q.Symbol, shares)
				if err != nil {
					return err
				}
			} else if err := holding.Add(shares); err != nil {
				return err
			}

			journal = &domain.Transaction{
				TransactionID: idgen.GenString("TXN"),
				AccountID:     accountID,
				Symbol:        q.Symbol,
				Direction:     domain.DirectionBuy,
				Shares:        shares,
				Amount:        cost,
				ExecutedAt:    account.StampJournal(s.now()),
			}

			if err := tx.SaveAccount(account); err != nil {
				return err
			}
			if err := tx.SaveHolding(holding); err != nil {
				return err
			}
			return tx.AppendTransaction(journal)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, journal)
	return toTransactionDTO(journal), nil
}

// Sell 卖出。先校验持仓充足，再捕获一次报价；报价不可用时拒绝执行而非用旧价成交。
// 清仓时删除持仓行，绝不留下 0 股记录
func (s *TradingService) Sell(ctx context.Context, accountID, symbol string, shares int64) (*TransactionDTO, error) {
	if shares <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	capture := quote.NewCapture(s.quotes)

	var journal *domain.Transaction
	err := s.observe(ctx, domain.DirectionSell, func() error {
		return s.store.Trade(ctx, accountID, func(tx domain.TradeTx) error {
			account, err := tx.Account()
			if err != nil {
				return err
			}

			holding, err := tx.Holding(symbol)
			if err != nil {
				return err
			}
			if holding == nil {
				return domain.ErrInsufficientShares
			}
			if err := holding.Remove(shares); err != nil {
				return err
			}

			q, err := s.lookup(ctx, capture, symbol)
			if err != nil {
				return err
			}
			proceeds := domain.RoundCash(q.Price.Mul(decimal.NewFromInt(shares)))

			account.Credit(proceeds)

			journal = &domain.Transaction{
				TransactionID: idgen.GenString("TXN"),
				AccountID:     accountID,
				Symbol:        q.Symbol,
				Direction:     domain.DirectionSell,
				Shares:        shares,
				Amount:        proceeds,
				ExecutedAt:    account.StampJournal(s.now()),
			}

			if err := tx.SaveAccount(account); err != nil {
				return err
			}
			if holding.Shares == 0 {
				if err := tx.DeleteHolding(holding); err != nil {
					return err
				}
			} else if err := tx.SaveHolding(holding); err != nil {
				return err
			}
			return tx.AppendTransaction(journal)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, journal)
	return toTransactionDTO(journal), nil
}

// lookup 经由单操作捕获查询报价，并把行情源错误映射到领域错误
func (s *TradingService) lookup(ctx context.Context, capture *quote.Capture, symbol string) (*quote.Quote, error) {
	q, err := capture.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			return nil, domain.ErrUnknownSymbol
		}
		return nil, err
	}
	return q, nil
}

// observe 包一层指标采集
func (s *TradingService) observe(ctx context.Context, direction domain.Direction, fn func() error) error {
	start := time.Now()
	err := fn()

	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
			if errors.Is(err, domain.ErrContention) {
				s.metrics.ContentionTotal.Inc()
				result = "contention"
			}
		}
		s.metrics.TradesTotal.WithLabelValues(string(direction), result).Inc()
		s.metrics.TradeDuration.WithLabelValues(string(direction)).Observe(time.Since(start).Seconds())
	}

	if err != nil && !terminalUserError(err) {
		logger.Error(ctx, "ledger operation failed", "direction", direction, "error", err)
	}
	return err
}

// publish 事务提交后发布集成事件
func (s *TradingService) publish(ctx context.Context, journal *domain.Transaction) {
	if s.publisher == nil || journal == nil {
		return
	}
	s.publisher.Publish(ctx, &domain.LedgerEvent{
		TransactionID: journal.TransactionID,
		AccountID:     journal.AccountID,
		Direction:     journal.Direction,
		Symbol:        journal.Symbol,
		Shares:        journal.Shares,
		Amount:        journal.Amount,
		ExecutedAt:    journal.ExecutedAt,
	})
}

// terminalUserError 用户输入导致的终态错误，不按系统错误记日志
func terminalUserError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrUnknownSymbol) ||
		errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInsufficientShares) ||
		errors.Is(err, domain.ErrAccountNotFound)
}
