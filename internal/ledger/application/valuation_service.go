package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/internal/quote"
	"github.com/wyfcoding/brokerage/pkg/logger"
	"github.com/wyfcoding/brokerage/pkg/metrics"
)

// 流水分页默认值与上限
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ValuationService 组合估值与流水查询，纯读、不做任何变更
type ValuationService struct {
	store   domain.LedgerStore
	quotes  quote.Source
	metrics *metrics.Metrics
}

// NewValuationService 创建估值服务，metrics 允许为 nil
func NewValuationService(store domain.LedgerStore, quotes quote.Source, m *metrics.Metrics) *ValuationService {
	return &ValuationService{store: store, quotes: quotes, metrics: m}
}

// Portfolio 组合估值快照。
// 现金与持仓取自同一存储快照，期间提交的交易不会混出一个从未存在过的净值；
// 每个代码只向行情源查询一次；报价缺失的持仓标记为不可定价并从
// holdings_total 中剔除，同时置 degraded，绝不静默按 0 计入
func (s *ValuationService) Portfolio(ctx context.Context, accountID string) (*PortfolioDTO, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ValuationDuration.Observe(time.Since(start).Seconds())
		}
	}()

	account, holdings, err := s.store.View(ctx, accountID)
	if err != nil {
		return nil, err
	}

	capture := quote.NewCapture(s.quotes)
	result := &PortfolioDTO{
		AccountID:     accountID,
		Holdings:      make([]*HoldingValuationDTO, 0, len(holdings)),
		Cash:          account.CashBalance,
		HoldingsTotal: decimal.Zero,
	}

	for _, h := range holdings {
		item := &HoldingValuationDTO{
			Symbol: h.Symbol,
			Shares: h.Shares,
		}

		q, err := capture.Lookup(ctx, h.Symbol)
		if err != nil {
			logger.Warn(ctx, "quote unavailable during valuation",
				"account_id", accountID, "symbol", h.Symbol, "error", err)
			item.PriceUnavailable = true
			result.Degraded = true
		} else {
			price := q.Price
			marketValue := price.Mul(decimal.NewFromInt(h.Shares)).Round(2)
			item.Name = q.Name
			item.Price = &price
			item.MarketValue = &marketValue
			result.HoldingsTotal = result.HoldingsTotal.Add(marketValue)
		}

		result.Holdings = append(result.Holdings, item)
	}

	result.NetWorth = result.Cash.Add(result.HoldingsTotal)
	return result, nil
}

// History 按时间倒序分页返回账户流水
func (s *ValuationService) History(ctx context.Context, accountID string, limit, offset int) (*HistoryDTO, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	// 账户不存在时显式报错，而不是返回空列表
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	txns, total, err := s.store.ListTransactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	result := &HistoryDTO{
		AccountID:    accountID,
		Transactions: make([]*TransactionDTO, 0, len(txns)),
		Total:        total,
	}
	for _, t := range txns {
		result.Transactions = append(result.Transactions, toTransactionDTO(t))
	}
	return result, nil
}

// Quote 透传行情查询
func (s *ValuationService) Quote(ctx context.Context, symbol string) (*quote.Quote, error) {
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if s.metrics != nil {
			s.metrics.QuoteLookupsTotal.WithLabelValues("miss").Inc()
		}
		if errors.Is(err, quote.ErrNotFound) {
			return nil, domain.ErrUnknownSymbol
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.QuoteLookupsTotal.WithLabelValues("hit").Inc()
	}
	return q, nil
}
