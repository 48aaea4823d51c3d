package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/pkg/logger"
)

// HTTPClient 基于 REST 的行情客户端
// 约定：GET <base>/quote?symbol=X 返回 {"symbol","name","price"}，未知代码返回 404
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient 创建行情客户端
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
}

// Lookup 查询当前报价
func (c *HTTPClient) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNotFound
	}

	endpoint := fmt.Sprintf("%s/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		return nil, fmt.Errorf("quote service returned bad price %q: %w", body.Price, err)
	}
	if !price.IsPositive() {
		logger.Warn(ctx, "quote service returned non-positive price", "symbol", symbol, "price", body.Price)
		return nil, fmt.Errorf("quote service returned non-positive price for %s", symbol)
	}

	return &Quote{
		Symbol: symbol,
		Name:   body.Name,
		Price:  price,
	}, nil
}
