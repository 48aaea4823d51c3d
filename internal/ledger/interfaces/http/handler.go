// 包 http 账本服务的 HTTP 处理器
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/application"
	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/pkg/logger"
)

// LedgerHandler HTTP 处理器
type LedgerHandler struct {
	trading   *application.TradingService
	valuation *application.ValuationService
}

// NewLedgerHandler 创建 HTTP 处理器
func NewLedgerHandler(trading *application.TradingService, valuation *application.ValuationService) *LedgerHandler {
	return &LedgerHandler{
		trading:   trading,
		valuation: valuation,
	}
}

// RegisterRoutes 注册路由
func (h *LedgerHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/accounts", h.CreateAccount)
		api.GET("/accounts/:id", h.GetAccount)
		api.POST("/accounts/:id/deposit", h.Deposit)
		api.POST("/accounts/:id/buy", h.Buy)
		api.POST("/accounts/:id/sell", h.Sell)
		api.GET("/accounts/:id/portfolio", h.Portfolio)
		api.GET("/accounts/:id/history", h.History)
		api.GET("/quotes/:symbol", h.Quote)
	}
}

// CreateAccountRequest 开户请求
type CreateAccountRequest struct {
	AccountID string `json:"account_id"`
}

// CreateAccount 开户
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	account, err := h.trading.CreateAccount(c.Request.Context(), req.AccountID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetAccount 查询账户
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	portfolio, err := h.valuation.Portfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id":   portfolio.AccountID,
		"cash_balance": portfolio.Cash,
	})
}

// DepositRequest 入金请求
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// Deposit 入金
func (h *LedgerHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}

	txn, err := h.trading.Deposit(c.Request.Context(), c.Param("id"), amount)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

// TradeRequest 买卖请求
type TradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares" binding:"required"`
}

// Buy 买入
func (h *LedgerHandler) Buy(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.trading.Buy(c.Request.Context(), c.Param("id"), req.Symbol, req.Shares)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

// Sell 卖出
func (h *LedgerHandler) Sell(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.trading.Sell(c.Request.Context(), c.Param("id"), req.Symbol, req.Shares)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

// Portfolio 组合估值
func (h *LedgerHandler) Portfolio(c *gin.Context) {
	portfolio, err := h.valuation.Portfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// History 流水查询
func (h *LedgerHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	history, err := h.valuation.History(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Quote 行情查询
func (h *LedgerHandler) Quote(c *gin.Context) {
	q, err := h.valuation.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// renderError 把领域错误映射到 HTTP 状态码
func (h *LedgerHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownSymbol), errors.Is(err, domain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientShares):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUniqueViolation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrContention):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
