package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/brokerage/internal/ledger/application"
	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/internal/ledger/infrastructure/messaging"
	"github.com/wyfcoding/brokerage/internal/ledger/infrastructure/persistence/memory"
	mysqlstore "github.com/wyfcoding/brokerage/internal/ledger/infrastructure/persistence/mysql"
	ledgerhttp "github.com/wyfcoding/brokerage/internal/ledger/interfaces/http"
	"github.com/wyfcoding/brokerage/internal/ledger/interfaces/ws"
	"github.com/wyfcoding/brokerage/internal/quote"
	"github.com/wyfcoding/brokerage/pkg/cache"
	"github.com/wyfcoding/brokerage/pkg/config"
	"github.com/wyfcoding/brokerage/pkg/db"
	"github.com/wyfcoding/brokerage/pkg/idgen"
	"github.com/wyfcoding/brokerage/pkg/logger"
	"github.com/wyfcoding/brokerage/pkg/metrics"
	"github.com/wyfcoding/brokerage/pkg/middleware"
	"github.com/wyfcoding/brokerage/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := idgen.Init(0); err != nil {
		logger.Fatal(ctx, "failed to init id generator", "error", err)
	}

	lockTimeout := time.Duration(cfg.Engine.LockTimeout) * time.Millisecond

	// 账本存储
	var store domain.LedgerStore
	switch cfg.Database.Driver {
	case "mysql":
		gdb, err := db.Open(db.Config{
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to open database", "error", err)
		}
		defer db.Close(gdb)

		if err := mysqlstore.Migrate(gdb); err != nil {
			logger.Fatal(ctx, "failed to migrate database", "error", err)
		}
		store = mysqlstore.NewLedgerStore(gdb, lockTimeout)
	case "memory":
		store = memory.NewLedgerStore(lockTimeout)
	default:
		logger.Fatal(ctx, "unsupported database driver", "driver", cfg.Database.Driver)
	}

	// 行情源
	var quotes quote.Source
	switch cfg.Quotes.Source {
	case "http":
		quotes = quote.NewHTTPClient(cfg.Quotes.BaseURL, cfg.Quotes.APIKey,
			time.Duration(cfg.Quotes.Timeout)*time.Second)
	case "sim":
		var redisCache *cache.RedisCache
		if rc, err := cache.New(cache.Config{
			Host:        cfg.Redis.Host,
			Port:        cfg.Redis.Port,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxPoolSize: cfg.Redis.MaxPoolSize,
		}); err != nil {
			logger.Warn(ctx, "redis unavailable, sim quotes start from base prices", "error", err)
		} else {
			redisCache = rc
			defer rc.Close()
		}
		quotes = quote.NewSimulator(redisCache)
	default:
		logger.Fatal(ctx, "unsupported quote source", "source", cfg.Quotes.Source)
	}

	// 事件发布：WebSocket 推送 + 可选 Kafka
	hub := ws.NewHub()
	defer hub.Close()

	publishers := messaging.Fanout{hub}
	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		defer producer.Close()
		publishers = append(publishers, messaging.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}

	m := metrics.New(cfg.ServiceName)

	startingCash, err := decimal.NewFromString(cfg.Engine.StartingCash)
	if err != nil {
		logger.Fatal(ctx, "invalid engine.starting_cash", "value", cfg.Engine.StartingCash, "error", err)
	}

	trading := application.NewTradingService(store, quotes, publishers, m, startingCash)
	valuation := application.NewValuationService(store, quotes, m)

	// HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Recovery(), middleware.Metrics(m))

	ledgerhttp.NewLedgerHandler(trading, valuation).RegisterRoutes(router)
	router.GET("/ws/trades", hub.Handler())
	if cfg.Metrics.Enabled {
		router.GET("/metrics", m.Handler())
	}
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
}
