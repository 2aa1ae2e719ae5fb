package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	apporder "github.com/shopmesh/shopmesh/internal/application/order"
	domainorder "github.com/shopmesh/shopmesh/internal/domain/order"
	domainoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"
	"github.com/shopmesh/shopmesh/internal/infrastructure/bus"
	"github.com/shopmesh/shopmesh/internal/infrastructure/id"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"
	outboxdispatch "github.com/shopmesh/shopmesh/internal/infrastructure/outbox"
	"github.com/shopmesh/shopmesh/internal/infrastructure/postgres"
	"github.com/shopmesh/shopmesh/internal/infrastructure/stockclient"
	httppresentation "github.com/shopmesh/shopmesh/internal/presentation/http"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"
	"github.com/shopmesh/shopmesh/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type config struct {
	Port            string
	Env             string
	DatabaseURL     string
	KafkaBrokers    []string
	StockServiceURL string
	StockTimeout    time.Duration
}

func readConfig() config {
	timeoutMS := 3000
	if raw := os.Getenv("STOCK_TIMEOUT_MS"); raw != "" {
		if v, err := time.ParseDuration(raw + "ms"); err == nil {
			timeoutMS = int(v.Milliseconds())
		}
	}
	return config{
		Port:            getenvDefault("PORT", "8081"),
		Env:             getenvDefault("ENV", "dev"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		KafkaBrokers:    splitBrokers(os.Getenv("KAFKA_BROKERS")),
		StockServiceURL: getenvDefault("STOCK_SERVICE_URL", "http://localhost:8082"),
		StockTimeout:    time.Duration(timeoutMS) * time.Millisecond,
	}
}

func main() {
	cfg := readConfig()

	logger := logging.MustNewLogger("sales-service", cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	salesMetrics := metrics.NewSalesMetrics(prometheus.DefaultRegisterer)

	var (
		orderRepo   domainorder.Repository
		outboxStore domainoutbox.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("db_ping_failed", zap.Error(err))
		}
		orderRepo = postgres.NewOrderRepository(pool)
		outboxStore = postgres.NewOutboxStore(pool)
	} else {
		logger.Warn("no_database_configured_using_memory_store")
		store := memory.NewOutboxStore()
		orderRepo = memory.NewOrderRepository(store)
		outboxStore = store
	}

	eventBus := bus.New(cfg.KafkaBrokers, logger)
	defer func() { _ = eventBus.Close() }()

	dispatcher := outboxdispatch.NewDispatcher(outboxStore, eventBus, logger, salesMetrics)
	go dispatcher.Run(ctx)

	inventory := stockclient.New(cfg.StockServiceURL, cfg.StockTimeout)
	orderService := apporder.NewService(orderRepo, inventory, id.NewUUIDGenerator(), logger, salesMetrics)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	httppresentation.NewOrderHandler(orderService, logger).Register(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitBrokers(csv string) []string {
	var out []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
