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

	appstock "github.com/shopmesh/shopmesh/internal/application/stock"
	"github.com/shopmesh/shopmesh/internal/contracts"
	domainproduct "github.com/shopmesh/shopmesh/internal/domain/product"
	"github.com/shopmesh/shopmesh/internal/infrastructure/bus"
	"github.com/shopmesh/shopmesh/internal/infrastructure/id"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"
	"github.com/shopmesh/shopmesh/internal/infrastructure/postgres"
	httppresentation "github.com/shopmesh/shopmesh/internal/presentation/http"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"
	"github.com/shopmesh/shopmesh/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const consumerGroup = "stock-service"

type config struct {
	Port         string
	Env          string
	DatabaseURL  string
	KafkaBrokers []string
}

func readConfig() config {
	return config{
		Port:         getenvDefault("PORT", "8082"),
		Env:          getenvDefault("ENV", "dev"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: splitBrokers(os.Getenv("KAFKA_BROKERS")),
	}
}

func main() {
	cfg := readConfig()

	logger := logging.MustNewLogger("stock-service", cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)

	var productRepo domainproduct.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("db_ping_failed", zap.Error(err))
		}
		productRepo = postgres.NewProductRepository(pool)
	} else {
		logger.Warn("no_database_configured_using_memory_store")
		productRepo = memory.NewProductRepository()
	}

	eventBus := bus.New(cfg.KafkaBrokers, logger)
	defer func() { _ = eventBus.Close() }()

	reconciler := appstock.NewReconciler(productRepo, logger, stockMetrics)
	eventBus.Subscribe(ctx, contracts.TopicStockUpdate, consumerGroup, reconciler.HandleStockUpdate)

	productService := appstock.NewService(productRepo, id.NewUUIDGenerator())

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	httppresentation.NewProductHandler(productService, logger).Register(router)

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
