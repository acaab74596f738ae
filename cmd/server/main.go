package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	settlementapp "github.com/openpos/settlement/internal/application/settlement"
	stockapp "github.com/openpos/settlement/internal/application/stock"
	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/infrastructure/cache"
	"github.com/openpos/settlement/internal/infrastructure/config"
	"github.com/openpos/settlement/internal/infrastructure/event"
	"github.com/openpos/settlement/internal/infrastructure/logger"
	"github.com/openpos/settlement/internal/infrastructure/persistence"
	"github.com/openpos/settlement/internal/interfaces/http/handler"
	"github.com/openpos/settlement/internal/interfaces/http/middleware"
	"github.com/openpos/settlement/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Event bus and low-stock alerting
	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	idemStore, err := newIdempotencyStore(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	lowStockHandler := stockapp.NewLowStockHandler(log).
		WithIdempotencyStore(idemStore, shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: true,
		})
	bus.Subscribe(lowStockHandler)

	// Application services
	scope := persistence.NewGormTransactionScope(db.DB)
	settlementService := settlementapp.NewService(scope, bus, log).
		WithRetryAttempts(cfg.Stock.RetryAttempts)
	stockService := stockapp.NewService(
		persistence.NewGormStockBalanceRepository(db.DB), bus, log).
		WithRetryAttempts(cfg.Stock.RetryAttempts)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)

	handler.NewHealthHandler(db).RegisterRoutes(engine)
	router.New(engine).
		Register(handler.NewSettlementHandler(settlementService)).
		Register(handler.NewStockHandler(stockService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newIdempotencyStore picks Redis when enabled, falling back to the
// in-process store
func newIdempotencyStore(cfg *config.Config) (shared.IdempotencyStore, error) {
	if cfg.Redis.Enabled {
		return cache.NewRedisIdempotencyStore(cfg.Redis)
	}
	return cache.NewInMemoryIdempotencyStore(), nil
}
