package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fabrica-erp/fabrica-erp/internal/app"
	"github.com/fabrica-erp/fabrica-erp/internal/auth"
	"github.com/fabrica-erp/fabrica-erp/internal/materials"
	"github.com/fabrica-erp/fabrica-erp/internal/observability"
	"github.com/fabrica-erp/fabrica-erp/internal/orders"
	"github.com/fabrica-erp/fabrica-erp/internal/platform/db"
	"github.com/fabrica-erp/fabrica-erp/internal/productions"
	"github.com/fabrica-erp/fabrica-erp/internal/products"
	"github.com/fabrica-erp/fabrica-erp/internal/sales"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
	"github.com/fabrica-erp/fabrica-erp/internal/vendors"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fabrica_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	materialsRepo := materials.NewRepository(pool)
	materialsService := materials.NewService(materialsRepo)
	materialsHandler := materials.NewHandler(logger, materialsService, idempotencyStore)

	vendorsRepo := vendors.NewRepository(pool)
	vendorsService := vendors.NewService(vendorsRepo, materialsService)
	vendorsHandler := vendors.NewHandler(logger, vendorsService, idempotencyStore)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, materialsService)
	productsHandler := products.NewHandler(logger, productsService, idempotencyStore)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, vendorsService, materialsService, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService, idempotencyStore)

	productionsRepo := productions.NewRepository(pool)
	productionsService := productions.NewService(productionsRepo, productsService, auditLogger)
	productionsHandler := productions.NewHandler(logger, productionsService, idempotencyStore)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, productsService, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService, idempotencyStore)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		MaterialsHandler:   materialsHandler,
		VendorsHandler:     vendorsHandler,
		ProductsHandler:    productsHandler,
		OrdersHandler:      ordersHandler,
		ProductionsHandler: productionsHandler,
		SalesHandler:       salesHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
