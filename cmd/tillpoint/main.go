package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/customers"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/orders"
	"github.com/tillpoint/tillpoint/internal/platform/cache"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/purchases"
	"github.com/tillpoint/tillpoint/internal/reports"
	"github.com/tillpoint/tillpoint/internal/returns"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewPostgresRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	resolver := catalog.NewResolver(catalogService)

	customerRepo := customers.NewPostgresRepository(pool)
	customerService := customers.NewService(customerRepo)

	salesRepo := sales.NewPostgresRepository(pool)
	purchaseRepo := purchases.NewPostgresRepository(pool)
	returnRepo := returns.NewPostgresRepository(pool)

	// Counters continue from existing documents after a cold start.
	sequencer := orders.NewRedisSequencer(redisClient, func(ctx context.Context, prefix string, year int) (string, error) {
		switch prefix {
		case "BILL":
			return purchaseRepo.LastDocNumber(ctx, prefix, year)
		case "RET", "CN":
			return returnRepo.LastDocNumber(ctx, prefix, year)
		default:
			return salesRepo.LastDocNumber(ctx, prefix, year)
		}
	})

	salesService := sales.NewService(logger, salesRepo, resolver, sequencer, customerService, sales.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	purchaseService := purchases.NewService(logger, purchaseRepo, resolver, sequencer)
	returnService := returns.NewService(logger, returnRepo, salesService, customerService, sequencer)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, inventory.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})

	reportRepo := reports.NewPostgresRepository(pool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reportRepo, inventoryService, reportCache)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		CustomerHandler:  customers.NewHandler(logger, customerService),
		SalesHandler:     sales.NewHandler(logger, salesService),
		PurchaseHandler:  purchases.NewHandler(logger, purchaseService),
		ReturnHandler:    returns.NewHandler(logger, returnService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		ReportHandler:    reports.NewHandler(logger, reportService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
