package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storedesk-backend/api"
	"github.com/angelmondragon/storedesk-backend/api/controllers"
	"github.com/angelmondragon/storedesk-backend/api/routes"
	"github.com/angelmondragon/storedesk-backend/internal/auth"
	"github.com/angelmondragon/storedesk-backend/internal/backup"
	"github.com/angelmondragon/storedesk-backend/internal/calendar"
	"github.com/angelmondragon/storedesk-backend/internal/categories"
	"github.com/angelmondragon/storedesk-backend/internal/customers"
	"github.com/angelmondragon/storedesk-backend/internal/ledger"
	product "github.com/angelmondragon/storedesk-backend/internal/products"
	"github.com/angelmondragon/storedesk-backend/internal/reports"
	"github.com/angelmondragon/storedesk-backend/internal/sales"
	"github.com/angelmondragon/storedesk-backend/internal/users"
	"github.com/angelmondragon/storedesk-backend/pkg/auth/session"
	"github.com/angelmondragon/storedesk-backend/pkg/config"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/metrics"
	"github.com/angelmondragon/storedesk-backend/pkg/migrate"
	"github.com/angelmondragon/storedesk-backend/pkg/redis"
	"github.com/angelmondragon/storedesk-backend/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	requireResource(logg, "timezone", err)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	backupStore, err := storage.NewFileStore(context.Background(), cfg.Storage.BackupDir, logg)
	requireResource(logg, "backup storage", err)
	reportStore, err := storage.NewFileStore(context.Background(), cfg.Storage.ReportDir, logg)
	requireResource(logg, "report storage", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opMetrics := metrics.NewOperationMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(logg, "session manager", err)

	gormDB := dbClient.DB()

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	requireResource(logg, "ledger service", err)

	userRepo := users.NewRepository(gormDB)
	userService, err := users.NewService(userRepo, dbClient, cfg.Password)
	requireResource(logg, "user service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Users:          userService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(logg, "auth service", err)

	categoryService, err := categories.NewService(categories.NewRepository(gormDB), dbClient)
	requireResource(logg, "category service", err)

	customerService, err := customers.NewService(customers.NewRepository(gormDB), dbClient)
	requireResource(logg, "customer service", err)

	deletePolicy, err := enums.ParseProductDeletePolicy(cfg.Catalog.ProductDeletePolicy)
	requireResource(logg, "product delete policy", err)

	productRepo := product.NewRepository(gormDB)
	productService, err := product.NewService(productRepo, dbClient, ledgerService, product.Options{
		DeletePolicy:      deletePolicy,
		LowStockThreshold: cfg.Catalog.LowStockThreshold,
	})
	requireResource(logg, "product service", err)

	saleService, err := sales.NewService(sales.NewRepository(gormDB), productRepo, dbClient, ledgerService, sales.Options{
		RestoreStockOnDelete: cfg.Sales.RestoreStockOnDelete,
	})
	requireResource(logg, "sale service", err)

	calendarService, err := calendar.NewService(calendar.NewRepository(gormDB))
	requireResource(logg, "calendar service", err)

	backupService, err := backup.NewService(backup.ServiceParams{
		Repo:    backup.NewRepository(gormDB),
		DB:      dbClient,
		Store:   backupStore,
		Engine:  backup.NewEngine(backup.DefaultManifest(), logg),
		Metrics: opMetrics,
		Logger:  logg,
	})
	requireResource(logg, "backup service", err)

	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:    reports.NewRepository(gormDB),
		Store:   reportStore,
		Metrics: opMetrics,
		Logger:  logg,
		Options: reports.Options{
			Location:     loc,
			HistoryLimit: cfg.Reports.HistoryLimit,
		},
	})
	requireResource(logg, "report service", err)

	router := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Location: loc,
		Sessions: sessionManager,
		Limiter:  redisClient,
		Replays:  redisClient,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"backups":  backupStore,
			"reports":  reportStore,
		},
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),

		Auth:       authService,
		Users:      userService,
		Categories: categoryService,
		Customers:  customerService,
		Products:   productService,
		Sales:      saleService,
		Calendar:   calendarService,
		Backups:    backupService,
		Reports:    reportService,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"port": cfg.App.Port,
	})

	logg.Info(ctx, "starting api")
	if err := api.Serve(ctx, api.NewServer(":"+cfg.App.Port, router)); err != nil {
		logg.Error(ctx, "server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api shut down gracefully")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to bootstrap "+resource, err)
	os.Exit(1)
}
