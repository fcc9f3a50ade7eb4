package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storedesk-backend/internal/backup"
	"github.com/angelmondragon/storedesk-backend/internal/cron"
	"github.com/angelmondragon/storedesk-backend/internal/reports"
	"github.com/angelmondragon/storedesk-backend/pkg/config"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/instance"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/metrics"
	"github.com/angelmondragon/storedesk-backend/pkg/migrate"
	"github.com/angelmondragon/storedesk-backend/pkg/redis"
	"github.com/angelmondragon/storedesk-backend/pkg/storage"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "failed to resolve timezone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	backupStore, err := storage.NewFileStore(context.Background(), cfg.Storage.BackupDir, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open backup storage", err)
		os.Exit(1)
	}
	reportStore, err := storage.NewFileStore(context.Background(), cfg.Storage.ReportDir, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open report storage", err)
		os.Exit(1)
	}

	opMetrics := metrics.NewOperationMetrics(prometheus.DefaultRegisterer)
	backupService, err := backup.NewService(backup.ServiceParams{
		Repo:    backup.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Store:   backupStore,
		Metrics: opMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create backup service", err)
		os.Exit(1)
	}
	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:    reports.NewRepository(dbClient.DB()),
		Store:   reportStore,
		Metrics: opMetrics,
		Logger:  logg,
		Options: reports.Options{Location: loc, HistoryLimit: cfg.Reports.HistoryLimit},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	backupJob, err := cron.NewBackupJob(backupService, cfg.Backup.Schedule, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create backup job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewRetentionJob(cron.RetentionParams{
		Backups:    backupService,
		Reports:    reportService,
		BackupDays: cfg.Backup.RetentionDays,
		ReportDays: cfg.Reports.RetentionDays,
		Schedule:   cfg.Backup.RetentionSchedule,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(backupJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Location: loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		service.RunOnce(ctx)
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
