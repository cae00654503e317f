package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fintrack-labs/loandocs/internal/async"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/export"
	"github.com/fintrack-labs/loandocs/internal/ocr"
	"github.com/fintrack-labs/loandocs/internal/pipeline"
	"github.com/fintrack-labs/loandocs/internal/repository"
	"github.com/fintrack-labs/loandocs/internal/server"
	"github.com/fintrack-labs/loandocs/internal/uploads"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		logger.Error("migrate schema", "error", err)
		os.Exit(1)
	}

	registry, err := uploads.OpenRegistry(cfg.Uploads.RegistryPath, logger)
	if err != nil {
		logger.Error("open upload registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := registry.Close(); cerr != nil {
			logger.Error("close upload registry", "error", cerr)
		}
	}()
	go uploads.RunSweeper(ctx, registry, cfg.Uploads.SweepInterval, logger)

	rasterizer := ocr.NewMagickRasterizer(cfg.OCR.Magick, cfg.OCR.DPI, cfg.OCR.Quality, logger)
	rasterizer.MaxPages = cfg.OCR.MaxPages
	factory := func() ocr.Engine { return ocr.NewTesseractEngine(cfg.OCR.Language) }
	pipe := ocr.NewPipeline(rasterizer, factory, logger)

	apps := repository.NewApplicationRepository(pool, logger)
	proc := pipeline.NewProcessor(apps, registry, pipe, logger)
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Uploads.Workers),
		async.WithQueueSize(cfg.Uploads.QueueSize),
		async.WithProcessTimeout(cfg.Uploads.ProcessTimeout),
	)
	exportSvc := export.NewService(apps, logger)

	srv := server.New(cfg, apps, registry, proc, queue, exportSvc, healthcheck(pool), logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

func healthcheck(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
