package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/config"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/bootstrap"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/storage/postgres"
	"golang.org/x/time/rate"
)

const serviceName = "envelope-analysis"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(logging.New(cfg.App.LogLevel, os.Stdout))
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metaDB, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("metadata db: %v", err)
	}
	defer metaDB.Close()
	if err := postgres.Migrate(ctx, metaDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      postgres.DSN(&cfg.Database),
		MaxConns: int32(cfg.Database.MaxOpenConns),
	})
	if err != nil {
		log.Fatalf("row store: %v", err)
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	reg, metrics := bootstrap.NewMetricsRegistry()
	envelope := bootstrap.BuildEnvelopeHandler(bootstrap.EnvelopeDeps{
		MetaDB:  metaDB,
		Rows:    pool,
		Redis:   rdb,
		Config:  cfg.Envelope,
		Metrics: metrics,
	})

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             pool,
		Redis:          rdb,
		Gatherer:       reg,
		UploadLimiter:  rate.NewLimiter(rate.Limit(cfg.Envelope.UploadRatePerSec), cfg.Envelope.UploadBurst),
		Envelope:       envelope,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}
