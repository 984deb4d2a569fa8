package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/envelope-analysis/config"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/bootstrap"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/janitor"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/repository"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type deps struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func (d *deps) Close() {
	d.pool.Close()
	d.rdb.Close()
}

func open(ctx context.Context) *deps {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(logging.New(cfg.App.LogLevel, os.Stderr))

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: postgres.DSN(&cfg.Database)})
	if err != nil {
		log.Fatalf("row store: %v", err)
	}
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		log.Fatalf("redis: %v", err)
	}
	return &deps{cfg: cfg, pool: pool, rdb: rdb}
}

func (d *deps) janitor() *janitor.Janitor {
	return janitor.New(
		repository.NewRowStore(d.pool),
		repository.NewTempRegistry(d.rdb, d.cfg.Envelope.TempDataTTL),
		nil,
		d.cfg.Envelope.JanitorGrace,
	)
}

// RunSweep drops orphaned temp tables once and prints the result as JSON.
func RunSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()
	d := open(ctx)
	defer d.Close()

	res, err := d.janitor().Sweep(ctx)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

// RunSchedule sweeps on JANITOR_SCHEDULE until interrupted.
func RunSchedule(args []string) {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	spec := fs.String("spec", "", "cron spec with seconds (default JANITOR_SCHEDULE)")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	d := open(ctx)
	defer d.Close()

	if *spec == "" {
		*spec = d.cfg.Envelope.JanitorSchedule
	}
	s := janitor.NewScheduler(d.janitor())
	if err := s.Start(ctx, *spec); err != nil {
		log.Fatalf("schedule: %v", err)
	}
	<-ctx.Done()
	s.Stop()
}
