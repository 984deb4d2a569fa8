// Package janitor drops temp comparison tables that lost their registry entry.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/service"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
)

// Tables lists and drops row tables
type Tables interface {
	ListTables(ctx context.Context, prefix string) ([]string, error)
	Drop(ctx context.Context, table string) error
}

// Registry answers whether a temp id is still live
type Registry interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Result summarises one sweep
type Result struct {
	Scanned int      `json:"scanned"`
	Dropped []string `json:"dropped"`
}

// Janitor sweeps orphaned temp tables. A table is orphaned when its registry
// entry expired or was never written, and it is older than the grace period.
type Janitor struct {
	tables   Tables
	registry Registry
	metrics  *service.Metrics
	grace    time.Duration
	now      func() time.Time
}

// New creates a new Janitor
func New(tables Tables, registry Registry, metrics *service.Metrics, grace time.Duration) *Janitor {
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	return &Janitor{tables: tables, registry: registry, metrics: metrics, grace: grace, now: time.Now}
}

// Sweep drops every orphaned temp table once
func (j *Janitor) Sweep(ctx context.Context) (*Result, error) {
	logger := logging.NewLogger(ctx)

	names, err := j.tables.ListTables(ctx, domain.TempTablePrefix)
	if err != nil {
		return nil, err
	}

	res := &Result{Scanned: len(names), Dropped: []string{}}
	cutoff := j.now().Add(-j.grace)
	for _, name := range names {
		created, ok := service.TempCreatedAt(name)
		if !ok || created.After(cutoff) {
			continue
		}
		live, err := j.registry.Exists(ctx, name)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", name, err)
		}
		if live {
			continue
		}
		if err := j.tables.Drop(ctx, name); err != nil {
			logger.LogError("Sweep", err)
			continue
		}
		res.Dropped = append(res.Dropped, name)
		j.metrics.RecordTempEvent("swept")
	}

	if len(res.Dropped) > 0 {
		logger.LogInfof("Sweep", "dropped %d orphaned temp tables", len(res.Dropped))
	}
	return res, nil
}
