package bootstrap

import (
	"database/sql"

	"github.com/GoSim-25-26J-441/envelope-analysis/config"
	envhttp "github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/http"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/repository"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type EnvelopeDeps struct {
	MetaDB  *sql.DB
	Rows    *pgxpool.Pool
	Redis   *redis.Client
	Config  config.EnvelopeConfig
	Metrics *service.Metrics
}

// BuildEnvelopeHandler wires repositories and services behind the envelope API.
func BuildEnvelopeHandler(dep EnvelopeDeps) *envhttp.Handler {
	types := repository.NewTypeRepository(dep.MetaDB)
	datasets := repository.NewDatasetRepository(dep.MetaDB)
	settings := repository.NewSettingsRepository(dep.MetaDB)
	rows := repository.NewRowStore(dep.Rows)
	temps := repository.NewTempRegistry(dep.Redis, dep.Config.TempDataTTL)
	cache := repository.NewEnvelopeCache(dep.Redis, dep.Config.CacheTTL)

	catalog := service.NewCatalogService(types, datasets, settings, rows, cache)
	registry := service.NewRegistryService(types, datasets, rows, cache, dep.Metrics, dep.Config.PreviewRows)
	settingsSvc := service.NewSettingsService(types, settings, cache)
	staging := service.NewStagingService(types, datasets, rows, temps, cache, dep.Metrics)
	envelopes := service.NewEnvelopeService(types, datasets, rows, temps, cache, dep.Metrics, service.SamplingLimits{
		DefaultPoints: dep.Config.DefaultSamplingPoints,
		MaxPoints:     dep.Config.MaxSamplingPoints,
	})

	return envhttp.New(catalog, registry, settingsSvc, staging, envelopes, dep.Config.MaxUploadMB)
}

// NewMetricsRegistry returns a registry with the Go and process collectors plus
// the envelope workflow metrics.
func NewMetricsRegistry() (*prometheus.Registry, *service.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, service.NewMetrics(reg)
}
