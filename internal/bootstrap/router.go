package bootstrap

import (
	"time"

	httpapi "github.com/GoSim-25-26J-441/envelope-analysis/internal/api/http"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/api/http/middleware"
	envhttp "github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/http"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Gatherer       prometheus.Gatherer
	UploadLimiter  *rate.Limiter
	Envelope       *envhttp.Handler
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)
	if dep.Gatherer != nil {
		httpapi.RegisterMetrics(r, dep.Gatherer)
	}

	api := r.Group("/api")
	dep.Envelope.Register(api, middleware.RateLimitMiddleware(dep.UploadLimiter))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
