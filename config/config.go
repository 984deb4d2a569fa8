package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Envelope EnvelopeConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EnvelopeConfig holds the tunables of the envelope workflow.
type EnvelopeConfig struct {
	TempDataTTL           time.Duration
	CacheTTL              time.Duration
	DefaultSamplingPoints int
	MaxSamplingPoints     int
	PreviewRows           int
	MaxUploadMB           int
	UploadRatePerSec      float64
	UploadBurst           int
	JanitorSchedule       string
	JanitorGrace          time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5005"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DB_DSN", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "envelope"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Envelope: EnvelopeConfig{
			TempDataTTL:           getEnvAsDuration("TEMP_DATA_TTL", 24*time.Hour),
			CacheTTL:              getEnvAsDuration("ENVELOPE_CACHE_TTL", time.Hour),
			DefaultSamplingPoints: getEnvAsInt("DEFAULT_SAMPLING_POINTS", 200),
			MaxSamplingPoints:     getEnvAsInt("MAX_SAMPLING_POINTS", 5000),
			PreviewRows:           getEnvAsInt("PREVIEW_ROWS", 10),
			MaxUploadMB:           getEnvAsInt("MAX_UPLOAD_MB", 64),
			UploadRatePerSec:      getEnvAsFloat("UPLOAD_RATE_PER_SEC", 2),
			UploadBurst:           getEnvAsInt("UPLOAD_BURST", 5),
			JanitorSchedule:       getEnv("JANITOR_SCHEDULE", "0 */15 * * * *"),
			JanitorGrace:          getEnvAsDuration("JANITOR_GRACE", 10*time.Minute),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.Envelope.DefaultSamplingPoints < 1 {
		return fmt.Errorf("DEFAULT_SAMPLING_POINTS must be positive")
	}

	if c.Envelope.MaxSamplingPoints < c.Envelope.DefaultSamplingPoints {
		return fmt.Errorf("MAX_SAMPLING_POINTS must not be below DEFAULT_SAMPLING_POINTS")
	}

	if c.Envelope.TempDataTTL <= 0 {
		return fmt.Errorf("TEMP_DATA_TTL must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
