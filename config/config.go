package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Persistence
	SQLitePath string

	// Redis result publication (empty addr disables it)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	// InfluxDB tick source (empty URL disables it)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Observability
	MetricsAddr string
	LogLevel    string

	// Run completion alerts (empty disables the webhook; alerts are always logged)
	NotifyWebhookURL string

	// Engine
	BacktestWorkers   int
	IndicatorWorkers  int
	InitialInvestment float64
}

// Load reads a .env file if present, then configuration from environment
// variables with sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SQLitePath: getEnv("SQLITE_PATH", "data/backtest.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ResultTTL:     time.Duration(getEnvInt("RESULT_TTL_SEC", 86400)) * time.Second,

		InfluxURL:    getEnv("INFLUXDB_URL", ""),
		InfluxToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUXDB_ORG", "tickback"),
		InfluxBucket: getEnv("INFLUXDB_BUCKET", "quotes"),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),

		BacktestWorkers:   getEnvInt("BACKTEST_WORKERS", 4),
		IndicatorWorkers:  getEnvInt("INDICATOR_WORKERS", 1),
		InitialInvestment: getEnvFloat("INITIAL_INVESTMENT", 100),
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.BacktestWorkers < 1 {
		return fmt.Errorf("config: BACKTEST_WORKERS must be positive, got %d", c.BacktestWorkers)
	}
	if c.IndicatorWorkers < 1 {
		return fmt.Errorf("config: INDICATOR_WORKERS must be positive, got %d", c.IndicatorWorkers)
	}
	if !(c.InitialInvestment > 0) {
		return fmt.Errorf("config: INITIAL_INVESTMENT must be positive, got %g", c.InitialInvestment)
	}
	if c.ResultTTL <= 0 {
		return fmt.Errorf("config: RESULT_TTL_SEC must be positive, got %s", c.ResultTTL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
