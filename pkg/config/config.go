package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider sources
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Fundamentals / calendar data source
	Provider ProviderConfig

	// Valuation engine
	Valuation ValuationConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ProviderConfig selects where constituents, fundamentals and the trading
// calendar come from.
type ProviderConfig struct {
	Source    string // postgres | http
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second, http source only
	Timeout   time.Duration
}

// ValuationConfig holds runtime knobs of the history builder and decision engine
type ValuationConfig struct {
	StrategyConfig     string        // path to strategy YAML
	HistoryConcurrency int           // parallel point-in-time fetches per history build
	FetchTimeout       time.Duration // timeout per point-in-time fetch
	RiskFreeRate       float64       // 10년 국채 금리
	HistoryCacheTTL    time.Duration
	AccountID          string // cash account the rebalance spends from
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Provider: ProviderConfig{
			Source:    getEnv("PROVIDER_SOURCE", SourcePostgres),
			BaseURL:   getEnv("PROVIDER_BASE_URL", ""),
			APIKey:    getEnv("PROVIDER_API_KEY", ""),
			RateLimit: getEnvAsFloat("PROVIDER_RATE_LIMIT", 10),
			Timeout:   getEnvAsDuration("PROVIDER_TIMEOUT", "30s"),
		},

		Valuation: ValuationConfig{
			StrategyConfig:     getEnv("STRATEGY_CONFIG", "config/strategy/index_beta.yaml"),
			HistoryConcurrency: getEnvAsInt("HISTORY_CONCURRENCY", 8),
			FetchTimeout:       getEnvAsDuration("FETCH_TIMEOUT", "10s"),
			RiskFreeRate:       getEnvAsFloat("RISK_FREE_RATE", 0.035),
			HistoryCacheTTL:    getEnvAsDuration("HISTORY_CACHE_TTL", "24h"),
			AccountID:          getEnv("PORTFOLIO_ACCOUNT", "default"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Provider.Source {
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for provider source %q", SourcePostgres)
		}
	case SourceHTTP:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required for provider source %q", SourceHTTP)
		}
	default:
		return fmt.Errorf("PROVIDER_SOURCE must be one of: %s, %s", SourcePostgres, SourceHTTP)
	}

	if c.Valuation.HistoryConcurrency < 1 {
		return fmt.Errorf("HISTORY_CONCURRENCY must be >= 1")
	}
	if c.Valuation.RiskFreeRate <= 0 || c.Valuation.RiskFreeRate >= 1 {
		return fmt.Errorf("RISK_FREE_RATE must be in (0, 1)")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
