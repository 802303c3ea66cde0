package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min/IP）
	RateLimitGeneral int
	RateLimitWrite   int

	// Beef of the Day
	BOTDInterval      time.Duration
	BOTDTimezone      string
	BOTDExclusionDays int

	// Reconcile
	ReconcileInterval time.Duration
	ReconcileRepair   bool

	// Worker
	WorkerMaxConcurrent int

	// Observability
	LogLevel       string
	MetricsEnabled bool
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む。既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.BOTDInterval = getEnvDuration("BOTD_INTERVAL", time.Hour)
	cfg.BOTDTimezone = getEnvString("BOTD_TIMEZONE", "America/New_York")
	cfg.BOTDExclusionDays = getEnvInt("BOTD_EXCLUSION_DAYS", 30)
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 24*time.Hour)
	cfg.ReconcileRepair = getEnvBool("RECONCILE_REPAIR", false)
	cfg.WorkerMaxConcurrent = getEnvInt("WORKER_MAX_CONCURRENT", 2)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は任意項目の値の範囲を検証する。
func (c *Config) validate() error {
	if c.RateLimitGeneral < 1 || c.RateLimitWrite < 1 {
		return fmt.Errorf("rate limits must be positive: general=%d write=%d", c.RateLimitGeneral, c.RateLimitWrite)
	}
	if c.BOTDInterval <= 0 || c.ReconcileInterval <= 0 {
		return fmt.Errorf("worker intervals must be positive: botd=%s reconcile=%s", c.BOTDInterval, c.ReconcileInterval)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
