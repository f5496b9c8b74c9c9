// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Report store backends.
const (
	StoreBigQuery = "bigquery"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds every tunable of the API, worker and CLI binaries.
type Config struct {
	Port     string
	LogLevel string

	ReportStore    string
	GCPProjectID   string
	BQDataset      string
	SQLitePath     string
	ReportCacheTTL time.Duration

	GCSBucket string

	ScoringURL     string
	ScoringTimeout time.Duration

	LLMModel        string
	LLMTimeout      time.Duration
	ExtractMaxChars int

	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int

	NotionToken       string
	NotionReportsDBID string

	WorkerCount int
	QueueSize   int
}

// Load reads .env (when present) and then the process environment.
// Missing or malformed values fall back to defaults with a warning.
func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using process environment")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ReportStore:    strings.ToLower(getEnv("REPORT_STORE", StoreMemory)),
		GCPProjectID:   getEnv("GCP_PROJECT_ID", "credit-report"),
		BQDataset:      getEnv("BQ_DATASET", "credit"),
		SQLitePath:     getEnv("SQLITE_PATH", "./credit_reports.db"),
		ReportCacheTTL: getEnvAsDuration(log, "REPORT_CACHE_TTL", 5*time.Minute),

		GCSBucket: getEnv("GCS_BUCKET", ""),

		ScoringURL:     strings.TrimRight(getEnv("SCORING_URL", "http://127.0.0.1:8000"), "/"),
		ScoringTimeout: getEnvAsDuration(log, "SCORING_TIMEOUT", 30*time.Second),

		LLMModel:        getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMTimeout:      getEnvAsDuration(log, "LLM_TIMEOUT", 60*time.Second),
		ExtractMaxChars: getEnvAsInt(log, "EXTRACT_MAX_CHARS", 60000),

		MaxUploadBytes: int64(getEnvAsInt(log, "MAX_UPLOAD_BYTES", 10<<20)),
		RateLimitRPS:   getEnvAsFloat(log, "RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt(log, "RATE_LIMIT_BURST", 10),

		NotionToken:       getEnv("NOTION_TOKEN", ""),
		NotionReportsDBID: getEnv("NOTION_REPORTS_DB_ID", ""),

		WorkerCount: getEnvAsInt(log, "WORKER_COUNT", 2),
		QueueSize:   getEnvAsInt(log, "QUEUE_SIZE", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	switch c.ReportStore {
	case StoreBigQuery:
		if c.GCPProjectID == "" || c.BQDataset == "" {
			return fmt.Errorf("Validate: GCP_PROJECT_ID and BQ_DATASET are required for the bigquery store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("Validate: SQLITE_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("Validate: unknown REPORT_STORE %q", c.ReportStore)
	}
	if c.ScoringURL == "" {
		return fmt.Errorf("Validate: SCORING_URL is required")
	}
	if c.WorkerCount < 1 || c.QueueSize < 1 {
		return fmt.Errorf("Validate: WORKER_COUNT and QUEUE_SIZE must be positive")
	}
	return nil
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionReportsDBID != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(log zerolog.Logger, key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("Invalid integer in environment, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(log zerolog.Logger, key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Float64("default", defaultValue).Msg("Invalid number in environment, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(log zerolog.Logger, key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Dur("default", defaultValue).Msg("Invalid duration in environment, using default")
		return defaultValue
	}
	return value
}
