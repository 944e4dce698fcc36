// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by LEARNED_STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendGCS    = "gcs"
	BackendSQLite = "sqlite"
)

// Config holds every setting shared by the api, cli and worker binaries.
type Config struct {
	Port     string
	LogLevel string

	MerchantSourceURL      string
	MerchantReloadInterval time.Duration

	LearnedStoreBackend string
	LearnedStorePath    string
	LearnedStoreBucket  string
	LearnedStoreKey     string
	FailedStoreKey      string

	AIEnabled   bool
	GeminiModel string
	AITimeout   time.Duration

	GCSBucket       string
	GCPProjectID    string
	BigQueryDataset string

	NotionToken      string
	NotionDatabaseID string

	QueueWorkers    int
	QueueBufferSize int
	QueueMaxRetries int
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit .env file names. Missing files are ignored.
func LoadFiles(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:     getString("PORT", "8080"),
		LogLevel: getString("LOG_LEVEL", "info"),

		MerchantSourceURL: getString("MERCHANT_SOURCE_URL", ""),

		LearnedStoreBackend: strings.ToLower(getString("LEARNED_STORE_BACKEND", BackendFile)),
		LearnedStorePath:    getString("LEARNED_STORE_PATH", "data"),
		LearnedStoreBucket:  getString("LEARNED_STORE_BUCKET", ""),
		LearnedStoreKey:     getString("LEARNED_STORE_KEY", "learned_descriptions"),
		FailedStoreKey:      getString("FAILED_STORE_KEY", "failed_parsing_attempts"),

		GeminiModel: getString("GEMINI_MODEL", "gemini-2.5-flash"),

		GCSBucket:       getString("GCS_BUCKET", ""),
		GCPProjectID:    getString("GCP_PROJECT_ID", ""),
		BigQueryDataset: getString("BIGQUERY_DATASET", "finance"),

		NotionToken:      getString("NOTION_TOKEN", ""),
		NotionDatabaseID: getString("NOTION_DATABASE_ID", ""),
	}

	var err error
	if cfg.MerchantReloadInterval, err = getDuration("MERCHANT_RELOAD_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AITimeout, err = getDuration("AI_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AIEnabled, err = getBool("AI_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.QueueWorkers, err = getInt("QUEUE_WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.QueueBufferSize, err = getInt("QUEUE_BUFFER_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.QueueMaxRetries, err = getInt("QUEUE_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.LearnedStoreBackend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendGCS:
		if c.LearnedStoreBucket == "" {
			return fmt.Errorf("config: LEARNED_STORE_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("config: unknown LEARNED_STORE_BACKEND %q", c.LearnedStoreBackend)
	}
	if c.QueueWorkers < 1 {
		return fmt.Errorf("config: QUEUE_WORKERS must be at least 1, got %d", c.QueueWorkers)
	}
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
