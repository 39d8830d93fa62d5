// Package config loads runtime settings from the environment, with a
// .env file picked up when present. The loaded Config is passed to
// constructors explicitly; nothing here is global.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries every externally tunable setting the CLIs wire up.
type Config struct {
	// GCPProject and BQDataset select the BigQuery backend. An empty
	// project means the in-memory store is used instead.
	GCPProject string
	BQDataset  string

	// GCSBucket is the upload destination for statement files.
	GCSBucket string

	// RedisAddr enables the Redis AI-response cache when non-empty.
	RedisAddr string

	// GeminiModel is the model used for merchant normalization and
	// categorization. Empty disables AI categorization entirely.
	GeminiModel string

	// AliasTablePath overrides the embedded merchant alias table.
	AliasTablePath string

	// CatalogPath points at the YAML card product catalog used by the
	// recommendation engine when no product table is available.
	CatalogPath string
}

// Load reads the environment, after loading .env if one exists.
func Load() Config {
	godotenv.Load()

	return Config{
		GCPProject:     os.Getenv("GCP_PROJECT"),
		BQDataset:      getenv("BQ_DATASET", "creditsphere"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		AliasTablePath: os.Getenv("MERCHANT_ALIASES_PATH"),
		CatalogPath:    os.Getenv("CARD_CATALOG_PATH"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
