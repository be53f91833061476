// Package config loads service configuration from the environment (and an
// optional .env file): godotenv.Overload first, then explicit env reads with
// defaults. A YAML overlay file named by CONFIG_FILE can override the
// non-secret tuning sections (ingestion, search) after the env pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RelationalConfig configures the relational store (RS, Postgres).
type RelationalConfig struct {
	DSN         string
	MaxConns    int32
	MaxConnIdle time.Duration
}

// ColumnarConfig configures the columnar store (CS, ClickHouse).
type ColumnarConfig struct {
	DSN                 string
	Database            string
	Metric              string // cosine|l2|ip, used by vector search scoring
	SpeakerIndexBackend string // "clickhouse" (default) or "qdrant"
	QdrantDSN           string
}

// EmbeddingConfig configures the HTTP embedding client.
type EmbeddingConfig struct {
	BaseURL    string
	Path       string
	Model      string
	APIKey     string
	APIHeader  string
	Dimensions int
	Timeout    time.Duration
}

// IngestionConfig tunes ingestion concurrency and chunking defaults.
type IngestionConfig struct {
	MaxWorkers        int
	ChunkMaxChars     int
	ChunkOverlapRatio float64
	StaleTaskMinutes  int
}

// SearchConfig tunes the hybrid search executor.
type SearchConfig struct {
	Timeout time.Duration
}

// Config is the root configuration object.
type Config struct {
	Host       string
	Port       int
	Relational RelationalConfig
	Columnar   ColumnarConfig
	Embedding  EmbeddingConfig
	Ingestion  IngestionConfig
	Search     SearchConfig
}

// Load reads configuration from the environment, overlaying any .env file
// found in the working directory. Returns an error when a required value
// (DATABASE_URL) is missing or when the CONFIG_FILE overlay cannot be read
// or parsed.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Host: firstNonEmpty(os.Getenv("HOST"), "0.0.0.0"),
		Port: intFromEnv("PORT", 8080),
		Relational: RelationalConfig{
			DSN:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MaxConns:    int32(intFromEnv("DATABASE_MAX_CONNS", 10)),
			MaxConnIdle: time.Duration(intFromEnv("DATABASE_MAX_IDLE_SECS", 300)) * time.Second,
		},
		Columnar: ColumnarConfig{
			// LANCEDB_PATH is accepted as a synonym for backward compatibility
			// with deployments configured against the older variable name.
			DSN:                 firstNonEmpty(os.Getenv("COLUMNAR_DSN"), os.Getenv("LANCEDB_PATH")),
			Database:            firstNonEmpty(os.Getenv("COLUMNAR_DATABASE"), "polsearch"),
			Metric:              firstNonEmpty(os.Getenv("COLUMNAR_METRIC"), "cosine"),
			SpeakerIndexBackend: firstNonEmpty(os.Getenv("SPEAKER_INDEX_BACKEND"), "clickhouse"),
			QdrantDSN:           os.Getenv("QDRANT_DSN"),
		},
		Embedding: EmbeddingConfig{
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Path:       firstNonEmpty(os.Getenv("EMBEDDING_PATH"), "/v1/embeddings"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			APIHeader:  firstNonEmpty(os.Getenv("EMBEDDING_API_HEADER"), "Authorization"),
			Dimensions: intFromEnv("EMBEDDING_DIMENSIONS", 384),
			Timeout:    time.Duration(intFromEnv("EMBEDDING_TIMEOUT_SECS", 30)) * time.Second,
		},
		Ingestion: IngestionConfig{
			MaxWorkers:        intFromEnv("INGEST_MAX_WORKERS", 4),
			ChunkMaxChars:     intFromEnv("INGEST_CHUNK_MAX_CHARS", 1500),
			ChunkOverlapRatio: floatFromEnv("INGEST_CHUNK_OVERLAP_RATIO", 0.1),
			StaleTaskMinutes:  intFromEnv("STALE_TASK_MINUTES", 15),
		},
		Search: SearchConfig{
			Timeout: time.Duration(intFromEnv("SEARCH_TIMEOUT_SECS", 30)) * time.Second,
		},
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyOverlay(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if cfg.Relational.DSN == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// overlayFile is the YAML shape of the optional tuning overlay. Only the
// non-secret knobs are settable here; connection strings and credentials stay
// in the environment.
type overlayFile struct {
	Ingestion struct {
		MaxWorkers        *int     `yaml:"max_workers"`
		ChunkMaxChars     *int     `yaml:"chunk_max_chars"`
		ChunkOverlapRatio *float64 `yaml:"chunk_overlap_ratio"`
		StaleTaskMinutes  *int     `yaml:"stale_task_minutes"`
	} `yaml:"ingestion"`
	Search struct {
		TimeoutSecs *int `yaml:"timeout_secs"`
	} `yaml:"search"`
}

func applyOverlay(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config overlay %s: %w", path, err)
	}
	var o overlayFile
	if err := yaml.Unmarshal(b, &o); err != nil {
		return fmt.Errorf("parse config overlay %s: %w", path, err)
	}
	if o.Ingestion.MaxWorkers != nil {
		cfg.Ingestion.MaxWorkers = *o.Ingestion.MaxWorkers
	}
	if o.Ingestion.ChunkMaxChars != nil {
		cfg.Ingestion.ChunkMaxChars = *o.Ingestion.ChunkMaxChars
	}
	if o.Ingestion.ChunkOverlapRatio != nil {
		cfg.Ingestion.ChunkOverlapRatio = *o.Ingestion.ChunkOverlapRatio
	}
	if o.Ingestion.StaleTaskMinutes != nil {
		cfg.Ingestion.StaleTaskMinutes = *o.Ingestion.StaleTaskMinutes
	}
	if o.Search.TimeoutSecs != nil {
		cfg.Search.Timeout = time.Duration(*o.Search.TimeoutSecs) * time.Second
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
