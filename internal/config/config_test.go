package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/polsearch")
	t.Setenv("COLUMNAR_DSN", "")
	t.Setenv("LANCEDB_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 1500, cfg.Ingestion.ChunkMaxChars)
	require.InDelta(t, 0.1, cfg.Ingestion.ChunkOverlapRatio, 1e-9)
	require.Equal(t, 384, cfg.Embedding.Dimensions)
	require.Equal(t, "clickhouse", cfg.Columnar.SpeakerIndexBackend)
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"ingestion:\n  max_workers: 8\n  chunk_max_chars: 900\nsearch:\n  timeout_secs: 5\n"), 0o644))

	t.Setenv("DATABASE_URL", "postgres://localhost/polsearch")
	t.Setenv("CONFIG_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Ingestion.MaxWorkers)
	require.Equal(t, 900, cfg.Ingestion.ChunkMaxChars)
	require.Equal(t, 5*time.Second, cfg.Search.Timeout)
	// Knobs the overlay does not name keep their env/default values.
	require.InDelta(t, 0.1, cfg.Ingestion.ChunkOverlapRatio, 1e-9)
}

func TestLoadLancedbPathFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/polsearch")
	t.Setenv("COLUMNAR_DSN", "")
	t.Setenv("LANCEDB_PATH", "clickhouse://localhost:9000")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "clickhouse://localhost:9000", cfg.Columnar.DSN)
}
