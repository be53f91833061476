// Package columnar implements the columnar store: vector nearest
// neighbor search, full-text search, hybrid fusion, predicate push-down,
// and phrase search over text_embeddings/text_fts/speaker_centroids,
// backed by ClickHouse.
package columnar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"polsearch/internal/apperr"
	"polsearch/internal/config"
)

// Store wraps a ClickHouse connection with the operations search depends on.
type Store struct {
	conn     clickhouse.Conn
	database string
	metric   string // cosine|l2|ip
	ftsReady bool
}

// Open connects to ClickHouse per cfg, bootstraps the database and tables,
// and probes for full-text index support (see ftsReady).
func Open(ctx context.Context, cfg config.ColumnarConfig) (*Store, error) {
	opts, err := clickhouse.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "polsearch"
	}
	opts.Auth.Database = dbName

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open clickhouse connection: %v", apperr.StoreUnavailable, err)
	}

	s := &Store{conn: conn, database: dbName, metric: cfg.Metric}
	if s.metric == "" {
		s.metric = "cosine"
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.bootstrap(cctx); err != nil {
		conn.Close()
		return nil, err
	}
	s.ftsReady = s.probeFTS(cctx)
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) bootstrap(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database)); err != nil {
		return fmt.Errorf("%w: create database: %v", apperr.StoreUnavailable, err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.text_embeddings (
			id String,
			content_type LowCardinality(String),
			content_id String,
			external_id String,
			statement_id String,
			segment_index UInt32,
			start_time_ms UInt32,
			end_time_ms UInt32,
			text String,
			vector Array(Float32),
			speaker_name String
		) ENGINE = MergeTree ORDER BY (content_type, content_id, segment_index)`, s.database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.text_fts (
			id String,
			content_type LowCardinality(String),
			content_id String,
			external_id String,
			statement_id String,
			segment_index UInt32,
			text String,
			INDEX text_tokens text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 4
		) ENGINE = MergeTree ORDER BY (content_type, content_id, segment_index)`, s.database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.speaker_centroids (
			speaker_id String,
			vector Array(Float32),
			sample_count UInt32
		) ENGINE = ReplacingMergeTree ORDER BY speaker_id`, s.database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.speaker_embeddings (
			content_speaker_id String,
			speaker_id String,
			vector Array(Float32)
		) ENGINE = MergeTree ORDER BY (speaker_id, content_speaker_id)`, s.database),
	}
	for _, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: bootstrap CS schema: %v", apperr.StoreUnavailable, err)
		}
	}
	return nil
}

// probeFTS checks whether the text_fts table's tokenbf_v1 index is usable by
// running a cheap hasToken query. A failure here is what downstream search
// calls surface as apperr.IndexMissing instead of re-probing per query.
func (s *Store) probeFTS(ctx context.Context) bool {
	row := s.conn.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s.text_fts WHERE hasToken(text, 'probe') LIMIT 1`, s.database))
	var n uint64
	return row.Scan(&n) == nil
}

// distanceExpr returns the ClickHouse vector-distance function for the
// configured metric against a `?`-bound query vector. Lower values mean
// closer.
func (s *Store) distanceExpr(column string) string {
	switch s.metric {
	case "l2":
		return fmt.Sprintf("L2Distance(%s, ?)", column)
	case "ip":
		return fmt.Sprintf("-dotProduct(%s, ?)", column)
	default:
		return fmt.Sprintf("cosineDistance(%s, ?)", column)
	}
}

// escapeLike escapes a phrase for safe embedding in a ClickHouse LIKE
// pattern, matching the original's escape rule for speaker/phrase filters
// (escape backslash, single quote, then percent/underscore wildcards).
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `''`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
