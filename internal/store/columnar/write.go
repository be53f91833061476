package columnar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// SegmentRow is one row of text_embeddings: a segment's full scalar+vector
// payload.
type SegmentRow struct {
	ID           string
	ContentType  domain.ContentType
	ContentID    string // document id, string form of the internal UUID
	ExternalID   string // package/granule/vote-id string, carried separately
	StatementID  string
	SegmentIndex int
	StartTimeMs  int
	EndTimeMs    int
	Text         string
	Vector       []float32
	SpeakerName  string
}

// WriteSegments batch-inserts rows into text_embeddings. Insert order is not
// significant.
func (s *Store) WriteSegments(ctx context.Context, rows []SegmentRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.text_embeddings", s.database))
	if err != nil {
		return fmt.Errorf("%w: prepare text_embeddings batch: %v", apperr.StoreUnavailable, err)
	}
	for _, r := range rows {
		if err := batch.Append(r.ID, string(r.ContentType), r.ContentID, r.ExternalID, r.StatementID,
			uint32(r.SegmentIndex), uint32(r.StartTimeMs), uint32(r.EndTimeMs), r.Text, r.Vector, r.SpeakerName); err != nil {
			return fmt.Errorf("%w: append text_embeddings row: %v", apperr.StoreUnavailable, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send text_embeddings batch: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// FtsRow is one row of the vector-free text_fts table.
type FtsRow struct {
	ID           string
	ContentType  domain.ContentType
	ContentID    string
	ExternalID   string
	StatementID  string
	SegmentIndex int
	Text         string
}

// WriteFtsOnly batch-inserts rows into text_fts, used by the FTS-only fast
// path ingester when the corpus outpaces the embedder throughput budget.
func (s *Store) WriteFtsOnly(ctx context.Context, rows []FtsRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.text_fts", s.database))
	if err != nil {
		return fmt.Errorf("%w: prepare text_fts batch: %v", apperr.StoreUnavailable, err)
	}
	for _, r := range rows {
		if err := batch.Append(r.ID, string(r.ContentType), r.ContentID, r.ExternalID, r.StatementID, uint32(r.SegmentIndex), r.Text); err != nil {
			return fmt.Errorf("%w: append text_fts row: %v", apperr.StoreUnavailable, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send text_fts batch: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// UpsertCentroid deletes and reinserts a speaker centroid row (the CS
// does not offer in-place vector update). ReplacingMergeTree's background
// merge reconciles the duplicate key; callers should not rely on the delete
// being synchronously visible.
func (s *Store) UpsertCentroid(ctx context.Context, speakerID string, vector []float32, sampleCount int) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s.speaker_centroids DELETE WHERE speaker_id = ?", s.database), speakerID); err != nil {
		return fmt.Errorf("%w: delete centroid: %v", apperr.StoreUnavailable, err)
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.speaker_centroids", s.database))
	if err != nil {
		return fmt.Errorf("%w: prepare centroid batch: %v", apperr.StoreUnavailable, err)
	}
	if err := batch.Append(speakerID, vector, uint32(sampleCount)); err != nil {
		return fmt.Errorf("%w: append centroid row: %v", apperr.StoreUnavailable, err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send centroid batch: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// WriteSpeakerEmbedding records the raw per-occurrence embedding behind a
// centroid update in the `speaker_embeddings` table. This is provenance
// only: resolution and the running-mean update read and write
// `speaker_centroids`, never this table, so it is safe to reap or skip
// without affecting matching.
func (s *Store) WriteSpeakerEmbedding(ctx context.Context, contentSpeakerID, speakerID string, vector []float32) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.speaker_embeddings", s.database))
	if err != nil {
		return fmt.Errorf("%w: prepare speaker_embeddings batch: %v", apperr.StoreUnavailable, err)
	}
	if err := batch.Append(contentSpeakerID, speakerID, vector); err != nil {
		return fmt.Errorf("%w: append speaker_embeddings row: %v", apperr.StoreUnavailable, err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send speaker_embeddings batch: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// NearestCentroid returns the nearest speaker centroid to v, or
// (domain.SpeakerCentroid{}, 0, false, nil) if no centroids exist yet.
func (s *Store) NearestCentroid(ctx context.Context, v []float32) (domain.SpeakerCentroid, float64, bool, error) {
	query := fmt.Sprintf(
		"SELECT speaker_id, vector, sample_count, %s AS distance FROM %s.speaker_centroids ORDER BY distance ASC LIMIT 1",
		s.distanceExpr("vector"), s.database)
	row := s.conn.QueryRow(ctx, query, v)
	var c domain.SpeakerCentroid
	var distance float64
	var sampleCount uint32
	if err := row.Scan(&c.SpeakerID, &c.Vector, &sampleCount, &distance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SpeakerCentroid{}, 0, false, nil
		}
		return domain.SpeakerCentroid{}, 0, false, fmt.Errorf("%w: nearest centroid: %v", apperr.StoreUnavailable, err)
	}
	c.SampleCount = int(sampleCount)
	return c, distance, true, nil
}
