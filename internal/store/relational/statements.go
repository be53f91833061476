package relational

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// InsertStatementsBatch bulk-inserts statements for one document,
// using pgx.Batch so a single round trip covers the whole statement set.
func (s *Store) InsertStatementsBatch(ctx context.Context, statements []domain.Statement) error {
	if len(statements) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range statements {
		batch.Queue(`
INSERT INTO statements (id, document_id, statement_index, speaker_label, speaker_id, word_count, text)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (document_id, statement_index) DO UPDATE SET
	speaker_label = EXCLUDED.speaker_label, word_count = EXCLUDED.word_count, text = EXCLUDED.text`,
			st.ID, st.DocumentID, st.StatementIndex, st.SpeakerLabel, st.SpeakerID, st.WordCount, st.Text)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range statements {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: insert statements: %v", apperr.StoreUnavailable, err)
		}
	}
	return nil
}

// InsertSegmentsBatch bulk-inserts segment identity rows for one document.
// The columnar store owns the text and vector; Postgres owns only the
// identity row and its denormalized position fields.
func (s *Store) InsertSegmentsBatch(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sg := range segments {
		batch.Queue(`
INSERT INTO segments (id, document_id, statement_id, segment_index, chunk_index, start_time_ms, end_time_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (document_id, segment_index) DO NOTHING`,
			sg.ID, sg.DocumentID, sg.StatementID, sg.SegmentIndex, sg.ChunkIndex, sg.StartTimeMs, sg.EndTimeMs)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range segments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: insert segments: %v", apperr.StoreUnavailable, err)
		}
	}
	return nil
}

// SpeakerLabelsForSegments performs the segments → statements join to
// resolve the speaker label (and, if linked, the global speaker id) for a
// batch of segment ids, as used by enrichment.
type SegmentSpeaker struct {
	SegmentID    string
	SpeakerLabel string
	SpeakerID    *string
}

func (s *Store) SpeakerLabelsForSegments(ctx context.Context, segmentIDs []string) (map[string]SegmentSpeaker, error) {
	out := make(map[string]SegmentSpeaker, len(segmentIDs))
	if len(segmentIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
SELECT seg.id, st.speaker_label, st.speaker_id
FROM segments seg
JOIN statements st ON st.id = seg.statement_id
WHERE seg.id = ANY($1)`, segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: speaker label join: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ss SegmentSpeaker
		if err := rows.Scan(&ss.SegmentID, &ss.SpeakerLabel, &ss.SpeakerID); err != nil {
			return nil, err
		}
		out[ss.SegmentID] = ss
	}
	return out, rows.Err()
}

// CountSegments returns the number of segment rows stored for a document.
func (s *Store) CountSegments(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM segments WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count segments: %v", apperr.StoreUnavailable, err)
	}
	return n, nil
}

// AllSegmentIDs streams every segment id for bi-store consistency checks.
func (s *Store) AllSegmentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM segments`)
	if err != nil {
		return nil, fmt.Errorf("%w: list segments: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
