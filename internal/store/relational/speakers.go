package relational

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// InsertSpeaker creates a new global speaker row.
func (s *Store) InsertSpeaker(ctx context.Context, sp domain.Speaker) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO speakers (id, name, slug, total_appearances, is_verified, merged_into_id)
VALUES ($1, $2, $3, $4, $5, $6)`,
		sp.ID, sp.Name, sp.Slug, sp.TotalAppearances, sp.IsVerified, sp.MergedIntoID)
	if err != nil {
		return fmt.Errorf("%w: insert speaker: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// IncrementAppearances bumps a speaker's total_appearances by one.
func (s *Store) IncrementAppearances(ctx context.Context, speakerID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE speakers SET total_appearances = total_appearances + 1 WHERE id = $1`, speakerID)
	if err != nil {
		return fmt.Errorf("%w: increment appearances: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// GetSpeaker fetches a speaker by id, following the merged_into_id tombstone
// chain to the canonical non-tombstone head.
func (s *Store) GetSpeaker(ctx context.Context, id string) (domain.Speaker, error) {
	for depth := 0; depth < 32; depth++ {
		var sp domain.Speaker
		err := s.pool.QueryRow(ctx,
			`SELECT id, name, slug, total_appearances, is_verified, merged_into_id FROM speakers WHERE id = $1`, id,
		).Scan(&sp.ID, &sp.Name, &sp.Slug, &sp.TotalAppearances, &sp.IsVerified, &sp.MergedIntoID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Speaker{}, fmt.Errorf("%w: speaker %s", apperr.NotFound, id)
		}
		if err != nil {
			return domain.Speaker{}, fmt.Errorf("%w: get speaker: %v", apperr.StoreUnavailable, err)
		}
		if sp.MergedIntoID == nil {
			return sp, nil
		}
		id = *sp.MergedIntoID
	}
	return domain.Speaker{}, fmt.Errorf("%w: speaker %s: merge chain too deep", apperr.ValidationError, id)
}

// MergeSpeaker sets fromID's merged_into_id to intoID, rejecting self-merges
// and merges that would introduce a cycle.
func (s *Store) MergeSpeaker(ctx context.Context, fromID, intoID string) error {
	if fromID == intoID {
		return fmt.Errorf("%w: cannot merge speaker into itself", apperr.ValidationError)
	}
	canonical, err := s.GetSpeaker(ctx, intoID)
	if err != nil {
		return err
	}
	if canonical.ID == fromID {
		return fmt.Errorf("%w: merge would create a cycle", apperr.ValidationError)
	}
	ct, err := s.pool.Exec(ctx, `UPDATE speakers SET merged_into_id = $2 WHERE id = $1`, fromID, canonical.ID)
	if err != nil {
		return fmt.Errorf("%w: merge speaker: %v", apperr.StoreUnavailable, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: speaker %s", apperr.NotFound, fromID)
	}
	return nil
}

// InsertContentSpeaker records a per-document speaker occurrence, optionally
// already linked to a global speaker.
func (s *Store) InsertContentSpeaker(ctx context.Context, cs domain.ContentSpeaker) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO content_speakers (id, document_id, statement_id, local_speaker_label, speaker_id, match_confidence)
VALUES ($1, $2, $3, $4, $5, $6)`,
		cs.ID, cs.DocumentID, cs.StatementID, cs.LocalSpeakerLabel, cs.SpeakerID, cs.MatchConfidence)
	if err != nil {
		return fmt.Errorf("%w: insert content speaker: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// InsertContentSpeakersBatch bulk-inserts per-document speaker occurrences
// for one document, all initially unresolved; resolution happens as a
// separate pass (see internal/speaker).
func (s *Store) InsertContentSpeakersBatch(ctx context.Context, rows []domain.ContentSpeaker) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, cs := range rows {
		batch.Queue(`
INSERT INTO content_speakers (id, document_id, statement_id, local_speaker_label, speaker_id, match_confidence)
VALUES ($1, $2, $3, $4, $5, $6)`,
			cs.ID, cs.DocumentID, cs.StatementID, cs.LocalSpeakerLabel, cs.SpeakerID, cs.MatchConfidence)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: insert content speakers: %v", apperr.StoreUnavailable, err)
		}
	}
	return nil
}

// LinkContentSpeaker sets the resolved speaker_id and match_confidence on an
// existing content_speakers row.
func (s *Store) LinkContentSpeaker(ctx context.Context, contentSpeakerID, speakerID string, confidence float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE content_speakers SET speaker_id = $2, match_confidence = $3 WHERE id = $1`,
		contentSpeakerID, speakerID, &confidence)
	if err != nil {
		return fmt.Errorf("%w: link content speaker: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// UnresolvedContentSpeakers returns content_speakers rows lacking a linked
// global speaker, for the speaker backfill batch operation.
func (s *Store) UnresolvedContentSpeakers(ctx context.Context, limit int) ([]domain.ContentSpeaker, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, document_id, statement_id, local_speaker_label, speaker_id, match_confidence
FROM content_speakers WHERE speaker_id IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: unresolved content speakers: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []domain.ContentSpeaker
	for rows.Next() {
		var cs domain.ContentSpeaker
		if err := rows.Scan(&cs.ID, &cs.DocumentID, &cs.StatementID, &cs.LocalSpeakerLabel, &cs.SpeakerID, &cs.MatchConfidence); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// SpeakerNamesByIDs batch-resolves global speaker names for enrichment.
// Unnamed speakers are simply absent from the result map.
func (s *Store) SpeakerNamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM speakers WHERE id = ANY($1) AND name IS NOT NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: speaker names: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var name *string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if name != nil {
			out[id] = *name
		}
	}
	return out, rows.Err()
}

// CountContentSpeakersForSpeaker returns the number of content_speakers rows
// linked to a speaker, the count that the speaker's centroid sample_count
// tracks.
func (s *Store) CountContentSpeakersForSpeaker(ctx context.Context, speakerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM content_speakers WHERE speaker_id = $1`, speakerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count content speakers: %v", apperr.StoreUnavailable, err)
	}
	return n, nil
}
