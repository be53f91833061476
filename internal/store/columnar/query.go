package columnar

import (
	"context"
	"fmt"
	"strings"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// Filter is the composite columnar predicate built by the search executor's filter construction
// step: up to three ANDed clauses (content type, content id set, speaker
// name substring). ClickHouse binds parameters positionally with `?`.
type Filter struct {
	ContentTypes []domain.ContentType
	ContentIDs   []string // when non-nil (even if empty), restricts to this set
	SpeakerLike  string   // raw, unescaped; escaped internally
}

func (f Filter) whereClause(args *[]any) string {
	var clauses []string
	if len(f.ContentTypes) > 0 {
		types := make([]string, len(f.ContentTypes))
		for i, t := range f.ContentTypes {
			types[i] = string(t)
		}
		*args = append(*args, types)
		clauses = append(clauses, "content_type IN (?)")
	}
	if f.ContentIDs != nil {
		*args = append(*args, f.ContentIDs)
		clauses = append(clauses, "content_id IN (?)")
	}
	if f.SpeakerLike != "" {
		*args = append(*args, "%"+escapeLike(strings.ToLower(f.SpeakerLike))+"%")
		clauses = append(clauses, "LOWER(speaker_name) LIKE ?")
	}
	if len(clauses) == 0 {
		return "1=1"
	}
	return strings.Join(clauses, " AND ")
}

// Hit is one retrieved row with its mode-specific raw score and distance.
type Hit struct {
	ID           string
	ContentType  domain.ContentType
	ContentID    string
	StatementID  string
	SegmentIndex int
	StartTimeMs  int
	EndTimeMs    int
	Text         string
	SpeakerName  string
	Distance     float64 // vector mode: lower is closer
	Score        float64 // fts/hybrid mode: higher is better
}

// VectorSearch runs CS vector nearest-neighbor search with the composite
// filter, limit = offset+limit+1 already applied by the caller.
func (s *Store) VectorSearch(ctx context.Context, v []float32, f Filter, limit int) ([]Hit, error) {
	args := []any{v}
	where := f.whereClause(&args)
	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT id, content_type, content_id, statement_id, segment_index, start_time_ms, end_time_ms, text, speaker_name, %s AS distance
FROM %s.text_embeddings
WHERE %s
ORDER BY distance ASC
LIMIT ?`, s.distanceExpr("vector"), s.database, where)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		var ct string
		var segIdx, startMs, endMs uint32
		if err := rows.Scan(&h.ID, &ct, &h.ContentID, &h.StatementID, &segIdx, &startMs, &endMs, &h.Text, &h.SpeakerName, &h.Distance); err != nil {
			return nil, err
		}
		h.ContentType = domain.ContentType(ct)
		h.SegmentIndex = int(segIdx)
		h.StartTimeMs, h.EndTimeMs = int(startMs), int(endMs)
		out = append(out, h)
	}
	return out, rows.Err()
}

// FtsSearch runs full-text search against text_fts if it has rows, else
// text_embeddings. Returns apperr.IndexMissing when the FTS index is
// unusable, so the caller can fall back to vector mode.
func (s *Store) FtsSearch(ctx context.Context, queryText string, f Filter, limit int) ([]Hit, error) {
	if !s.ftsReady {
		return nil, fmt.Errorf("%w: full-text index unavailable", apperr.IndexMissing)
	}
	var whereArgs []any
	where := f.whereClause(&whereArgs)

	table := "text_fts"
	timeCols := "toUInt32(0) AS start_time_ms, toUInt32(0) AS end_time_ms"
	speakerCol := "''"
	hasRows, err := s.ftsTableHasRows(ctx)
	if err != nil {
		return nil, err
	}
	// text_fts carries no speaker_name column, so a speaker predicate also
	// forces the query over to text_embeddings.
	if !hasRows || f.SpeakerLike != "" {
		table = "text_embeddings"
		timeCols = "start_time_ms, end_time_ms"
		speakerCol = "speaker_name"
	}

	stmt := fmt.Sprintf(`
SELECT id, content_type, content_id, statement_id, segment_index, %s, text, %s AS speaker,
       multiSearchAnyScoreSum(text, [?]) AS score
FROM %s.%s
WHERE hasToken(text, ?) AND %s
ORDER BY score DESC
LIMIT ?`, timeCols, speakerCol, s.database, table, where)
	args := []any{queryText, queryText}
	args = append(args, whereArgs...)
	args = append(args, limit)

	rows, err := s.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fts search: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		var ct string
		var segIdx, startMs, endMs uint32
		if err := rows.Scan(&h.ID, &ct, &h.ContentID, &h.StatementID, &segIdx, &startMs, &endMs, &h.Text, &h.SpeakerName, &h.Score); err != nil {
			return nil, err
		}
		h.ContentType = domain.ContentType(ct)
		h.SegmentIndex = int(segIdx)
		h.StartTimeMs, h.EndTimeMs = int(startMs), int(endMs)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ftsTableHasRows reports whether the FTS-only fast path has written any
// rows; when it hasn't, full-text queries run against text_embeddings
// instead.
func (s *Store) ftsTableHasRows(ctx context.Context) (bool, error) {
	row := s.conn.QueryRow(ctx, fmt.Sprintf(`SELECT count() FROM (SELECT 1 FROM %s.text_fts LIMIT 1)`, s.database))
	var n uint64
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("%w: probe text_fts: %v", apperr.StoreUnavailable, err)
	}
	return n > 0, nil
}

// HybridSearch issues combined vector + full-text retrieval over
// text_embeddings and fuses results with reciprocal-rank fusion, returning
// the fused score (the `relevance` column) in Hit.Score. Falls back to the same IndexMissing error
// as FtsSearch when the FTS side is unusable.
func (s *Store) HybridSearch(ctx context.Context, queryText string, v []float32, f Filter, limit int) ([]Hit, error) {
	if !s.ftsReady {
		return nil, fmt.Errorf("%w: full-text index unavailable", apperr.IndexMissing)
	}
	var whereArgs []any
	where := f.whereClause(&whereArgs)

	// Reciprocal-rank fusion over the two rankers' row_number(), k=60.
	stmt := fmt.Sprintf(`
WITH vec AS (
  SELECT id, content_type, content_id, statement_id, segment_index, start_time_ms, end_time_ms, text, speaker_name,
         %s AS distance,
         row_number() OVER (ORDER BY %s ASC) AS vec_rank
  FROM %s.text_embeddings WHERE %s
), fts AS (
  SELECT id, multiSearchAnyScoreSum(text, [?]) AS score,
         row_number() OVER (ORDER BY multiSearchAnyScoreSum(text, [?]) DESC) AS fts_rank
  FROM %s.text_embeddings WHERE hasToken(text, ?) AND %s
)
SELECT vec.id, vec.content_type, vec.content_id, vec.statement_id, vec.segment_index, vec.start_time_ms, vec.end_time_ms, vec.text, vec.speaker_name,
       vec.distance,
       (1.0 / (60 + vec.vec_rank)) + coalesce(1.0 / (60 + fts.fts_rank), 0) AS relevance
FROM vec LEFT JOIN fts USING (id)
ORDER BY relevance DESC
LIMIT ?`, s.distanceExpr("vector"), s.distanceExpr("vector"), s.database, where, s.database, where)

	args := []any{v, v}
	args = append(args, whereArgs...)
	args = append(args, queryText, queryText, queryText)
	args = append(args, whereArgs...)
	args = append(args, limit)

	rows, err := s.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: hybrid search: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		var ct string
		var segIdx, startMs, endMs uint32
		if err := rows.Scan(&h.ID, &ct, &h.ContentID, &h.StatementID, &segIdx, &startMs, &endMs, &h.Text, &h.SpeakerName, &h.Distance, &h.Score); err != nil {
			return nil, err
		}
		h.ContentType = domain.ContentType(ct)
		h.SegmentIndex = int(segIdx)
		h.StartTimeMs, h.EndTimeMs = int(startMs), int(endMs)
		out = append(out, h)
	}
	return out, rows.Err()
}

// PhraseSearch runs a LIKE '%phrase%' scan with the composite filter. No
// ranking signal; callers assign score = 1.0 to every hit.
func (s *Store) PhraseSearch(ctx context.Context, phrase string, f Filter, limit int) ([]Hit, error) {
	args := []any{"%" + escapeLike(phrase) + "%"}
	where := f.whereClause(&args)
	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT id, content_type, content_id, statement_id, segment_index, start_time_ms, end_time_ms, text, speaker_name
FROM %s.text_embeddings
WHERE text LIKE ? AND %s
LIMIT ?`, s.database, where)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: phrase search: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		var ct string
		var segIdx, startMs, endMs uint32
		if err := rows.Scan(&h.ID, &ct, &h.ContentID, &h.StatementID, &segIdx, &startMs, &endMs, &h.Text, &h.SpeakerName); err != nil {
			return nil, err
		}
		h.ContentType = domain.ContentType(ct)
		h.SegmentIndex = int(segIdx)
		h.StartTimeMs, h.EndTimeMs = int(startMs), int(endMs)
		h.Score = 1.0
		out = append(out, h)
	}
	return out, rows.Err()
}

// ExistingIDs reports which of the given segment ids already have a
// text_embeddings row, used by cmd/verifydb's bi-store consistency check.
func (s *Store) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT id FROM %s.text_embeddings WHERE id IN (?)`, s.database)
	rows, err := s.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: existing ids: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ContextRow is one (segment_index, text) pair within a context window.
type ContextRow struct {
	SegmentIndex int
	Text         string
}

// ContextRange fetches (segment_index, text) pairs for one document within
// [lo, hi] inclusive, used by context expansion.
func (s *Store) ContextRange(ctx context.Context, contentID string, lo, hi int) ([]ContextRow, error) {
	query := fmt.Sprintf(`
SELECT segment_index, text FROM %s.text_embeddings
WHERE content_id = ? AND segment_index BETWEEN ? AND ?
ORDER BY segment_index ASC`, s.database)
	rows, err := s.conn.Query(ctx, query, contentID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%w: context range: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []ContextRow
	for rows.Next() {
		var r ContextRow
		var segIdx uint32
		if err := rows.Scan(&segIdx, &r.Text); err != nil {
			return nil, err
		}
		r.SegmentIndex = int(segIdx)
		out = append(out, r)
	}
	return out, rows.Err()
}
