package relational

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// InsertDocument inserts a new source document row with is_processed=false
// and counters at zero. A duplicate (content_type, external_id) violates the
// unique constraint; callers check ExistsByExternalID first and delete the
// existing row on the force path.
func (s *Store) InsertDocument(ctx context.Context, doc domain.SourceDocument) error {
	var (
		eventID                      *string
		committeeName, committeeSlug *string
		congress                     *int
		chambers                     []string
		granuleID, pageType          *string
		question, result             *string
		countsJSON                   []byte
		billRef, amendRef, nomRef    *string
	)

	if doc.EventID != "" {
		eventID = &doc.EventID
	}
	if doc.Hearing != nil {
		committeeName = &doc.Hearing.CommitteeName
		committeeSlug = &doc.Hearing.CommitteeSlug
		congress = &doc.Hearing.Congress
		for _, c := range doc.Hearing.Chambers {
			chambers = append(chambers, string(c))
		}
	}
	if doc.FloorSpeech != nil {
		granuleID = &doc.FloorSpeech.GranuleID
		pt := string(doc.FloorSpeech.PageType)
		pageType = &pt
	}
	if doc.Vote != nil {
		question = &doc.Vote.Question
		result = &doc.Vote.Result
		if doc.Vote.CountsByPosition != nil {
			b, err := json.Marshal(doc.Vote.CountsByPosition)
			if err != nil {
				return err
			}
			countsJSON = b
		}
		if doc.Vote.BillReference != "" {
			billRef = &doc.Vote.BillReference
		}
		if doc.Vote.AmendmentReference != "" {
			amendRef = &doc.Vote.AmendmentReference
		}
		if doc.Vote.NominationReference != "" {
			nomRef = &doc.Vote.NominationReference
		}
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO documents (
	id, content_type, external_id, event_id, title, date, year_month, chamber, source_url,
	is_processed, total_statements, total_segments,
	committee_name, committee_slug, congress, chambers,
	granule_id, page_type,
	question, result, counts_by_position, bill_reference, amendment_reference, nomination_reference
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
)`,
		doc.ID, string(doc.ContentType), doc.ExternalID, eventID, doc.Title, doc.Date, doc.YearMonth,
		string(doc.Chamber), doc.SourceURL, doc.IsProcessed, doc.TotalStatements, doc.TotalSegments,
		committeeName, committeeSlug, congress, chambers,
		granuleID, pageType,
		question, result, countsJSON, billRef, amendRef, nomRef,
	)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// ExistsByExternalID reports whether a document of the given content type and
// external identifier already exists.
func (s *Store) ExistsByExternalID(ctx context.Context, contentType domain.ContentType, externalID string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM documents WHERE content_type = $1 AND external_id = $2`,
		string(contentType), externalID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", apperr.StoreUnavailable, err)
	}
	return id, true, nil
}

// DeleteDocument removes a document row, cascading to its statements and
// segments. Columnar rows for the deleted document are orphaned; reaping
// them is a separate maintenance concern.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// MarkProcessed sets is_processed=true and the final statement/segment
// counters.
func (s *Store) MarkProcessed(ctx context.Context, id string, totalStatements, totalSegments int) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE documents SET is_processed = true, total_statements = $2, total_segments = $3 WHERE id = $1`,
		id, totalStatements, totalSegments,
	)
	if err != nil {
		return fmt.Errorf("%w: mark processed: %v", apperr.StoreUnavailable, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", apperr.NotFound, id)
	}
	return nil
}

// DocumentMeta is the tuple returned by bulk metadata fetch for enrichment.
type DocumentMeta struct {
	ID            string
	ExternalID    string
	ContentType   domain.ContentType
	Title         string
	Chamber       domain.Chamber
	CommitteeName string
	Date          string
	SourceURL     string
}

// MetadataByIDs batch-fetches document metadata for enrichment.
func (s *Store) MetadataByIDs(ctx context.Context, ids []string) (map[string]DocumentMeta, error) {
	return s.metadataBy(ctx, "id", ids)
}

// MetadataByExternalIDs batch-fetches document metadata keyed by external
// identifier, used as the enrichment fallback for CS content_ids that match
// no document id.
func (s *Store) MetadataByExternalIDs(ctx context.Context, externalIDs []string) (map[string]DocumentMeta, error) {
	return s.metadataBy(ctx, "external_id", externalIDs)
}

func (s *Store) metadataBy(ctx context.Context, column string, keys []string) (map[string]DocumentMeta, error) {
	out := make(map[string]DocumentMeta, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT id, external_id, content_type, title, chamber,
		coalesce(committee_name,''), to_char(date, 'YYYY-MM-DD'), source_url FROM documents WHERE %s = ANY($1)`, column)
	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata fetch: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var m DocumentMeta
		var contentType, chamber string
		var date string
		if err := rows.Scan(&m.ID, &m.ExternalID, &contentType, &m.Title, &chamber, &m.CommitteeName, &date, &m.SourceURL); err != nil {
			return nil, err
		}
		m.ContentType = domain.ContentType(contentType)
		m.Chamber = domain.Chamber(chamber)
		m.Date = date
		key := m.ID
		if column == "external_id" {
			key = m.ExternalID
		}
		out[key] = m
	}
	return out, rows.Err()
}

// FilterIDs enumerates document ids matching structural filters, used to
// build the CS content_id IN (...) predicate.
// An empty result is a valid, meaningful answer (callers short-circuit).
type DocumentFilter struct {
	ContentTypes  []domain.ContentType
	Chamber       domain.Chamber
	CommitteeSlug string
	Congress      int
	FromDate      string // YYYY-MM or YYYY-MM-DD, empty = unbounded
	ToDate        string
}

func (s *Store) FilterIDs(ctx context.Context, f DocumentFilter) ([]string, error) {
	query := `SELECT id FROM documents WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.ContentTypes) > 0 {
		types := make([]string, len(f.ContentTypes))
		for i, t := range f.ContentTypes {
			types[i] = string(t)
		}
		query += " AND content_type = ANY(" + arg(types) + ")"
	}
	if f.Chamber != "" {
		query += " AND chamber = " + arg(string(f.Chamber))
	}
	if f.CommitteeSlug != "" {
		query += " AND committee_slug = " + arg(f.CommitteeSlug)
	}
	if f.Congress != 0 {
		query += " AND congress = " + arg(f.Congress)
	}
	// Month-granularity bounds (YYYY-MM) compare against the denormalized
	// year_month column; full dates compare against date directly.
	if f.FromDate != "" {
		if len(f.FromDate) == 7 {
			query += " AND year_month >= " + arg(f.FromDate)
		} else {
			query += " AND date >= " + arg(f.FromDate)
		}
	}
	if f.ToDate != "" {
		if len(f.ToDate) == 7 {
			query += " AND year_month <= " + arg(f.ToDate)
		} else {
			query += " AND date <= " + arg(f.ToDate)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: filter ids: %v", apperr.StoreUnavailable, err)
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

// CommitteeRef is a (name, slug) pair returned by ListCommittees.
type CommitteeRef struct {
	Name string
	Slug string
}

// ListCommittees returns the distinct committees referenced by hearing
// documents.
func (s *Store) ListCommittees(ctx context.Context) ([]CommitteeRef, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT committee_name, committee_slug FROM documents
WHERE content_type = 'hearing' AND committee_slug IS NOT NULL
ORDER BY committee_name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list committees: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []CommitteeRef
	for rows.Next() {
		var c CommitteeRef
		if err := rows.Scan(&c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
