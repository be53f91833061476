package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
	"polsearch/internal/store/columnar"
)

// HearingIngester implements the per-file ingestion protocol for committee hearings.
// Hearing statement text is stored only in the columnar store; Postgres carries the
// identity rows.
type HearingIngester struct {
	Deps
}

func NewHearingIngester(d Deps) *HearingIngester { return &HearingIngester{Deps: d} }

func (h *HearingIngester) IngestFile(ctx context.Context, path string, opts Options) (Result, error) {
	var doc rawHearingDoc
	if err := readJSON(path, &doc); err != nil {
		return Result{}, err
	}

	existingID, exists, err := h.RS.ExistsByExternalID(ctx, domain.ContentHearing, doc.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if exists && !opts.Force {
		return Result{Skipped: true}, nil
	}
	if exists && opts.Force {
		if err := h.RS.DeleteDocument(ctx, existingID); err != nil {
			return Result{}, err
		}
	}

	date, err := parseDate(doc.Date)
	if err != nil {
		return Result{}, err
	}
	if opts.YearFilter != 0 && date.Year() != opts.YearFilter {
		return Result{Skipped: true}, nil
	}

	// A hearing's JSON carries a single chamber; Chambers holds it as a
	// one-element slice so joint hearings (assembled later from multiple
	// source files) can be merged onto the same slice shape.
	chambers := []domain.Chamber{domain.Chamber(doc.Chamber)}
	var committeeSlug string
	if doc.CommitteeName != "" {
		committeeSlug = slugifyCommittee(doc.CommitteeName)
	}

	docID := newID()
	sourceDoc := domain.SourceDocument{
		ID:          docID,
		ContentType: domain.ContentHearing,
		ExternalID:  doc.ExternalID,
		EventID:     doc.EventID,
		Title:       doc.Title,
		Date:        date,
		YearMonth:   yearMonth(date),
		Chamber:     domain.Chamber(doc.Chamber),
		SourceURL:   doc.SourceURL,
		IsProcessed: false,
		Hearing: &domain.HearingFields{
			CommitteeName: doc.CommitteeName,
			CommitteeSlug: committeeSlug,
			Congress:      doc.Congress,
			Chambers:      chambers,
		},
	}
	if err := h.RS.InsertDocument(ctx, sourceDoc); err != nil {
		return Result{}, err
	}

	built := buildStatementsAndSegments(docID, doc.Statements, h.Chunker, false)

	var statements []domain.Statement
	var segments []domain.Segment
	var contentSpeakers []domain.ContentSpeaker
	var csRows []columnar.SegmentRow
	for _, bs := range built {
		statements = append(statements, bs.statement)
		segments = append(segments, bs.segments...)
		contentSpeakers = append(contentSpeakers, bs.contentSpeaker)
		for i, seg := range bs.segments {
			csRows = append(csRows, columnar.SegmentRow{
				ID:           seg.ID,
				ContentType:  domain.ContentHearing,
				ContentID:    docID,
				ExternalID:   doc.ExternalID,
				StatementID:  seg.StatementID,
				SegmentIndex: seg.SegmentIndex,
				Text:         bs.texts[i],
				SpeakerName:  bs.statement.SpeakerLabel,
			})
		}
	}

	if err := h.RS.InsertStatementsBatch(ctx, statements); err != nil {
		return Result{}, err
	}
	if err := h.RS.InsertSegmentsBatch(ctx, segments); err != nil {
		return Result{}, err
	}
	if err := h.RS.InsertContentSpeakersBatch(ctx, contentSpeakers); err != nil {
		return Result{}, err
	}

	if len(csRows) > 0 {
		texts := make([]string, 0, len(csRows))
		for _, bs := range built {
			texts = append(texts, bs.texts...)
		}
		vectors, err := h.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return Result{}, fmt.Errorf("%w: embed hearing segments: %v", apperr.EmbeddingFailed, err)
		}
		for i := range csRows {
			csRows[i].Vector = vectors[i]
		}
		if err := h.CS.WriteSegments(ctx, csRows); err != nil {
			return Result{}, err
		}
	}

	if err := h.RS.MarkProcessed(ctx, docID, len(statements), len(segments)); err != nil {
		return Result{}, err
	}

	return Result{DocumentID: docID, Statements: len(statements), Segments: len(segments)}, nil
}

// IngestDirectory walks path for *.json files and ingests each with fan-out
// of up to opts.Workers goroutines.
func (h *HearingIngester) IngestDirectory(ctx context.Context, dir string, opts Options) ([]Result, error) {
	files, err := listJSONFiles(dir, opts.Limit)
	if err != nil {
		return nil, err
	}
	return fanOutIngest(ctx, files, opts, h.IngestFile)
}

func listJSONFiles(dir string, limit int) ([]string, error) {
	pattern := filepath.Join(dir, "*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", apperr.ParseError, dir, err)
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// fanOutIngest walks files with up to opts.Workers concurrent IngestFile
// calls. A single file's parse/embedding/store failure is
// contained to that file: it is recorded on its Result, and the
// remaining files are still processed. Only a cancelled ctx stops the walk
// early.
func fanOutIngest(ctx context.Context, files []string, opts Options, ingestOne func(context.Context, string, Options) (Result, error)) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			r, err := ingestOne(gctx, path, opts)
			r.Path = path
			if err != nil {
				r.Err = fmt.Errorf("%s: %w", path, err)
			}
			results[i] = r
			// A per-file failure never cancels sibling files; only a
			// cancelled/expired ctx does (propagated via gctx.Err()).
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return results, err
	}
	return results, nil
}
