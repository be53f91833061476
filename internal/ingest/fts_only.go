package ingest

import (
	"context"

	"polsearch/internal/chunker"
	"polsearch/internal/domain"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

// FtsOnlyIngester is the fast-path ingester used when corpus volume outpaces
// the embedder's throughput budget: it writes statement/segment identity to
// RS and text to CS's text_fts table, but never calls the embedder or writes
// text_embeddings. Vectors can be backfilled later by re-running the normal
// ingester with Force set.
type FtsOnlyIngester struct {
	RS      *relational.Store
	CS      *columnar.Store
	Chunker chunker.Options
}

func NewFtsOnlyIngester(d Deps) *FtsOnlyIngester {
	return &FtsOnlyIngester{RS: d.RS, CS: d.CS, Chunker: d.Chunker}
}

func (fo *FtsOnlyIngester) ingestHearing(ctx context.Context, doc rawHearingDoc, docID string) (Result, error) {
	built := buildStatementsAndSegments(docID, doc.Statements, fo.Chunker, false)
	return fo.writeFtsOnly(ctx, docID, doc.ExternalID, domain.ContentHearing, built)
}

func (fo *FtsOnlyIngester) ingestFloorSpeech(ctx context.Context, doc rawFloorSpeechDoc, docID string) (Result, error) {
	built := buildStatementsAndSegments(docID, doc.Statements, fo.Chunker, true)
	return fo.writeFtsOnly(ctx, docID, doc.ExternalID, domain.ContentFloorSpeech, built)
}

func (fo *FtsOnlyIngester) writeFtsOnly(ctx context.Context, docID, externalID string, contentType domain.ContentType, built []builtStatement) (Result, error) {
	var statements []domain.Statement
	var segments []domain.Segment
	var ftsRows []columnar.FtsRow
	for _, bs := range built {
		statements = append(statements, bs.statement)
		segments = append(segments, bs.segments...)
		for i, seg := range bs.segments {
			ftsRows = append(ftsRows, columnar.FtsRow{
				ID:           seg.ID,
				ContentType:  contentType,
				ContentID:    docID,
				ExternalID:   externalID,
				StatementID:  seg.StatementID,
				SegmentIndex: seg.SegmentIndex,
				Text:         bs.texts[i],
			})
		}
	}

	if err := fo.RS.InsertStatementsBatch(ctx, statements); err != nil {
		return Result{}, err
	}
	if err := fo.RS.InsertSegmentsBatch(ctx, segments); err != nil {
		return Result{}, err
	}
	if err := fo.CS.WriteFtsOnly(ctx, ftsRows); err != nil {
		return Result{}, err
	}
	if err := fo.RS.MarkProcessed(ctx, docID, len(statements), len(segments)); err != nil {
		return Result{}, err
	}

	return Result{DocumentID: docID, Statements: len(statements), Segments: len(segments)}, nil
}

// IngestHearingFile runs the FTS-only fast path for a single hearing file. The
// document row itself is still inserted the normal way so that RS metadata
// joins work immediately; only the vector write is skipped.
func (fo *FtsOnlyIngester) IngestHearingFile(ctx context.Context, path string, opts Options) (Result, error) {
	var doc rawHearingDoc
	if err := readJSON(path, &doc); err != nil {
		return Result{}, err
	}
	existingID, exists, err := fo.RS.ExistsByExternalID(ctx, domain.ContentHearing, doc.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if exists && !opts.Force {
		return Result{Skipped: true}, nil
	}
	if exists && opts.Force {
		if err := fo.RS.DeleteDocument(ctx, existingID); err != nil {
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
	if err := fo.RS.InsertDocument(ctx, sourceDoc); err != nil {
		return Result{}, err
	}
	return fo.ingestHearing(ctx, doc, docID)
}

// IngestFloorSpeechFile runs the FTS-only fast path for a single floor-speech
// file.
func (fo *FtsOnlyIngester) IngestFloorSpeechFile(ctx context.Context, path string, opts Options) (Result, error) {
	var doc rawFloorSpeechDoc
	if err := readJSON(path, &doc); err != nil {
		return Result{}, err
	}
	if chunker.IsAdministrativeTitle(doc.Title) {
		return Result{Skipped: true}, nil
	}
	existingID, exists, err := fo.RS.ExistsByExternalID(ctx, domain.ContentFloorSpeech, doc.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if exists && !opts.Force {
		return Result{Skipped: true}, nil
	}
	if exists && opts.Force {
		if err := fo.RS.DeleteDocument(ctx, existingID); err != nil {
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

	docID := newID()
	sourceDoc := domain.SourceDocument{
		ID:          docID,
		ContentType: domain.ContentFloorSpeech,
		ExternalID:  doc.ExternalID,
		EventID:     doc.EventID,
		Title:       doc.Title,
		Date:        date,
		YearMonth:   yearMonth(date),
		Chamber:     domain.Chamber(doc.Chamber),
		SourceURL:   doc.SourceURL,
		IsProcessed: false,
		FloorSpeech: &domain.FloorSpeechFields{
			GranuleID: doc.ExternalID,
			PageType:  domain.PageType(derivePageType(doc.ExternalID)),
		},
	}
	if err := fo.RS.InsertDocument(ctx, sourceDoc); err != nil {
		return Result{}, err
	}
	return fo.ingestFloorSpeech(ctx, doc, docID)
}
