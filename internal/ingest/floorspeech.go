package ingest

import (
	"context"
	"fmt"

	"polsearch/internal/apperr"
	"polsearch/internal/chunker"
	"polsearch/internal/domain"
	"polsearch/internal/store/columnar"
)

// FloorSpeechIngester implements the per-file ingestion protocol for Congressional
// Record floor-speech transcripts. Unlike hearings, statement text is
// retained in Postgres as well as the columnar store.
type FloorSpeechIngester struct {
	Deps
}

func NewFloorSpeechIngester(d Deps) *FloorSpeechIngester { return &FloorSpeechIngester{Deps: d} }

func (f *FloorSpeechIngester) IngestFile(ctx context.Context, path string, opts Options) (Result, error) {
	var doc rawFloorSpeechDoc
	if err := readJSON(path, &doc); err != nil {
		return Result{}, err
	}

	if chunker.IsAdministrativeTitle(doc.Title) {
		return Result{Skipped: true}, nil
	}

	existingID, exists, err := f.RS.ExistsByExternalID(ctx, domain.ContentFloorSpeech, doc.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if exists && !opts.Force {
		return Result{Skipped: true}, nil
	}
	if exists && opts.Force {
		if err := f.RS.DeleteDocument(ctx, existingID); err != nil {
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
	if err := f.RS.InsertDocument(ctx, sourceDoc); err != nil {
		return Result{}, err
	}

	built := buildStatementsAndSegments(docID, doc.Statements, f.Chunker, true)

	var statements []domain.Statement
	var segments []domain.Segment
	var contentSpeakers []domain.ContentSpeaker
	var csRows []columnar.SegmentRow
	var texts []string
	for _, bs := range built {
		statements = append(statements, bs.statement)
		segments = append(segments, bs.segments...)
		contentSpeakers = append(contentSpeakers, bs.contentSpeaker)
		for i, seg := range bs.segments {
			csRows = append(csRows, columnar.SegmentRow{
				ID:           seg.ID,
				ContentType:  domain.ContentFloorSpeech,
				ContentID:    docID,
				ExternalID:   doc.ExternalID,
				StatementID:  seg.StatementID,
				SegmentIndex: seg.SegmentIndex,
				Text:         bs.texts[i],
				SpeakerName:  bs.statement.SpeakerLabel,
			})
		}
		texts = append(texts, bs.texts...)
	}

	if err := f.RS.InsertStatementsBatch(ctx, statements); err != nil {
		return Result{}, err
	}
	if err := f.RS.InsertSegmentsBatch(ctx, segments); err != nil {
		return Result{}, err
	}
	if err := f.RS.InsertContentSpeakersBatch(ctx, contentSpeakers); err != nil {
		return Result{}, err
	}

	if len(csRows) > 0 {
		vectors, err := f.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return Result{}, fmt.Errorf("%w: embed floor speech segments: %v", apperr.EmbeddingFailed, err)
		}
		for i := range csRows {
			csRows[i].Vector = vectors[i]
		}
		if err := f.CS.WriteSegments(ctx, csRows); err != nil {
			return Result{}, err
		}
	}

	if err := f.RS.MarkProcessed(ctx, docID, len(statements), len(segments)); err != nil {
		return Result{}, err
	}

	return Result{DocumentID: docID, Statements: len(statements), Segments: len(segments)}, nil
}

func (f *FloorSpeechIngester) IngestDirectory(ctx context.Context, dir string, opts Options) ([]Result, error) {
	files, err := listJSONFiles(dir, opts.Limit)
	if err != nil {
		return nil, err
	}
	return fanOutIngest(ctx, files, opts, f.IngestFile)
}
