package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
	"polsearch/internal/store/columnar"
)

// VoteIngester implements the per-file ingestion protocol for roll-call votes. A vote
// document carries exactly one synthetic statement/segment, the concatenated
// question/subject/result text, so it participates in the same hybrid search
// surface as hearings and floor speeches.
type VoteIngester struct {
	Deps

	// legislators caches get-or-create results across a bulk import so
	// parallel per-file workers don't repeat the same lookup. Keys are
	// "bioguide:<id>" / "lis:<id>"; races resolve through the unique
	// constraint in Postgres.
	legislators sync.Map
}

func NewVoteIngester(d Deps) *VoteIngester { return &VoteIngester{Deps: d} }

func (v *VoteIngester) IngestFile(ctx context.Context, path string, opts Options) (Result, error) {
	var doc rawVoteDoc
	if err := readJSON(path, &doc); err != nil {
		return Result{}, err
	}

	existingID, exists, err := v.RS.ExistsByExternalID(ctx, domain.ContentVote, doc.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if exists && !opts.Force {
		return Result{Skipped: true}, nil
	}
	if exists && opts.Force {
		if err := v.RS.DeleteDocument(ctx, existingID); err != nil {
			return Result{}, err
		}
	}

	date, err := parseVoteDate(doc.Date)
	if err != nil {
		return Result{}, err
	}
	if opts.YearFilter != 0 && date.Year() != opts.YearFilter {
		return Result{Skipped: true}, nil
	}

	chamber := normalizeChamber(doc.Chamber)
	docID := newID()

	// Counts include VP tie-breaker entries; individual vote rows below do
	// not, matching the original's separate count-vs-individual-vote loops.
	counts := map[string]int{}
	for position, entries := range doc.Votes {
		counts[domain.NormalizePosition(position)] += len(entries)
	}

	sourceDoc := domain.SourceDocument{
		ID:          docID,
		ContentType: domain.ContentVote,
		ExternalID:  doc.ExternalID,
		Title:       doc.Title,
		Date:        date,
		YearMonth:   yearMonth(date),
		Chamber:     chamber,
		SourceURL:   doc.SourceURL,
		IsProcessed: false,
		Vote: &domain.VoteFields{
			Question:            doc.Question,
			Result:              doc.Result,
			CountsByPosition:    counts,
			BillReference:       doc.BillReference,
			AmendmentReference:  doc.AmendmentReference,
			NominationReference: doc.NominationReference,
		},
	}
	if err := v.RS.InsertDocument(ctx, sourceDoc); err != nil {
		return Result{}, err
	}

	var positions []domain.VotePosition
	for position, entries := range doc.Votes {
		normalized := domain.NormalizePosition(position)
		for _, entry := range entries {
			// VP tie-breaker entries are recognized and skipped: they are
			// counted above but carry no legislator identity to resolve.
			if entry.IsVP {
				continue
			}
			legislatorID, err := v.resolveLegislator(ctx, entry.Voter, chamber)
			if err != nil {
				return Result{}, err
			}
			positions = append(positions, domain.VotePosition{
				VoteID:       docID,
				LegislatorID: legislatorID,
				Position:     normalized,
			})
		}
	}
	if err := v.RS.InsertVotePositionsBatch(ctx, positions); err != nil {
		return Result{}, err
	}

	segmentText := voteSegmentText(doc.Question, doc.Subject, doc.ResultText)

	statementID := newID()
	statement := domain.Statement{
		ID:             statementID,
		DocumentID:     docID,
		StatementIndex: 0,
		SpeakerLabel:   "",
		WordCount:      wordCount(segmentText),
	}
	if err := v.RS.InsertStatementsBatch(ctx, []domain.Statement{statement}); err != nil {
		return Result{}, err
	}

	segment := domain.Segment{
		ID:           newID(),
		DocumentID:   docID,
		StatementID:  statementID,
		SegmentIndex: 0,
		ChunkIndex:   0,
	}
	if err := v.RS.InsertSegmentsBatch(ctx, []domain.Segment{segment}); err != nil {
		return Result{}, err
	}

	vectors, err := v.Embedder.EmbedBatch(ctx, []string{segmentText})
	if err != nil {
		return Result{}, fmt.Errorf("%w: embed vote segment: %v", apperr.EmbeddingFailed, err)
	}
	csRow := columnar.SegmentRow{
		ID:           segment.ID,
		ContentType:  domain.ContentVote,
		ContentID:    docID,
		ExternalID:   doc.ExternalID,
		StatementID:  statementID,
		SegmentIndex: 0,
		Text:         segmentText,
		Vector:       vectors[0],
	}
	if err := v.CS.WriteSegments(ctx, []columnar.SegmentRow{csRow}); err != nil {
		return Result{}, err
	}

	if err := v.RS.MarkProcessed(ctx, docID, 1, 1); err != nil {
		return Result{}, err
	}

	return Result{DocumentID: docID, Statements: 1, Segments: 1}, nil
}

// voteSegmentText concatenates a vote's question, subject, and result text
// into the single searchable segment a vote document carries. Empty parts
// are dropped; a trailing period is stripped from each part and the parts
// are joined with ". ", so the result carries no final period.
func voteSegmentText(question, subject, resultText string) string {
	var parts []string
	for _, p := range []string{question, subject, resultText} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, strings.TrimSuffix(p, "."))
		}
	}
	return strings.Join(parts, ". ")
}

// resolveLegislator looks up or creates the legislator row for a voter,
// dispatching on the vote's own chamber: Senate entries carry an LIS id,
// every other chamber carries a bioguide id, both sourced from the voter's
// single id field.
func (v *VoteIngester) resolveLegislator(ctx context.Context, voter rawVoter, chamber domain.Chamber) (string, error) {
	if voter.ID == "" {
		return "", fmt.Errorf("%w: vote entry for %q has no id", apperr.ParseError, voter.DisplayName)
	}
	cacheKey := "bioguide:" + voter.ID
	if chamber == domain.ChamberSenate {
		cacheKey = "lis:" + voter.ID
	}
	if cached, ok := v.legislators.Load(cacheKey); ok {
		return cached.(string), nil
	}

	newRow := domain.Legislator{
		ID:          newID(),
		DisplayName: voter.DisplayName,
		Party:       voter.Party,
		State:       voter.State,
		FirstName:   voter.FirstName,
		LastName:    voter.LastName,
	}
	var legislatorID string
	var err error
	if chamber == domain.ChamberSenate {
		id := voter.ID
		newRow.LISID = &id
		legislatorID, err = v.RS.GetOrCreateLegislatorByLIS(ctx, voter.ID, newRow)
	} else {
		id := voter.ID
		newRow.BioguideID = &id
		legislatorID, err = v.RS.GetOrCreateLegislatorByBioguide(ctx, voter.ID, newRow)
	}
	if err != nil {
		return "", err
	}
	v.legislators.Store(cacheKey, legislatorID)
	return legislatorID, nil
}

func (v *VoteIngester) IngestDirectory(ctx context.Context, dir string, opts Options) ([]Result, error) {
	files, err := listJSONFiles(dir, opts.Limit)
	if err != nil {
		return nil, err
	}
	return fanOutIngest(ctx, files, opts, v.IngestFile)
}
