// Package enrich implements result enrichment: batched relational metadata
// joins, speaker label resolution, and context window expansion over the
// columnar store.
package enrich

import (
	"context"

	"polsearch/internal/search"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

// Enricher joins search.Result rows against RS metadata and, when requested,
// expands their surrounding context from CS.
type Enricher struct {
	RS *relational.Store
	CS *columnar.Store
}

func New(rs *relational.Store, cs *columnar.Store) *Enricher {
	return &Enricher{RS: rs, CS: cs}
}

// Enrich fills in title/date/source_url and speaker name for every result
// in results, and expands each
// result's context window by contextSize segments on either side when
// contextSize > 0.
func (e *Enricher) Enrich(ctx context.Context, results []search.Result, contextSize int) error {
	if len(results) == 0 {
		return nil
	}

	if err := e.joinMetadata(ctx, results); err != nil {
		return err
	}
	if err := e.joinSpeakerNames(ctx, results); err != nil {
		return err
	}
	if contextSize > 0 {
		if err := e.expandContext(ctx, results, contextSize); err != nil {
			return err
		}
	}
	return nil
}

// joinMetadata batch-fetches document metadata by content_id, falling back
// to external-id lookup for content_ids that did not resolve (rows written
// before content_id was standardized on the internal document id).
func (e *Enricher) joinMetadata(ctx context.Context, results []search.Result) error {
	ids := uniqueContentIDs(results)
	byID, err := e.RS.MetadataByIDs(ctx, ids)
	if err != nil {
		return err
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	var byExternal map[string]relational.DocumentMeta
	if len(missing) > 0 {
		byExternal, err = e.RS.MetadataByExternalIDs(ctx, missing)
		if err != nil {
			return err
		}
	}

	for i := range results {
		r := &results[i]
		m, ok := byID[r.ContentID]
		if !ok {
			m, ok = byExternal[r.ContentID]
		}
		if !ok {
			continue
		}
		r.Title = m.Title
		r.Date = m.Date
		r.SourceURL = m.SourceURL
	}
	return nil
}

// joinSpeakerNames overwrites each result's CS-denormalized speaker_name
// with the authoritative RS name, when the statement's speaker has been
// resolved to a global speaker after the columnar row was written.
func (e *Enricher) joinSpeakerNames(ctx context.Context, results []search.Result) error {
	var segmentIDs []string
	for _, r := range results {
		if r.SegmentID != "" {
			segmentIDs = append(segmentIDs, r.SegmentID)
		}
	}
	if len(segmentIDs) == 0 {
		return nil
	}
	bySegment, err := e.RS.SpeakerLabelsForSegments(ctx, segmentIDs)
	if err != nil {
		return err
	}

	var speakerIDs []string
	seen := map[string]bool{}
	for _, ss := range bySegment {
		if ss.SpeakerID != nil && !seen[*ss.SpeakerID] {
			seen[*ss.SpeakerID] = true
			speakerIDs = append(speakerIDs, *ss.SpeakerID)
		}
	}
	names, err := e.RS.SpeakerNamesByIDs(ctx, speakerIDs)
	if err != nil {
		return err
	}

	for i := range results {
		r := &results[i]
		ss, ok := bySegment[r.SegmentID]
		if !ok {
			continue
		}
		if r.SpeakerName == "" {
			r.SpeakerName = ss.SpeakerLabel
		}
		if ss.SpeakerID != nil {
			if name, ok := names[*ss.SpeakerID]; ok {
				r.SpeakerName = name
			}
		}
	}
	return nil
}

func uniqueContentIDs(results []search.Result) []string {
	seen := make(map[string]bool, len(results))
	var ids []string
	for _, r := range results {
		if !seen[r.ContentID] {
			seen[r.ContentID] = true
			ids = append(ids, r.ContentID)
		}
	}
	return ids
}

// expandContext fetches the [segment_index-K, segment_index+K] window for
// each result from CS and splits it into context_before/context_after,
// grouping fetches per document so a result-dense page costs one CS round
// trip per document, not per result.
func (e *Enricher) expandContext(ctx context.Context, results []search.Result, k int) error {
	byDoc := make(map[string][]int) // documentID -> result indices
	for i, r := range results {
		byDoc[r.ContentID] = append(byDoc[r.ContentID], i)
	}

	for docID, idxs := range byDoc {
		lo, hi := boundsFor(results, idxs, k)
		rows, err := e.CS.ContextRange(ctx, docID, lo, hi)
		if err != nil {
			return err
		}
		textByIndex := make(map[int]string, len(rows))
		for _, row := range rows {
			textByIndex[row.SegmentIndex] = row.Text
		}
		for _, i := range idxs {
			r := &results[i]
			for s := r.SegmentIndex - k; s < r.SegmentIndex; s++ {
				if t, ok := textByIndex[s]; ok {
					r.ContextBefore = append(r.ContextBefore, t)
				}
			}
			for s := r.SegmentIndex + 1; s <= r.SegmentIndex+k; s++ {
				if t, ok := textByIndex[s]; ok {
					r.ContextAfter = append(r.ContextAfter, t)
				}
			}
		}
	}
	return nil
}

func boundsFor(results []search.Result, idxs []int, k int) (int, int) {
	lo, hi := results[idxs[0]].SegmentIndex-k, results[idxs[0]].SegmentIndex+k
	for _, i := range idxs[1:] {
		si := results[i].SegmentIndex
		if si-k < lo {
			lo = si - k
		}
		if si+k > hi {
			hi = si + k
		}
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}
