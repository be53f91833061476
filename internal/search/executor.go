package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polsearch/internal/apperr"
	"polsearch/internal/embedding"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

// Executor runs mode dispatch against the relational and columnar
// stores. The embedder is shared and guarded by a mutex, matching its
// concurrency contract.
type Executor struct {
	RS      *relational.Store
	CS      *columnar.Store
	mu      sync.Mutex
	Embed   embedding.Embedder
	Timeout time.Duration
	Log     zerolog.Logger
}

func New(rs *relational.Store, cs *columnar.Store, embed embedding.Embedder, timeout time.Duration, log zerolog.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{RS: rs, CS: cs, Embed: embed, Timeout: timeout, Log: log}
}

// Search runs one request end to end: filter construction, mode dispatch,
// score normalization, and pagination.
func (e *Executor) Search(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	filter, err := e.buildFilter(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if filter.skip {
		return Response{Query: req.Query, Mode: req.Mode, ModeUsed: req.Mode, Results: []Result{}}, nil
	}

	fetchLimit := req.Offset + req.Limit + 1
	hits, modeUsed, err := e.dispatch(ctx, req, filter.cs, fetchLimit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("%w: search exceeded %s budget", apperr.Timeout, e.Timeout)
		}
		return Response{}, err
	}

	results := normalize(hits, modeUsed)
	return paginate(req, modeUsed, results), nil
}

// structuralFilter is the outcome of converting RS structural predicates
// (committee/chamber/congress/date range) into a CS content_id set. When the
// structural filter matches zero documents, skip is set and retrieval is
// short-circuited (an empty RS match set is a meaningful, not an error,
// answer).
type structuralFilter struct {
	cs   columnar.Filter
	skip bool
}

func (e *Executor) buildFilter(ctx context.Context, req Request) (structuralFilter, error) {
	cs := columnar.Filter{
		ContentTypes: req.ContentTypes,
		SpeakerLike:  req.SpeakerLike,
	}

	needsStructural := req.CommitteeSlug != "" || req.Chamber != "" || req.Congress != 0 || req.FromDate != "" || req.ToDate != ""
	if !needsStructural {
		return structuralFilter{cs: cs}, nil
	}

	ids, err := e.RS.FilterIDs(ctx, relational.DocumentFilter{
		ContentTypes:  req.ContentTypes,
		Chamber:       req.Chamber,
		CommitteeSlug: req.CommitteeSlug,
		Congress:      req.Congress,
		FromDate:      req.FromDate,
		ToDate:        req.ToDate,
	})
	if err != nil {
		return structuralFilter{}, err
	}
	if len(ids) == 0 {
		return structuralFilter{skip: true}, nil
	}
	cs.ContentIDs = ids
	return structuralFilter{cs: cs}, nil
}

func (e *Executor) dispatch(ctx context.Context, req Request, filter columnar.Filter, limit int) ([]columnar.Hit, Mode, error) {
	switch req.Mode {
	case ModePhrase:
		hits, err := e.CS.PhraseSearch(ctx, req.Query, filter, limit)
		return hits, ModePhrase, err
	case ModeVector:
		v, err := e.embedQuery(ctx, req.Query)
		if err != nil {
			return nil, ModeVector, err
		}
		hits, err := e.CS.VectorSearch(ctx, v, filter, limit)
		return hits, ModeVector, err
	case ModeFts:
		hits, err := e.CS.FtsSearch(ctx, req.Query, filter, limit)
		if errors.Is(err, apperr.IndexMissing) {
			return e.fallbackToVector(ctx, req, filter, limit)
		}
		return hits, ModeFts, err
	case ModeHybrid:
		v, err := e.embedQuery(ctx, req.Query)
		if err != nil {
			return nil, ModeHybrid, err
		}
		hits, err := e.CS.HybridSearch(ctx, req.Query, v, filter, limit)
		if errors.Is(err, apperr.IndexMissing) {
			hits, err := e.CS.VectorSearch(ctx, v, filter, limit)
			return hits, ModeVector, err
		}
		return hits, ModeHybrid, err
	default:
		return nil, req.Mode, apperr.Field("mode", "unrecognized mode "+string(req.Mode))
	}
}

// fallbackToVector handles an Fts request whose FTS index is unusable:
// fall back to Vector mode and annotate
// mode_used accordingly.
func (e *Executor) fallbackToVector(ctx context.Context, req Request, filter columnar.Filter, limit int) ([]columnar.Hit, Mode, error) {
	v, err := e.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, ModeVector, err
	}
	hits, err := e.CS.VectorSearch(ctx, v, filter, limit)
	return hits, ModeVector, err
}

func (e *Executor) embedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vecs, err := e.Embed.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", apperr.EmbeddingFailed, err)
	}
	return vecs[0], nil
}

// normalize maps each hit's raw distance/score into [0, 1] using the
// mode-specific formula. A single cross-mode relevance number is
// intentionally avoided; the underlying distributions differ too much to
// fuse after retrieval.
func normalize(hits []columnar.Hit, mode Mode) []Result {
	var maxScore float64
	if mode == ModeFts {
		for _, h := range hits {
			if h.Score > maxScore {
				maxScore = h.Score
			}
		}
	}

	out := make([]Result, len(hits))
	for i, h := range hits {
		r := Result{
			SegmentID:    h.ID,
			ContentID:    h.ContentID,
			ContentIDStr: h.ContentID,
			SegmentIndex: h.SegmentIndex,
			StartTimeMs:  h.StartTimeMs,
			EndTimeMs:    h.EndTimeMs,
			Text:         h.Text,
			ContentType:  h.ContentType,
			SpeakerName:  h.SpeakerName,
		}
		switch mode {
		case ModeHybrid:
			r.Score = clamp(h.Score/0.05, 0, 1)
		case ModeVector:
			r.Score = clamp(1-h.Distance/2, 0, 1)
		case ModeFts:
			if maxScore > 0 {
				r.Score = clamp(h.Score/maxScore, 0, 1)
			}
		case ModePhrase:
			r.Score = 1.0
		}
		out[i] = r
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// paginate applies the offset/has_more/next_offset rule to an
// over-fetched result slice (fetched with limit = offset+limit+1).
func paginate(req Request, modeUsed Mode, results []Result) Response {
	// Results is always a non-nil slice so the wire shape is [] rather than
	// null for empty pages.
	resp := Response{Query: req.Query, Mode: req.Mode, ModeUsed: modeUsed, Results: []Result{}}

	if req.Offset >= len(results) {
		resp.TotalReturned = 0
		resp.HasMore = false
		return resp
	}

	remaining := results[req.Offset:]
	hasMore := len(remaining) > req.Limit
	if hasMore {
		remaining = remaining[:req.Limit]
	}
	resp.Results = remaining
	resp.TotalReturned = len(remaining)
	resp.HasMore = hasMore
	if hasMore {
		next := req.Offset + req.Limit
		resp.NextOffset = &next
	}
	return resp
}
