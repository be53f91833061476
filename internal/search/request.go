// Package search implements the hybrid search executor: mode dispatch,
// filter construction, score normalization, and pagination over the
// columnar store.
package search

import (
	"strings"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// Mode selects which retrieval strategy a request uses.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeVector Mode = "vector"
	ModeFts    Mode = "fts"
	ModePhrase Mode = "phrase"
)

const maxLimit = 100

// Request is one search invocation.
type Request struct {
	Query        string
	Mode         Mode
	ContentTypes []domain.ContentType
	Offset       int
	Limit        int
	Enrich       bool
	ContextSize  int // 0-10

	SpeakerLike   string
	CommitteeSlug string
	Chamber       domain.Chamber
	Congress      int
	FromDate      string
	ToDate        string
}

// Validate applies the request-shape invariants: a
// non-empty query, a recognized mode, limit within [1, 100], and context
// size within [0, 10].
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return apperr.Field("query", "must not be empty")
	}
	switch r.Mode {
	case ModeHybrid, ModeVector, ModeFts, ModePhrase:
	case "":
		r.Mode = ModeHybrid
	default:
		return apperr.Field("mode", "unrecognized mode "+string(r.Mode))
	}
	if r.Limit <= 0 {
		r.Limit = 20
	}
	if r.Limit > maxLimit {
		return apperr.Field("limit", "must be <= 100")
	}
	if r.Offset < 0 {
		return apperr.Field("offset", "must be >= 0")
	}
	if r.ContextSize < 0 || r.ContextSize > 10 {
		return apperr.Field("context_size", "must be within 0..10")
	}
	// "all" means no content-type predicate at all.
	for _, t := range r.ContentTypes {
		if t == domain.ContentAll {
			r.ContentTypes = nil
			break
		}
	}
	return nil
}

// Result is one ranked hit, in the wire shape returned to callers.
// ContentID and ContentIDStr carry the same value today (document ids are
// stored as strings end to end); both are kept on the wire for callers
// written against the older dual representation.
type Result struct {
	SegmentID    string             `json:"segment_id"`
	ContentID    string             `json:"content_id"`
	ContentIDStr string             `json:"content_id_str"`
	SegmentIndex int                `json:"segment_index"`
	StartTimeMs  int                `json:"start_time_ms"`
	EndTimeMs    int                `json:"end_time_ms"`
	Text         string             `json:"text"`
	Score        float64            `json:"score"`
	ContentType  domain.ContentType `json:"content_type"`
	SpeakerName  string             `json:"speaker_name,omitempty"`
	Title        string             `json:"title,omitempty"`
	Date         string             `json:"date,omitempty"`
	SourceURL    string             `json:"source_url,omitempty"`

	ContextBefore []string `json:"context_before"`
	ContextAfter  []string `json:"context_after"`
}

// Response is the full search outcome.
type Response struct {
	Query         string   `json:"query"`
	Mode          Mode     `json:"mode"`
	ModeUsed      Mode     `json:"mode_used"` // differs from Mode when FTS fallback triggered
	Results       []Result `json:"results"`
	TotalReturned int      `json:"total_returned"`
	HasMore       bool     `json:"has_more"`
	NextOffset    *int     `json:"next_offset,omitempty"`
}
