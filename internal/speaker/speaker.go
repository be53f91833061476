// Package speaker implements speaker identity resolution: nearest-
// centroid matching, running-mean centroid updates, and tombstone-chain
// merges.
package speaker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
	"polsearch/internal/embedding"
	"polsearch/internal/store/relational"
)

// CentroidIndex is the nearest-neighbor backend for speaker centroids.
// internal/store/columnar.Store satisfies this directly (ClickHouse);
// internal/store/columnar.QdrantCentroidIndex is the alternate backend
// selected by SPEAKER_INDEX_BACKEND=qdrant.
type CentroidIndex interface {
	NearestCentroid(ctx context.Context, v []float32) (domain.SpeakerCentroid, float64, bool, error)
	UpsertCentroid(ctx context.Context, speakerID string, vector []float32, sampleCount int) error
}

// EmbeddingRecorder persists the raw per-occurrence embedding behind a
// centroid update (speaker_embeddings), independent of which
// CentroidIndex backend is serving nearest-neighbor lookups.
type EmbeddingRecorder interface {
	WriteSpeakerEmbedding(ctx context.Context, contentSpeakerID, speakerID string, vector []float32) error
}

func newSpeakerID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// matchThreshold is the cosine-distance cutoff below which a new embedding
// is considered the same speaker as the nearest centroid.
const matchThreshold = 0.3

// Resolver links per-document speaker occurrences to global speaker
// identities.
type Resolver struct {
	RS *relational.Store
	CS CentroidIndex
	// Embeddings is optional; when set, Resolve also records the raw
	// per-occurrence embedding behind each centroid update. New sets it to CS
	// when CS itself implements EmbeddingRecorder (the ClickHouse-native
	// path); otherwise it stays nil unless the caller sets it.
	Embeddings EmbeddingRecorder
}

func New(rs *relational.Store, cs CentroidIndex) *Resolver {
	r := &Resolver{RS: rs, CS: cs}
	if er, ok := cs.(EmbeddingRecorder); ok {
		r.Embeddings = er
	}
	return r
}

// Outcome describes what Resolve did: matched an existing speaker or
// created a new one.
type Outcome struct {
	SpeakerID  string
	Matched    bool
	Confidence float64
}

// Resolve links one content_speaker row to a global speaker given its
// per-document embedding v (L2-normalized), creating a new speaker identity
// when no centroid is within matchThreshold.
func (r *Resolver) Resolve(ctx context.Context, contentSpeakerID string, v []float32) (Outcome, error) {
	centroid, distance, found, err := r.CS.NearestCentroid(ctx, v)
	if err != nil {
		return Outcome{}, err
	}

	if found && distance < matchThreshold {
		confidence := 1 - distance
		if err := r.RS.LinkContentSpeaker(ctx, contentSpeakerID, centroid.SpeakerID, confidence); err != nil {
			return Outcome{}, err
		}
		if err := r.RS.IncrementAppearances(ctx, centroid.SpeakerID); err != nil {
			return Outcome{}, err
		}
		updated := runningMean(centroid.Vector, centroid.SampleCount, v)
		if err := r.CS.UpsertCentroid(ctx, centroid.SpeakerID, updated, centroid.SampleCount+1); err != nil {
			return Outcome{}, err
		}
		if r.Embeddings != nil {
			if err := r.Embeddings.WriteSpeakerEmbedding(ctx, contentSpeakerID, centroid.SpeakerID, v); err != nil {
				return Outcome{}, err
			}
		}
		return Outcome{SpeakerID: centroid.SpeakerID, Matched: true, Confidence: confidence}, nil
	}

	newID := newSpeakerID()
	if err := r.RS.InsertSpeaker(ctx, domain.Speaker{ID: newID, TotalAppearances: 1}); err != nil {
		return Outcome{}, err
	}
	if err := r.RS.LinkContentSpeaker(ctx, contentSpeakerID, newID, 1.0); err != nil {
		return Outcome{}, err
	}
	if err := r.CS.UpsertCentroid(ctx, newID, v, 1); err != nil {
		return Outcome{}, err
	}
	if r.Embeddings != nil {
		if err := r.Embeddings.WriteSpeakerEmbedding(ctx, contentSpeakerID, newID, v); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{SpeakerID: newID, Matched: false, Confidence: 1.0}, nil
}

// runningMean applies the incremental centroid update rule:
// new_centroid = normalize((old*sample_count + v) / (sample_count+1)).
func runningMean(old []float32, sampleCount int, v []float32) []float32 {
	out := make([]float32, len(old))
	n := float32(sampleCount)
	for i := range out {
		out[i] = (old[i]*n + v[i]) / (n + 1)
	}
	embedding.Normalize(out)
	return out
}

// Merge folds fromID's identity into intoID via the tombstone
// chain. Centroids are not merged; the canonical speaker's centroid is left
// as-is and future resolutions accumulate onto it.
func (r *Resolver) Merge(ctx context.Context, fromID, intoID string) error {
	return r.RS.MergeSpeaker(ctx, fromID, intoID)
}

// BackfillUnresolved resolves a batch of previously-unresolved
// content_speakers rows against an embedder-produced per-document speaker
// embedding, for the speaker backfill batch operation.
// embedFor must return an L2-normalized embedding for the given local
// speaker label and document id.
func (r *Resolver) BackfillUnresolved(ctx context.Context, limit int, embedFor func(ctx context.Context, cs domain.ContentSpeaker) ([]float32, error)) (int, error) {
	rows, err := r.RS.UnresolvedContentSpeakers(ctx, limit)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, cs := range rows {
		v, err := embedFor(ctx, cs)
		if err != nil {
			return resolved, fmt.Errorf("%w: backfill embed: %v", apperr.EmbeddingFailed, err)
		}
		if _, err := r.Resolve(ctx, cs.ID, v); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

