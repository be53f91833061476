package domain

// Speaker is a global speaker identity, formed by clustering per-document
// speaker embeddings (see internal/speaker).
type Speaker struct {
	ID               string
	Name             *string
	Slug             *string
	TotalAppearances int
	IsVerified       bool
	MergedIntoID     *string // forms a tombstone chain when duplicates are merged
}

// ContentSpeaker is a per-document speaker occurrence.
type ContentSpeaker struct {
	ID                string
	DocumentID        string
	StatementID       string
	LocalSpeakerLabel string
	SpeakerID         *string
	MatchConfidence   *float64
}

// SpeakerCentroid is the L2-normalized running-mean embedding for one global
// speaker, stored in the columnar store.
type SpeakerCentroid struct {
	SpeakerID   string
	Vector      []float32
	SampleCount int
}
