package ingest

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polsearch/internal/chunker"
	"polsearch/internal/embedding"
	"polsearch/internal/store/columnar"
	"polsearch/internal/store/relational"
)

// Deps are the shared collaborators every per-variant ingester depends on.
type Deps struct {
	RS       *relational.Store
	CS       *columnar.Store
	Embedder embedding.Embedder
	Chunker  chunker.Options
	Log      zerolog.Logger
}

// Options controls one ingestion run.
type Options struct {
	Force      bool // delete-and-reinsert an existing document before proceeding
	YearFilter int  // 0 disables the filter
	Limit      int  // IngestDirectory: max files to process, 0 = unlimited
	Workers    int  // IngestDirectory: fan-out width, 0 = sequential
}

// Result is the per-file outcome returned by IngestFile. Err is set when the
// file failed (ParseError, EmbeddingFailed, etc.); a single
// file's failure is contained and does not stop a directory walk.
type Result struct {
	Path       string
	DocumentID string
	Skipped    bool
	Statements int
	Segments   int
	Err        error
}

// newID generates a time-ordered unique identifier (UUID v7).
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
