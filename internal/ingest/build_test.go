package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/chunker"
)

func TestBuildStatementsAndSegmentsDropsProcedural(t *testing.T) {
	raw := []rawStatement{
		{SpeakerLabel: "Mr. Smith", Text: "Thank you, Mr. Chairman."},
		{SpeakerLabel: "Ms. Jones", Text: words(30)},
	}
	built := buildStatementsAndSegments("doc1", raw, chunker.DefaultOptions(), true)
	require.Len(t, built, 1)
	require.Equal(t, 1, built[0].statement.StatementIndex)
}

func TestBuildStatementsAndSegmentsAssignsDenseSegmentIndex(t *testing.T) {
	raw := []rawStatement{
		{SpeakerLabel: "A", Text: words(30)},
		{SpeakerLabel: "B", Text: words(30)},
	}
	built := buildStatementsAndSegments("doc1", raw, chunker.DefaultOptions(), true)
	require.Len(t, built, 2)
	require.Equal(t, 0, built[0].segments[0].SegmentIndex)
	require.Equal(t, 1, built[1].segments[0].SegmentIndex)
}

func TestBuildStatementsAndSegmentsOmitsTextWhenNotRetained(t *testing.T) {
	raw := []rawStatement{{SpeakerLabel: "A", Text: words(30)}}
	built := buildStatementsAndSegments("doc1", raw, chunker.DefaultOptions(), false)
	require.Nil(t, built[0].statement.Text)
}

func TestBuildStatementsAndSegmentsRetainsTextWhenRequested(t *testing.T) {
	raw := []rawStatement{{SpeakerLabel: "A", Text: words(30)}}
	built := buildStatementsAndSegments("doc1", raw, chunker.DefaultOptions(), true)
	require.NotNil(t, built[0].statement.Text)
}

func TestBuildStatementsAndSegmentsProducesContentSpeaker(t *testing.T) {
	raw := []rawStatement{{SpeakerLabel: "Ms. Jones", Text: words(30)}}
	built := buildStatementsAndSegments("doc1", raw, chunker.DefaultOptions(), true)
	require.Len(t, built, 1)
	require.Equal(t, "Ms. Jones", built[0].contentSpeaker.LocalSpeakerLabel)
	require.Equal(t, "doc1", built[0].contentSpeaker.DocumentID)
	require.Equal(t, built[0].statement.ID, built[0].contentSpeaker.StatementID)
	require.Nil(t, built[0].contentSpeaker.SpeakerID)
}

func TestParseDateRejectsBadFormat(t *testing.T) {
	_, err := parseDate("not-a-date")
	require.Error(t, err)
}

func TestDerivePageType(t *testing.T) {
	require.Equal(t, "H", derivePageType("CREC-2024-01-01-pt1-PgH123"))
	require.Equal(t, "S", derivePageType("CREC-2024-01-01-pt1-PgS456"))
	require.Equal(t, "E", derivePageType("CREC-2024-01-01-pt1-PgE789"))
	require.Equal(t, "H", derivePageType("CREC-unknown-format"))
}

// words returns a substantive (non-procedural) string of n words.
func words(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "word "
	}
	return s
}
