package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The boundary search window for the first chunk is [1300, 1500), which holds
// no terminator here, so the first chunk is a hard cut at 1500 and the
// remainder fits in a second chunk.
func TestChunkLongSentenceSplitsIntoTwoChunks(t *testing.T) {
	text := "A. " + strings.Repeat("x", 1600) + ". B."
	chunks := Chunk(text, Options{MaxChars: 1500, OverlapRatio: 0.1})
	require.Len(t, chunks, 2)
	require.True(t, strings.HasPrefix(chunks[0], "A."))
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunk("Short statement about the budget resolution.", DefaultOptions())
	require.Equal(t, []string{"Short statement about the budget resolution."}, chunks)
}

func TestChunkEmptyText(t *testing.T) {
	require.Nil(t, Chunk("   ", DefaultOptions()))
}

func TestChunkCoversEntireInputWithOverlap(t *testing.T) {
	text := strings.Repeat("The witness testified at length about appropriations. ", 200)
	chunks := Chunk(text, Options{MaxChars: 1500, OverlapRatio: 0.1})
	require.Greater(t, len(chunks), 1)
	last := chunks[len(chunks)-1]
	require.True(t, strings.HasSuffix(strings.TrimSpace(text), strings.TrimSpace(last)))
}

func TestChunkHardCutWhenNoSentenceBoundary(t *testing.T) {
	text := strings.Repeat("x", 4000)
	chunks := Chunk(text, Options{MaxChars: 1500, OverlapRatio: 0.1})
	require.Greater(t, len(chunks), 1)
	require.Len(t, chunks[0], 1500)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 1500)
	}
}

func TestChunkOverlapIsBounded(t *testing.T) {
	text := "A. " + strings.Repeat("x", 1600) + ". B."
	chunks := Chunk(text, Options{MaxChars: 1500, OverlapRatio: 0.1})
	require.Len(t, chunks, 2)
	// The second chunk re-starts at most maxChars*overlapRatio characters
	// before the first chunk's end.
	end1 := strings.Index(text, chunks[0]) + len(chunks[0])
	start2 := strings.Index(text, chunks[1])
	require.GreaterOrEqual(t, start2, end1-150)
	require.Less(t, start2, end1)
}

func TestIsProceduralDropsBoilerplate(t *testing.T) {
	require.True(t, IsProcedural("Thank you."))
	require.True(t, IsProcedural("I yield back the balance of my time."))
	require.True(t, IsProcedural("Without objection, so ordered."))
}

func TestIsProceduralKeepsSubstance(t *testing.T) {
	text := "The committee has reviewed the proposed infrastructure funding bill and found significant concerns regarding the allocation formula used for rural broadband expansion."
	require.False(t, IsProcedural(text))
}

func TestIsAdministrativeTitle(t *testing.T) {
	require.True(t, IsAdministrativeTitle("PRAYER"))
	require.True(t, IsAdministrativeTitle("Daily Digest"))
	require.True(t, IsAdministrativeTitle("FrontMatter1"))
	require.False(t, IsAdministrativeTitle("Statements on Introduced Bills and Joint Resolutions"))
}
