package enrich

import (
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/search"
)

func TestBoundsForSingleResult(t *testing.T) {
	results := []search.Result{{ContentID: "doc1", SegmentIndex: 10}}
	lo, hi := boundsFor(results, []int{0}, 2)
	require.Equal(t, 8, lo)
	require.Equal(t, 12, hi)
}

func TestBoundsForClampsBelowZero(t *testing.T) {
	results := []search.Result{{ContentID: "doc1", SegmentIndex: 1}}
	lo, hi := boundsFor(results, []int{0}, 5)
	require.Equal(t, 0, lo)
	require.Equal(t, 6, hi)
}

func TestBoundsForMergesMultipleResults(t *testing.T) {
	results := []search.Result{
		{ContentID: "doc1", SegmentIndex: 5},
		{ContentID: "doc1", SegmentIndex: 20},
	}
	lo, hi := boundsFor(results, []int{0, 1}, 1)
	require.Equal(t, 4, lo)
	require.Equal(t, 21, hi)
}

func TestUniqueContentIDsDeduplicates(t *testing.T) {
	results := []search.Result{
		{ContentID: "a"}, {ContentID: "b"}, {ContentID: "a"},
	}
	ids := uniqueContentIDs(results)
	require.ElementsMatch(t, []string{"a", "b"}, ids)
}
