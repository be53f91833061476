package speaker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/embedding"
)

// TestRunningMeanIncrementalUpdate: centroid
// c0 with sample_count=3 and a new vector v, expected result
// normalize((c0*3 + v)/4).
func TestRunningMeanIncrementalUpdate(t *testing.T) {
	c0 := []float32{1, 0, 0}
	v := []float32{0, 1, 0}

	got := runningMean(c0, 3, v)

	want := []float32{3.0 / 4, 1.0 / 4, 0}
	embedding.Normalize(want)

	require.Len(t, got, 3)
	for i := range got {
		require.InDelta(t, float64(want[i]), float64(got[i]), 1e-6)
	}
}

func TestRunningMeanIsNormalized(t *testing.T) {
	c0 := []float32{1, 0}
	v := []float32{0, 1}
	got := runningMean(c0, 1, v)

	var sumSq float64
	for _, x := range got {
		sumSq += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sumSq, 1e-6)
}
