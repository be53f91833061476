package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministicEmbedderIsNormalizedAndStable(t *testing.T) {
	e := NewDeterministic(32, 7)
	ctx := context.Background()
	a, err := e.EmbedBatch(ctx, []string{"the committee held a hearing"})
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, a[0], 32)

	var sum float64
	for _, x := range a[0] {
		sum += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)

	b, err := e.EmbedBatch(ctx, []string{"the committee held a hearing"})
	require.NoError(t, err)
	require.Equal(t, a[0], b[0])
}

func TestDeterministicEmbedderDiffersByInput(t *testing.T) {
	e := NewDeterministic(32, 7)
	ctx := context.Background()
	a, _ := e.EmbedBatch(ctx, []string{"hearing on appropriations"})
	b, _ := e.EmbedBatch(ctx, []string{"floor speech on trade policy"})
	require.NotEqual(t, a[0], b[0])
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	e := NewDeterministic(16, 0)
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, out)
}
