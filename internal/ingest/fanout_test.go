package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanOutIngestContainsPerFileFailures(t *testing.T) {
	files := []string{"a.json", "b.json", "c.json"}
	ingestOne := func(ctx context.Context, path string, opts Options) (Result, error) {
		if path == "b.json" {
			return Result{}, errors.New("boom")
		}
		return Result{DocumentID: path}, nil
	}

	results, err := fanOutIngest(context.Background(), files, Options{Workers: 2}, ingestOne)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Nil(t, results[0].Err)
	require.Equal(t, "a.json", results[0].DocumentID)
	require.Error(t, results[1].Err)
	require.Nil(t, results[2].Err)
	require.Equal(t, "c.json", results[2].DocumentID)
}

func TestFanOutIngestStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ingestOne := func(ctx context.Context, path string, opts Options) (Result, error) {
		return Result{DocumentID: path}, ctx.Err()
	}

	_, err := fanOutIngest(ctx, []string{"a.json"}, Options{Workers: 1}, ingestOne)
	require.Error(t, err)
}
