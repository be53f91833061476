package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestTaskIDIsStableAndUnique(t *testing.T) {
	require.Equal(t, "batch1-0", taskID("batch1", 0))
	require.Equal(t, "batch1-7", taskID("batch1", 7))
	require.NotEqual(t, taskID("batch1", 1), taskID("batch1", 2))
}

func TestNewDefaultsWorkerCount(t *testing.T) {
	p := New(nil, 0, zerolog.Nop())
	require.Equal(t, 1, p.WorkerCount)
}
