// Package scheduler runs the ingestion batch/task worker pool over the
// relational store's claim/complete primitives: a pool of goroutines each
// polling for the next claimable task, processing it, and recording the
// outcome.
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polsearch/internal/domain"
	"polsearch/internal/store/relational"
)

// TaskHandler processes one claimed task's document_ref (typically a file
// path) and returns an error to mark the task failed.
type TaskHandler func(ctx context.Context, task domain.IngestionTask) error

// Pool runs workerCount goroutines pulling from RS's claim queue: Run polls
// until the context is canceled, Drain returns once no tasks remain.
type Pool struct {
	RS           *relational.Store
	WorkerCount  int
	PollInterval time.Duration
	Log          zerolog.Logger
}

func New(rs *relational.Store, workerCount int, log zerolog.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{RS: rs, WorkerCount: workerCount, PollInterval: 500 * time.Millisecond, Log: log}
}

// CreateBatch enqueues a new ingestion batch of tasks, one per document_ref,
// at the given priority.
func (p *Pool) CreateBatch(ctx context.Context, id string, priority int, documentRefs []string) error {
	tasks := make([]domain.IngestionTask, len(documentRefs))
	for i, ref := range documentRefs {
		tasks[i] = domain.IngestionTask{ID: taskID(id, i), DocumentRef: ref, Status: domain.TaskQueued}
	}
	batch := domain.IngestionBatch{ID: id, Priority: priority, Status: domain.BatchPending, Total: len(tasks)}
	return p.RS.CreateBatch(ctx, batch, tasks)
}

func taskID(batchID string, i int) string {
	return batchID + "-" + strconv.Itoa(i)
}

// Run starts workerCount goroutines, each looping: claim a task, run
// handle, complete it. Run blocks until ctx is canceled; on cancellation it
// waits for in-flight handlers to return before returning.
func (p *Pool) Run(ctx context.Context, handle TaskHandler) {
	var wg sync.WaitGroup
	wg.Add(p.WorkerCount)
	for i := 0; i < p.WorkerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			p.runWorker(ctx, workerID, handle)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, workerID int, handle TaskHandler) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok, err := p.RS.ClaimNextTask(ctx)
		if err != nil {
			p.Log.Error().Err(err).Int("worker", workerID).Msg("claim task")
			sleepOrDone(ctx, interval)
			continue
		}
		if !ok {
			sleepOrDone(ctx, interval)
			continue
		}

		err = handle(ctx, task)
		failed := err != nil
		var errMsg string
		if failed {
			errMsg = err.Error()
			p.Log.Warn().Str("task", task.ID).Err(err).Msg("ingestion task failed")
		}
		if cerr := p.RS.CompleteTask(ctx, task.ID, failed, errMsg); cerr != nil {
			p.Log.Error().Err(cerr).Str("task", task.ID).Msg("complete task")
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Drain runs workerCount goroutines claiming and handling tasks until the
// queue is empty (ClaimNextTask returns no task) or ctx is canceled, then
// returns. Unlike Run, it does not poll indefinitely: it is meant for batch
// CLI invocations where the full task set is enqueued up front and the
// process should exit once drained, rather than a long-running server.
func (p *Pool) Drain(ctx context.Context, handle TaskHandler) (completed, failed int) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(p.WorkerCount)
	for i := 0; i < p.WorkerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				task, ok, err := p.RS.ClaimNextTask(ctx)
				if err != nil {
					p.Log.Error().Err(err).Int("worker", workerID).Msg("claim task")
					return
				}
				if !ok {
					return
				}
				err = handle(ctx, task)
				taskFailed := err != nil
				var errMsg string
				if taskFailed {
					errMsg = err.Error()
					p.Log.Warn().Str("task", task.ID).Err(err).Msg("ingestion task failed")
				}
				if cerr := p.RS.CompleteTask(ctx, task.ID, taskFailed, errMsg); cerr != nil {
					p.Log.Error().Err(cerr).Str("task", task.ID).Msg("complete task")
				}
				mu.Lock()
				if taskFailed {
					failed++
				} else {
					completed++
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return completed, failed
}

// RequeueStale resets tasks stuck in processing past threshold back to
// queued, meant to run periodically alongside the worker pool.
func (p *Pool) RequeueStale(ctx context.Context, threshold time.Duration) (int, error) {
	return p.RS.RequeueStaleTasks(ctx, threshold)
}
