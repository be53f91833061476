package relational

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
)

// CreateBatch inserts a batch row and its N task rows in one transaction.
func (s *Store) CreateBatch(ctx context.Context, batch domain.IngestionBatch, tasks []domain.IngestionTask) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin batch tx: %v", apperr.StoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO ingestion_batches (id, priority, status, total_tasks)
VALUES ($1, $2, $3, $4)`,
		batch.ID, batch.Priority, string(domain.BatchPending), len(tasks))
	if err != nil {
		return fmt.Errorf("%w: insert batch: %v", apperr.StoreUnavailable, err)
	}

	b := &pgx.Batch{}
	for _, t := range tasks {
		b.Queue(`
INSERT INTO ingestion_tasks (id, batch_id, document_ref, status)
VALUES ($1, $2, $3, $4)`,
			t.ID, batch.ID, t.DocumentRef, string(domain.TaskQueued))
	}
	br := tx.SendBatch(ctx, b)
	for range tasks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("%w: insert tasks: %v", apperr.StoreUnavailable, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: close task batch: %v", apperr.StoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit batch tx: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// ClaimNextTask atomically claims the next queued task, ordered by
// (batch priority desc, batch created_at asc, task started_at asc nulls
// last), and marks it processing with started_at = now(). Returns
// (domain.IngestionTask{}, false, nil) when no task is claimable.
func (s *Store) ClaimNextTask(ctx context.Context) (domain.IngestionTask, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.IngestionTask{}, false, fmt.Errorf("%w: begin claim tx: %v", apperr.StoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var t domain.IngestionTask
	var status string
	err = tx.QueryRow(ctx, `
SELECT t.id, t.batch_id, t.document_ref, t.status, t.started_at, t.finished_at, t.error
FROM ingestion_tasks t
JOIN ingestion_batches b ON b.id = t.batch_id
WHERE t.status = 'queued'
ORDER BY b.priority DESC, b.created_at ASC, t.started_at ASC NULLS LAST
LIMIT 1
FOR UPDATE OF t SKIP LOCKED`,
	).Scan(&t.ID, &t.BatchID, &t.DocumentRef, &status, &t.StartedAt, &t.FinishedAt, &t.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IngestionTask{}, false, nil
	}
	if err != nil {
		return domain.IngestionTask{}, false, fmt.Errorf("%w: claim task: %v", apperr.StoreUnavailable, err)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE ingestion_tasks SET status = 'processing', started_at = $2 WHERE id = $1`, t.ID, now); err != nil {
		return domain.IngestionTask{}, false, fmt.Errorf("%w: mark processing: %v", apperr.StoreUnavailable, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE ingestion_batches SET status = 'running' WHERE id = $1 AND status = 'pending'`, t.BatchID); err != nil {
		return domain.IngestionTask{}, false, fmt.Errorf("%w: mark batch running: %v", apperr.StoreUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.IngestionTask{}, false, fmt.Errorf("%w: commit claim tx: %v", apperr.StoreUnavailable, err)
	}

	t.Status = domain.TaskProcessing
	t.StartedAt = &now
	return t, true, nil
}

// CompleteTask marks a task completed or failed and recomputes the owning
// batch's counters from task terminal states.
func (s *Store) CompleteTask(ctx context.Context, taskID string, failed bool, taskErr string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin complete tx: %v", apperr.StoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	status := string(domain.TaskCompleted)
	var errPtr *string
	if failed {
		status = string(domain.TaskFailed)
		errPtr = &taskErr
	}
	var batchID string
	now := time.Now().UTC()
	if err := tx.QueryRow(ctx,
		`UPDATE ingestion_tasks SET status = $2, finished_at = $3, error = $4 WHERE id = $1 RETURNING batch_id`,
		taskID, status, now, errPtr,
	).Scan(&batchID); err != nil {
		return fmt.Errorf("%w: complete task: %v", apperr.StoreUnavailable, err)
	}

	if err := recomputeBatchCounters(ctx, tx, batchID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit complete tx: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// recomputeBatchCounters derives completed/failed/status from terminal task
// states and writes them back. Batch completion: no pending (queued or
// processing) tasks and at least one terminal task.
func recomputeBatchCounters(ctx context.Context, tx pgx.Tx, batchID string) error {
	var completed, failedCount, pending int
	err := tx.QueryRow(ctx, `
SELECT
  count(*) FILTER (WHERE status = 'completed'),
  count(*) FILTER (WHERE status = 'failed'),
  count(*) FILTER (WHERE status IN ('queued', 'processing'))
FROM ingestion_tasks WHERE batch_id = $1`, batchID).Scan(&completed, &failedCount, &pending)
	if err != nil {
		return fmt.Errorf("%w: recompute batch counters: %v", apperr.StoreUnavailable, err)
	}

	status := string(domain.BatchRunning)
	if pending == 0 && (completed > 0 || failedCount > 0) {
		status = string(domain.BatchCompleted)
		if failedCount > 0 && completed == 0 {
			status = string(domain.BatchFailed)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE ingestion_batches SET completed_tasks = $2, failed_tasks = $3, status = $4 WHERE id = $1`,
		batchID, completed, failedCount, status,
	); err != nil {
		return fmt.Errorf("%w: update batch counters: %v", apperr.StoreUnavailable, err)
	}
	return nil
}

// RequeueStaleTasks resets tasks stuck in processing longer than threshold
// back to queued, for retry by a subsequent claim.
func (s *Store) RequeueStaleTasks(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	ct, err := s.pool.Exec(ctx, `
UPDATE ingestion_tasks SET status = 'queued', started_at = NULL
WHERE status = 'processing' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: requeue stale tasks: %v", apperr.StoreUnavailable, err)
	}
	return int(ct.RowsAffected()), nil
}

// GetBatch fetches a batch row by id, for status reporting.
func (s *Store) GetBatch(ctx context.Context, id string) (domain.IngestionBatch, error) {
	var b domain.IngestionBatch
	var status string
	err := s.pool.QueryRow(ctx, `
SELECT id, priority, status, created_at, total_tasks, completed_tasks, failed_tasks
FROM ingestion_batches WHERE id = $1`, id).
		Scan(&b.ID, &b.Priority, &status, &b.CreatedAt, &b.Total, &b.Completed, &b.Failed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IngestionBatch{}, fmt.Errorf("%w: batch %s", apperr.NotFound, id)
	}
	if err != nil {
		return domain.IngestionBatch{}, fmt.Errorf("%w: get batch: %v", apperr.StoreUnavailable, err)
	}
	b.Status = domain.BatchStatus(status)
	return b, nil
}

// ListBatchesByStatus returns batches in the given status, newest first.
// The per-batch counters were already derived from task terminal states by
// CompleteTask, so this is a plain read.
func (s *Store) ListBatchesByStatus(ctx context.Context, status domain.BatchStatus) ([]domain.IngestionBatch, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, priority, status, created_at, total_tasks, completed_tasks, failed_tasks
FROM ingestion_batches WHERE status = $1
ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list batches: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	var out []domain.IngestionBatch
	for rows.Next() {
		var b domain.IngestionBatch
		var st string
		if err := rows.Scan(&b.ID, &b.Priority, &st, &b.CreatedAt, &b.Total, &b.Completed, &b.Failed); err != nil {
			return nil, err
		}
		b.Status = domain.BatchStatus(st)
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountBatchesByStatus returns batch counts grouped by status.
func (s *Store) CountBatchesByStatus(ctx context.Context) (map[domain.BatchStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM ingestion_batches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: count batches: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	out := map[domain.BatchStatus]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[domain.BatchStatus(st)] = n
	}
	return out, rows.Err()
}

// CountTasksByStatus returns task counts grouped by status across all
// batches.
func (s *Store) CountTasksByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM ingestion_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: count tasks: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	out := map[domain.TaskStatus]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[domain.TaskStatus(st)] = n
	}
	return out, rows.Err()
}

// CountDocumentsByProcessed returns (processed, unprocessed) document counts
// for cmd/ingestctl stats reporting.
func (s *Store) CountDocumentsByProcessed(ctx context.Context) (processed, unprocessed int, err error) {
	err = s.pool.QueryRow(ctx, `
SELECT count(*) FILTER (WHERE is_processed), count(*) FILTER (WHERE NOT is_processed) FROM documents`,
	).Scan(&processed, &unprocessed)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count documents: %v", apperr.StoreUnavailable, err)
	}
	return processed, unprocessed, nil
}

// CountDocumentsByType returns per-content-type document counts.
func (s *Store) CountDocumentsByType(ctx context.Context) (map[domain.ContentType]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT content_type, count(*) FROM documents GROUP BY content_type`)
	if err != nil {
		return nil, fmt.Errorf("%w: count documents by type: %v", apperr.StoreUnavailable, err)
	}
	defer rows.Close()
	out := map[domain.ContentType]int{}
	for rows.Next() {
		var ct string
		var n int
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, err
		}
		out[domain.ContentType(ct)] = n
	}
	return out, rows.Err()
}
