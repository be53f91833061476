package domain

import "time"

// BatchStatus is the lifecycle state of an IngestionBatch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// TaskStatus is the lifecycle state of an IngestionTask.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IngestionBatch owns N tasks; its counters are derived from task terminal
// states, never incremented directly (safe under concurrent workers).
type IngestionBatch struct {
	ID        string
	Priority  int
	Status    BatchStatus
	CreatedAt time.Time
	Total     int
	Completed int
	Failed    int
}

// IngestionTask targets one document within a batch.
type IngestionTask struct {
	ID          string
	BatchID     string
	DocumentRef string // file path or external identifier for the target document
	Status      TaskStatus
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Error       *string
}
