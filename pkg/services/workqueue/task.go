package workqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task is a unit of background work, e.g. one generation job.
type Task interface {
	// ID is unique per enqueued task.
	ID() string
	// Name identifies the work for logs and the admin queue view.
	Name() string
	// Execute runs the task. ctx is cancelled when the queue shuts down
	// without enough grace time.
	Execute(ctx context.Context) error
}

// Dropper is implemented by tasks that need cleanup when they are
// discarded from the backlog without running.
type Dropper interface {
	OnDrop()
}

// TaskState tracks one task through the queue. Safe for concurrent use.
type TaskState struct {
	Task Task

	mu          sync.RWMutex
	status      TaskStatus
	enqueuedAt  time.Time
	startedAt   *time.Time
	completedAt *time.Time
	err         error
	retries     int
}

// NewTaskState wraps task as pending, enqueued now.
func NewTaskState(task Task) *TaskState {
	return &TaskState{
		Task:       task,
		status:     TaskStatusPending,
		enqueuedAt: time.Now(),
	}
}

// SetStatus moves the task to status and stamps start or completion time.
func (ts *TaskState) SetStatus(status TaskStatus) {
	ts.finish(status, nil)
}

// Fail marks the task failed with err.
func (ts *TaskState) Fail(err error) {
	ts.finish(TaskStatusFailed, err)
}

func (ts *TaskState) finish(status TaskStatus, err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	ts.status = status
	if err != nil {
		ts.err = err
	}
	switch status {
	case TaskStatusRunning:
		ts.startedAt = &now
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		ts.completedAt = &now
	}
}

// IncrementRetryCount records another attempt and returns the new count.
func (ts *TaskState) IncrementRetryCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.retries++
	return ts.retries
}

// RetryCount returns the number of retries so far.
func (ts *TaskState) RetryCount() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.retries
}

// Snapshot returns a copy of the task state for reporting.
func (ts *TaskState) Snapshot() TaskSnapshot {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	snap := TaskSnapshot{
		ID:          ts.Task.ID(),
		Name:        ts.Task.Name(),
		Status:      ts.status,
		RetryCount:  ts.retries,
		EnqueuedAt:  ts.enqueuedAt,
		StartedAt:   ts.startedAt,
		CompletedAt: ts.completedAt,
	}
	if ts.err != nil {
		snap.Error = ts.err.Error()
	}
	// Time spent waiting for a worker; still growing while pending.
	if ts.startedAt != nil {
		snap.WaitMillis = ts.startedAt.Sub(ts.enqueuedAt).Milliseconds()
	} else {
		snap.WaitMillis = time.Since(ts.enqueuedAt).Milliseconds()
	}
	return snap
}

// TaskSnapshot is a point-in-time view of a task, served by the admin API.
type TaskSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	RetryCount  int        `json:"retry_count"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	WaitMillis  int64      `json:"wait_ms"`
	Error       string     `json:"error,omitempty"`
}

// BaseTask supplies ID and Name; embed it in concrete tasks.
type BaseTask struct {
	id   string
	name string
}

// NewBaseTask creates a base task with a random ID.
func NewBaseTask(name string) BaseTask {
	return BaseTask{id: uuid.NewString(), name: name}
}

func (t BaseTask) ID() string   { return t.id }
func (t BaseTask) Name() string { return t.name }
