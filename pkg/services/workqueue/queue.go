package workqueue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/retry"
)

// RetryConfig configures retry behavior for failed tasks.
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration (cap)
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig disables task-level retries. A generation job that
// fails outside its per-unit isolation is marked failed and left for the
// caller to regenerate.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     0,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// DefaultDrainGrace bounds how long Shutdown waits, after its deadline, for
// cancelled tasks to record their failure.
const DefaultDrainGrace = 10 * time.Second

// Config sizes a Queue.
type Config struct {
	// Workers is the number of tasks run concurrently.
	Workers int
	// Capacity is the number of tasks that may wait for a worker.
	Capacity int
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Workers   int  `json:"workers"`
	Capacity  int  `json:"capacity"`
	Queued    int  `json:"queued"`
	Running   int  `json:"running"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Cancelled int  `json:"cancelled"`
	Closed    bool `json:"closed"`
}

// Queue runs tasks on a fixed number of workers with a bounded backlog.
// Enqueue never blocks: when the backlog is full it returns
// apperrors.ErrQueueFull so callers can shed load.
type Queue struct {
	mu      sync.Mutex
	pending []*TaskState
	running map[string]*TaskState
	closed  bool

	capacity int
	workers  int
	strategy ConcurrencyStrategy

	retryConfig RetryConfig
	drainGrace  time.Duration

	completed int
	failed    int
	cancelled int

	// idle is closed whenever nothing is pending or running
	idle chan struct{}

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithDrainGrace overrides DefaultDrainGrace.
func WithDrainGrace(d time.Duration) QueueOption {
	return func(q *Queue) {
		q.drainGrace = d
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(config RetryConfig) QueueOption {
	return func(q *Queue) {
		q.retryConfig = config
	}
}

// New creates a queue. Workers and Capacity below 1 are raised to 1.
func New(cfg Config, logger *zap.Logger, opts ...QueueOption) *Queue {
	cfg.Workers = max(cfg.Workers, 1)
	cfg.Capacity = max(cfg.Capacity, 1)

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	q := &Queue{
		running:     make(map[string]*TaskState),
		capacity:    cfg.Capacity,
		workers:     cfg.Workers,
		strategy:    NewThrottledStrategy(cfg.Workers),
		retryConfig: DefaultRetryConfig(),
		drainGrace:  DefaultDrainGrace,
		idle:        idle,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task. It returns apperrors.ErrQueueFull when the backlog
// is at capacity and apperrors.ErrQueueClosed after Shutdown.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return apperrors.ErrQueueClosed
	}
	if len(q.pending) >= q.capacity {
		q.logger.Warn("queue full, rejecting task",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()),
			zap.Int("capacity", q.capacity))
		return apperrors.ErrQueueFull
	}

	q.resetIdleLocked()
	q.pending = append(q.pending, NewTaskState(task))

	q.logger.Info("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.Int("queued", len(q.pending)))

	q.tryStartTasksLocked()
	return nil
}

// tryStartTasksLocked starts pending tasks in FIFO order while the strategy allows.
// Must be called with lock held.
func (q *Queue) tryStartTasksLocked() {
	for len(q.pending) > 0 && q.strategy.CanStart() {
		ts := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		q.strategy.OnStart()
		ts.SetStatus(TaskStatusRunning)
		q.running[ts.Task.ID()] = ts

		q.logger.Debug("starting task",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))

		go q.runTask(ts)
	}
}

// runTask executes a task with retry logic for transient errors.
func (q *Queue) runTask(ts *TaskState) {
	var lastErr error

	for attempt := 0; attempt <= q.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := q.calculateBackoff(attempt)
			q.logger.Info("retrying task after backoff",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))

			select {
			case <-q.ctx.Done():
				q.completeTask(ts, q.ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		err := q.execute(ts)
		if err == nil {
			q.completeTask(ts, nil)
			return
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			break
		}
		if !retry.IsRetryable(err) {
			break
		}
		if attempt < q.retryConfig.MaxRetries {
			ts.IncrementRetryCount()
			q.logger.Warn("retryable error encountered",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", q.retryConfig.MaxRetries),
				zap.Error(err))
		}
	}

	q.completeTask(ts, lastErr)
}

// execute runs the task once, converting a panic into an error.
func (q *Queue) execute(ts *TaskState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return ts.Task.Execute(q.ctx)
}

// calculateBackoff computes the backoff duration for a retry attempt.
// Uses exponential backoff with jitter.
func (q *Queue) calculateBackoff(attempt int) time.Duration {
	backoff := float64(q.retryConfig.InitialBackoff) *
		math.Pow(q.retryConfig.BackoffFactor, float64(attempt-1))

	if backoff > float64(q.retryConfig.MaxBackoff) {
		backoff = float64(q.retryConfig.MaxBackoff)
	}

	// ±10% jitter
	jitter := backoff * 0.1 * (rand.Float64()*2 - 1)

	return time.Duration(backoff + jitter)
}

// completeTask records the outcome of a running task and starts the next one.
func (q *Queue) completeTask(ts *TaskState, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.OnComplete()
	delete(q.running, ts.Task.ID())

	switch {
	case err == nil:
		ts.SetStatus(TaskStatusCompleted)
		q.completed++
		q.logger.Info("task completed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("retry_count", ts.RetryCount()))
	case errors.Is(err, context.Canceled):
		ts.SetStatus(TaskStatusCancelled)
		q.cancelled++
		q.logger.Info("task cancelled",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	default:
		ts.Fail(err)
		q.failed++
		q.logger.Error("task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("retry_count", ts.RetryCount()),
			zap.Error(err))
	}

	q.tryStartTasksLocked()
	if q.idleLocked() {
		q.closeIdleLocked()
	}
}

func (q *Queue) idleLocked() bool {
	return len(q.pending) == 0 && len(q.running) == 0
}

// closeIdleLocked safely closes the idle channel.
// Must be called with lock held.
func (q *Queue) closeIdleLocked() {
	select {
	case <-q.idle:
	default:
		close(q.idle)
	}
}

// resetIdleLocked recreates the idle channel if it was closed.
// Must be called with lock held.
func (q *Queue) resetIdleLocked() {
	select {
	case <-q.idle:
		q.idle = make(chan struct{})
	default:
	}
}

// Wait blocks until nothing is pending or running, or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks to
// finish. If ctx ends first, running tasks are cancelled and queued tasks are
// dropped, with OnDrop called on those implementing Dropper. Shutdown then
// waits up to the drain grace for cancelled tasks to return, and returns
// ctx.Err().
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	idle := q.idle
	q.logger.Info("queue shutting down",
		zap.Int("queued", len(q.pending)),
		zap.Int("running", len(q.running)))
	q.mu.Unlock()

	select {
	case <-idle:
		q.cancel()
		return nil
	case <-ctx.Done():
	}

	q.mu.Lock()
	q.cancel()
	dropped := q.pending
	for _, ts := range dropped {
		ts.SetStatus(TaskStatusCancelled)
		q.cancelled++
		q.logger.Warn("dropping queued task at shutdown",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	}
	q.pending = nil
	if q.idleLocked() {
		q.closeIdleLocked()
	}
	q.mu.Unlock()

	for _, ts := range dropped {
		if d, ok := ts.Task.(Dropper); ok {
			d.OnDrop()
		}
	}

	graceCtx, cancelGrace := context.WithTimeout(context.Background(), q.drainGrace)
	defer cancelGrace()
	if err := q.Wait(graceCtx); err != nil {
		q.mu.Lock()
		q.logger.Error("cancelled tasks still running after drain grace",
			zap.Int("running", len(q.running)),
			zap.Duration("grace", q.drainGrace))
		q.mu.Unlock()
	}

	return ctx.Err()
}

// GetTasks returns snapshots of queued and running tasks.
func (q *Queue) GetTasks() []TaskSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]TaskSnapshot, 0, len(q.running)+len(q.pending))
	for _, ts := range q.running {
		snapshots = append(snapshots, ts.Snapshot())
	}
	for _, ts := range q.pending {
		snapshots = append(snapshots, ts.Snapshot())
	}
	return snapshots
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Workers:   q.workers,
		Capacity:  q.capacity,
		Queued:    len(q.pending),
		Running:   len(q.running),
		Completed: q.completed,
		Failed:    q.failed,
		Cancelled: q.cancelled,
		Closed:    q.closed,
	}
}
