package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdries/docpages/internal/logfields"
	"github.com/jdries/docpages/internal/metrics"
	"github.com/jdries/docpages/internal/publish"
)

// JobTrigger identifies what started a publish job.
type JobTrigger string

const (
	TriggerManual    JobTrigger = "manual"
	TriggerWebhook   JobTrigger = "webhook"
	TriggerScheduled JobTrigger = "schedule"
)

// JobStatus represents the current status of a publish job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a single queued publish request.
type Job struct {
	ID          string          `json:"id"`
	Trigger     JobTrigger      `json:"trigger"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`
	Error       string          `json:"error,omitempty"`
	Commit      string          `json:"commit,omitempty"` // pushed commit, for webhook jobs
	Result      *publish.Result `json:"result,omitempty"`

	cancel context.CancelFunc
}

// NewJob creates a queued job for the given trigger.
func NewJob(trigger JobTrigger) *Job {
	return &Job{ID: uuid.NewString(), Trigger: trigger, CreatedAt: time.Now()}
}

// Runner executes one publish run. Satisfied by publish.Pipeline.
type Runner interface {
	Run(ctx context.Context, trigger string) (*publish.Result, error)
}

// ResultHook is invoked after every finished job, success or failure.
type ResultHook func(ctx context.Context, job *Job)

// Queue serializes publish jobs through a bounded channel and a fixed set
// of workers. Finished jobs are kept in a bounded history for the status API.
type Queue struct {
	jobs        chan *Job
	workers     int
	maxSize     int
	mu          sync.RWMutex
	active      map[string]*Job
	history     []*Job
	historySize int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	runner      Runner
	recorder    metrics.Recorder
	hooks       []ResultHook
}

// NewQueue creates a queue with the given bounds feeding the runner.
func NewQueue(maxSize, workers int, runner Runner) *Queue {
	if maxSize <= 0 {
		maxSize = 16
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		jobs:        make(chan *Job, maxSize),
		workers:     workers,
		maxSize:     maxSize,
		active:      make(map[string]*Job),
		history:     make([]*Job, 0),
		historySize: 50,
		stopChan:    make(chan struct{}),
		runner:      runner,
		recorder:    metrics.NoopRecorder{},
	}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (q *Queue) WithRecorder(r metrics.Recorder) *Queue { q.recorder = r; return q }

// OnResult registers a hook called after every finished job.
func (q *Queue) OnResult(hook ResultHook) { q.hooks = append(q.hooks, hook) }

// Start begins processing jobs with the configured number of workers.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("Starting publish queue", slog.Int("workers", q.workers), slog.Int("max_size", q.maxSize))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop cancels active jobs and waits for the workers to drain.
func (q *Queue) Stop() {
	slog.Info("Stopping publish queue")
	close(q.stopChan)

	q.mu.Lock()
	for _, job := range q.active {
		if job.cancel != nil {
			job.cancel()
		}
	}
	q.mu.Unlock()

	q.wg.Wait()
	slog.Info("Publish queue stopped")
}

// Enqueue adds a job, failing immediately when the queue is full.
func (q *Queue) Enqueue(job *Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.Status = JobStatusQueued

	select {
	case q.jobs <- job:
		q.recorder.SetQueueDepth(len(q.jobs))
		slog.Info("Publish job enqueued", logfields.JobID(job.ID), logfields.JobType(string(job.Trigger)))
		return nil
	default:
		return fmt.Errorf("publish queue is full (%d jobs)", q.maxSize)
	}
}

// Length returns the current queue length.
func (q *Queue) Length() int { return len(q.jobs) }

// ActiveJobs returns snapshots of currently running jobs. Copies are taken
// under the lock so callers can serialize them while workers keep mutating
// the originals.
func (q *Queue) ActiveJobs() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	active := make([]*Job, 0, len(q.active))
	for _, job := range q.active {
		active = append(active, snapshotJob(job))
	}
	return active
}

// History returns snapshots of recently finished jobs, newest first.
func (q *Queue) History() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	history := make([]*Job, 0, len(q.history))
	for _, job := range q.history {
		history = append(history, snapshotJob(job))
	}
	return history
}

func snapshotJob(job *Job) *Job {
	cp := *job
	cp.cancel = nil
	return &cp
}

func (q *Queue) worker(ctx context.Context, workerID string) {
	defer q.wg.Done()
	slog.Debug("Publish worker started", logfields.Worker(workerID))

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopChan:
			return
		case job := <-q.jobs:
			if job != nil {
				q.processJob(ctx, job, workerID)
			}
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *Job, workerID string) {
	jobCtx, cancel := context.WithCancel(ctx)
	job.cancel = cancel
	defer cancel()

	startTime := time.Now()
	job.StartedAt = &startTime
	job.Status = JobStatusRunning

	q.mu.Lock()
	q.active[job.ID] = job
	q.mu.Unlock()
	q.recorder.SetQueueDepth(len(q.jobs))

	slog.Info("Publish job started",
		logfields.JobID(job.ID), logfields.JobType(string(job.Trigger)), logfields.Worker(workerID))

	result, err := q.runner.Run(jobCtx, string(job.Trigger))

	// The job is visible to ActiveJobs/History readers, so completion fields
	// are only written while holding the lock.
	endTime := time.Now()
	q.mu.Lock()
	job.CompletedAt = &endTime
	job.Duration = endTime.Sub(startTime)
	job.Result = result
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = JobStatusCompleted
	}
	delete(q.active, job.ID)
	q.addToHistory(job)
	q.mu.Unlock()

	if err != nil {
		slog.Error("Publish job failed",
			logfields.JobID(job.ID), logfields.JobType(string(job.Trigger)),
			logfields.DurationMS(float64(job.Duration.Milliseconds())), logfields.Error(err))
	} else {
		slog.Info("Publish job completed",
			logfields.JobID(job.ID), logfields.JobType(string(job.Trigger)),
			logfields.DurationMS(float64(job.Duration.Milliseconds())))
	}

	for _, hook := range q.hooks {
		hook(ctx, job)
	}
}

// addToHistory prepends a finished job; caller holds q.mu.
func (q *Queue) addToHistory(job *Job) {
	q.history = append([]*Job{job}, q.history...)
	if len(q.history) > q.historySize {
		q.history = q.history[:q.historySize]
	}
}
