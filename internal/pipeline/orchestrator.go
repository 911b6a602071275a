package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator runs queued re-extractions in the background. A single
// worker drains the queue since every job writes the same output file.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	log   *slog.Logger

	// OnComplete is called with each successful result, from the worker
	// goroutine.
	onComplete func(*Result)

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("orchestrator stopped")

// NewOrchestrator creates the pipeline. Call Start to launch the worker.
func NewOrchestrator(queueSize int, ttl time.Duration, log *slog.Logger, onComplete func(*Result)) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 8
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		jobs:       NewJobStore(ttl),
		queue:      make(chan *Job, queueSize),
		log:        log,
		onComplete: onComplete,
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w := NewWorker(o.log, o.onComplete)
		for {
			select {
			case <-workerCtx.Done():
				return
			case job := <-o.queue:
				w.Process(workerCtx, job)
			}
		}
	}()

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels the running job and waits for the worker to exit. Jobs
// still queued are marked failed.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	for {
		select {
		case job := <-o.queue:
			job.AddError(ErrStopped.Error())
			job.SetStatus(StatusFailed, "stopped")
		default:
			return
		}
	}
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
