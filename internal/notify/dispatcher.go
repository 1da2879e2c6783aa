package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one fire-and-forget side effect. It runs at most once.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs jobs on a fixed worker pool behind a bounded queue. Submitting
// never blocks: a full queue drops the job with a warning, so a slow channel can
// not hold up a bid or a settlement.
type Dispatcher struct {
	jobs    chan Job
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		jobs:    make(chan Job, queueSize),
		timeout: timeout,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues j and reports whether it was accepted.
func (d *Dispatcher) Submit(j Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		zap.L().Warn("notify.dispatch_closed", zap.String("job", j.Name))
		return false
	}
	select {
	case d.jobs <- j:
		return true
	default:
		zap.L().Warn("notify.queue_full", zap.String("job", j.Name))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j Job) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("notify.job_panic", zap.String("job", j.Name), zap.Any("panic", r))
		}
	}()
	if err := j.Run(ctx); err != nil {
		zap.L().Warn("notify.job_failed", zap.String("job", j.Name), zap.Error(err))
	}
}

// Submitter is the side of the Dispatcher that services depend on.
type Submitter interface {
	Submit(j Job) bool
}

var _ Submitter = (*Dispatcher)(nil)
