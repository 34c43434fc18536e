package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/dtn-ai-router/internal/shared"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when submitting to a pool that is shutting down
	ErrPoolClosed = errors.New("execution pool closed")

	// ErrHandlerTimeout is returned when a task outlives the pool's handler timeout
	ErrHandlerTimeout = errors.New("handler timed out")
)

// Task is one handler invocation
type Task func(ctx context.Context) (any, string, error)

// Result is the outcome of a Task
type Result struct {
	Data     any
	DataType string
	Err      error
}

// PoolConfig holds configuration for the Pool
type PoolConfig struct {
	Workers        int           // Number of concurrent workers
	QueueSize      int           // Tasks buffered while all workers are busy
	HandlerTimeout time.Duration // Zero disables the per-task deadline
}

// PoolStats is a point-in-time view of the pool
type PoolStats struct {
	Workers   int
	Queued    int
	InFlight  int64
	Completed int64
	Panicked  int64
	TimedOut  int64
	Closed    bool
}

type job struct {
	ctx     context.Context
	task    Task
	started chan struct{}
	runCtx  context.Context
	done    chan Result
}

// Pool runs tasks on a fixed set of worker goroutines fed by a bounded queue.
// Handler calls are assumed blocking, so they never run on the serving goroutine.
type Pool struct {
	jobs     chan *job
	quit     chan struct{}
	stopped  chan struct{}
	workers  int
	timeout  time.Duration
	logger   *zap.Logger
	observer func(delta int64)
	wg       sync.WaitGroup

	inFlight  atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	timedOut  atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool and starts its workers.
// observer, when non-nil, receives +1 when a task starts running and -1 when it finishes.
// Deltas commute, so concurrent workers cannot leave a gauge fed by them at a stale value.
func NewPool(cfg PoolConfig, logger *zap.Logger, observer func(delta int64)) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue < 0 {
		queue = 0
	}

	p := &Pool{
		jobs:     make(chan *job, queue),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		workers:  workers,
		timeout:  cfg.HandlerTimeout,
		logger:   logger,
		observer: observer,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go func() {
		p.wg.Wait()
		close(p.stopped)
	}()

	logger.Info("started execution pool",
		zap.Int("worker_count", workers),
		zap.Int("queue_size", queue),
		zap.Duration("handler_timeout", cfg.HandlerTimeout))

	return p
}

// Submit queues task and waits for its result.
//
// Submit blocks while the queue is full. It returns early with ctx's error when
// ctx ends first, with ErrHandlerTimeout when the task outlives the handler
// timeout, and with ErrPoolClosed once the pool is shutting down.
func (p *Pool) Submit(ctx context.Context, task Task) (Result, error) {
	j := &job{
		ctx:     ctx,
		task:    task,
		started: make(chan struct{}),
		done:    make(chan Result, 1),
	}

	select {
	case <-p.quit:
		return Result{}, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.quit:
		return Result{}, ErrPoolClosed
	}

	// Waiting to be picked up
	select {
	case <-j.started:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.stopped:
		return p.lateResult(j)
	}

	// Running
	select {
	case r := <-j.done:
		if r.Err != nil && p.timedOutRun(ctx, j) {
			return Result{}, p.timeoutError()
		}
		return r, nil
	case <-j.runCtx.Done():
		select {
		case r := <-j.done:
			if r.Err == nil {
				return r, nil
			}
		default:
		}
		if p.timedOutRun(ctx, j) {
			return Result{}, p.timeoutError()
		}
		return Result{}, ctx.Err()
	}
}

// timedOutRun reports whether the job hit the pool deadline rather than the caller's
func (p *Pool) timedOutRun(ctx context.Context, j *job) bool {
	return errors.Is(j.runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
}

func (p *Pool) timeoutError() error {
	return fmt.Errorf("%w after %s", ErrHandlerTimeout, p.timeout)
}

// lateResult handles a job whose pool stopped before it was picked up
func (p *Pool) lateResult(j *job) (Result, error) {
	select {
	case r := <-j.done:
		return r, nil
	default:
		return Result{}, ErrPoolClosed
	}
}

// Close stops accepting tasks, lets queued tasks finish and waits for the workers up to timeout
func (p *Pool) Close(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("execution pool already closed")
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	p.logger.Info("stopping execution pool", zap.Int("pending_tasks", len(p.jobs)))

	select {
	case <-p.stopped:
		p.logger.Info("execution pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("execution pool stop timeout after %v", timeout)
	}
}

// Stats returns current pool counters
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	return PoolStats{
		Workers:   p.workers,
		Queued:    len(p.jobs),
		InFlight:  p.inFlight.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		TimedOut:  p.timedOut.Load(),
		Closed:    closed,
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("pool worker started", zap.Int("worker_id", id))

	for {
		select {
		case j := <-p.jobs:
			p.run(j)
		case <-p.quit:
			// Drain what was queued before shutdown
			for {
				select {
				case j := <-p.jobs:
					p.run(j)
				default:
					p.logger.Debug("pool worker stopped", zap.Int("worker_id", id))
					return
				}
			}
		}
	}
}

func (p *Pool) run(j *job) {
	runCtx, cancel := j.ctx, context.CancelFunc(func() {})
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(j.ctx, p.timeout)
	}
	defer cancel()

	j.runCtx = runCtx
	close(j.started)

	// Caller already gave up while the task sat in the queue
	if err := j.ctx.Err(); err != nil {
		j.done <- Result{Err: err}
		return
	}

	p.inFlight.Add(1)
	p.observe(1)
	result := p.invoke(runCtx, j.task)
	p.inFlight.Add(-1)
	p.observe(-1)
	p.completed.Add(1)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && j.ctx.Err() == nil {
		p.timedOut.Add(1)
	}
	j.done <- result
}

func (p *Pool) invoke(ctx context.Context, task Task) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("handler panicked",
				zap.String("request_id", shared.RequestID(ctx)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = Result{Err: fmt.Errorf("handler panicked: %v", r)}
		}
	}()

	data, dataType, err := task(ctx)
	return Result{Data: data, DataType: dataType, Err: err}
}

func (p *Pool) observe(delta int64) {
	if p.observer != nil {
		p.observer(delta)
	}
}
