package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// cancelGrace is how long Shutdown waits for cancelled handlers to return.
const cancelGrace = 5 * time.Second

// PoolDispatcher queues tasks in memory and runs them on a fixed-size ants
// pool.
type PoolDispatcher struct {
	pool    *ants.Pool
	tasks   chan Task
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	fed    chan struct{}

	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	pending   atomic.Int64
}

func NewPoolDispatcher(workers, maxPending int, handler Handler, logger *zap.Logger) (*PoolDispatcher, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if maxPending <= 0 {
		return nil, fmt.Errorf("max pending must be positive, got %d", maxPending)
	}

	pool, err := ants.NewPool(workers, ants.WithLogger(antsLogger{logger.Sugar()}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &PoolDispatcher{
		pool:    pool,
		tasks:   make(chan Task, maxPending),
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		fed:     make(chan struct{}),
	}
	go d.feed()

	logger.Info("Parse dispatcher started",
		zap.Int("workers", workers),
		zap.Int("max_pending", maxPending),
	)
	return d, nil
}

// Submit enqueues t without blocking. It returns ErrQueueFull when the
// backlog is at capacity.
func (d *PoolDispatcher) Submit(ctx context.Context, t Task) error {
	if err := t.validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.pending.Add(1)
	select {
	case d.tasks <- t:
		d.submitted.Add(1)
		return nil
	default:
		d.pending.Add(-1)
		d.rejected.Add(1)
		return ErrQueueFull
	}
}

// SubmitWait enqueues t, waiting for room in the backlog until ctx is done.
func (d *PoolDispatcher) SubmitWait(ctx context.Context, t Task) error {
	if err := t.validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.pending.Add(1)
	select {
	case d.tasks <- t:
		d.submitted.Add(1)
		return nil
	case <-ctx.Done():
		d.pending.Add(-1)
		return ctx.Err()
	}
}

func (d *PoolDispatcher) feed() {
	defer close(d.fed)
	for t := range d.tasks {
		d.wg.Add(1)
		task := t
		if err := d.pool.Submit(func() { d.run(task) }); err != nil {
			d.wg.Done()
			d.pending.Add(-1)
			d.logger.Error("Failed to hand task to worker pool",
				zap.String("record_id", task.RecordID.String()),
				zap.Error(err),
			)
		}
	}
}

func (d *PoolDispatcher) run(t Task) {
	defer d.wg.Done()
	defer d.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Add(1)
			d.logger.Error("Parse task panicked",
				zap.String("record_id", t.RecordID.String()),
				zap.String("kind", string(t.Kind)),
				zap.Any("panic", r),
			)
			return
		}
		d.completed.Add(1)
	}()

	if err := d.handler(d.ctx, t); err != nil {
		d.failed.Add(1)
		d.logger.Warn("Parse task failed",
			zap.String("record_id", t.RecordID.String()),
			zap.String("kind", string(t.Kind)),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting tasks and waits for queued and running ones. When
// ctx ends first, running handlers see their context canceled and a
// *ShutdownTimeoutError is returned.
func (d *PoolDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-d.fed
		d.wg.Wait()
		close(done)
	}()

	defer d.pool.Release()
	select {
	case <-done:
		d.cancel()
		d.logger.Info("Parse dispatcher drained", zap.Int64("completed", d.completed.Load()))
		return nil
	case <-ctx.Done():
		abandoned := d.pending.Load()
		d.cancel()
		d.logger.Warn("Parse dispatcher shutdown timed out", zap.Int64("abandoned", abandoned))
		// Handlers that honour cancellation still get to write their
		// terminal status before the caller closes the database.
		select {
		case <-done:
		case <-time.After(cancelGrace):
		}
		return &ShutdownTimeoutError{Abandoned: abandoned}
	}
}

func (d *PoolDispatcher) Stats() Stats {
	return Stats{
		Submitted: d.submitted.Load(),
		Rejected:  d.rejected.Load(),
		Completed: d.completed.Load(),
		Failed:    d.failed.Load(),
		Panicked:  d.panicked.Load(),
		Pending:   d.pending.Load(),
	}
}

type antsLogger struct {
	s *zap.SugaredLogger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.s.Infof(format, args...)
}
