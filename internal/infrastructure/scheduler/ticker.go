package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker submits one task to a Pool every interval. A tick is skipped while
// the job from an earlier tick has not finished, so the task never overlaps
// itself.
type Ticker struct {
	pool     *Pool
	task     Task
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	current *Job
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTicker validates its arguments; call Start to begin ticking
func NewTicker(pool *Pool, task Task, interval time.Duration, log *zap.Logger) (*Ticker, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if interval <= 0 || pool == nil {
		return nil, ErrInvalidConfig
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ticker{pool: pool, task: task, interval: interval, log: log}, nil
}

// Start fires once immediately, then every interval until Stop or ctx ends
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.loop(ctx, t.done)

	t.log.Info("Task ticker started",
		zap.String("task", t.task.Name()),
		zap.Duration("interval", t.interval))
}

// Stop ends the loop. It does not wait for a submitted job.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Ticker) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		t.fire()
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (t *Ticker) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && !t.current.State().Done() {
		t.log.Debug("Previous run still in flight, skipping tick", zap.String("task", t.task.Name()))
		return
	}
	job, err := t.pool.Submit(t.task)
	if err != nil {
		t.log.Warn("Failed to submit task", zap.String("task", t.task.Name()), zap.Error(err))
		return
	}
	t.current = job
}
