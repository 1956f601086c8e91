package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config sizes a Pool
type Config struct {
	Workers    int
	JobTimeout time.Duration
	// Retries is the number of extra attempts after a failure
	Retries    int
	RetryDelay time.Duration
	QueueSize  int
}

// DefaultConfig suits a single periodic task
func DefaultConfig() Config {
	return Config{
		Workers:    1,
		JobTimeout: 2 * time.Minute,
		Retries:    3,
		RetryDelay: 30 * time.Second,
		QueueSize:  16,
	}
}

func (c Config) validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	case c.Retries < 0:
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Pool runs submitted jobs on Config.Workers goroutines. A failed attempt
// holds its worker through the retry delay, so retries never reorder
// behind newer submissions.
type Pool struct {
	cfg Config
	log *zap.Logger

	mu      sync.RWMutex
	queue   chan *Job
	running bool
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewPool validates cfg and returns a stopped pool
func NewPool(cfg Config, log *zap.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{cfg: cfg, log: log}, nil
}

// Start launches the workers. Starting a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.queue = make(chan *Job, p.cfg.QueueSize)
	p.running = true

	for range p.cfg.Workers {
		p.workers.Add(1)
		go p.work(ctx, p.queue)
	}
	p.log.Info("Scheduler started",
		zap.Int("workers", p.cfg.Workers),
		zap.Duration("job_timeout", p.cfg.JobTimeout))
}

// Stop cancels in-flight jobs and waits for the workers, or for ctx.
// Queued jobs that never started are dropped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// Running reports whether Submit accepts work
func (p *Pool) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Submit queues task without blocking
func (p *Pool) Submit(task Task) (*Job, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return nil, ErrStopped
	}
	job := newJob(task)
	select {
	case p.queue <- job:
		return job, nil
	default:
		return nil, ErrQueueFull
	}
}

func (p *Pool) work(ctx context.Context, queue <-chan *Job) {
	defer p.workers.Done()
	for job := range queue {
		if ctx.Err() != nil {
			job.settle(StateFailed, ctx.Err())
			continue
		}
		p.execute(ctx, job)
	}
}

func (p *Pool) execute(ctx context.Context, job *Job) {
	log := p.log.With(zap.String("job_id", job.ID.String()), zap.String("task", job.Task.Name()))
	for {
		attempt := job.begin()
		err := p.attempt(ctx, job.Task)
		if err == nil {
			job.settle(StateSucceeded, nil)
			log.Debug("Job succeeded", zap.Int("attempt", attempt))
			return
		}
		if attempt > p.cfg.Retries || ctx.Err() != nil {
			job.settle(StateFailed, err)
			log.Error("Job failed", zap.Int("attempt", attempt), zap.Error(err))
			return
		}

		job.settle(StateRetrying, err)
		log.Warn("Job attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", p.cfg.RetryDelay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			job.settle(StateFailed, ctx.Err())
			return
		case <-time.After(p.cfg.RetryDelay):
		}
	}
}

// attempt runs task once under the job timeout, converting a panic to an error
func (p *Pool) attempt(ctx context.Context, task Task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name(), r)
		}
	}()
	return task.Run(ctx)
}
