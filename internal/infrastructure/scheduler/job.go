// Package scheduler runs background tasks on a small worker pool, retrying
// failures after a fixed delay, and fires tasks on an interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by Pool and Ticker
var (
	ErrStopped       = errors.New("scheduler: not running")
	ErrQueueFull     = errors.New("scheduler: queue full")
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
	ErrNilTask       = errors.New("scheduler: nil task")
)

// Task is one unit of background work
type Task interface {
	Name() string
	// Run performs the work within the job timeout carried by ctx
	Run(ctx context.Context) error
}

type funcTask struct {
	name string
	fn   func(context.Context) error
}

func (t funcTask) Name() string                  { return t.name }
func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Func adapts fn to a Task
func Func(name string, fn func(context.Context) error) Task {
	return funcTask{name: name, fn: fn}
}

// State is where a Job is in its life
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Done reports whether no further attempt will be made
func (s State) Done() bool {
	return s == StateSucceeded || s == StateFailed
}

// Job tracks one submission of a Task across its attempts
type Job struct {
	ID   uuid.UUID
	Task Task

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
	finished time.Time
}

func newJob(task Task) *Job {
	return &Job{ID: uuid.New(), Task: task, state: StateQueued}
}

// State returns the current state
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Attempts is how many times the task has started
func (j *Job) Attempts() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attempts
}

// Err is the error of the latest failed attempt
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// FinishedAt is zero until the job is done
func (j *Job) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

func (j *Job) begin() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts++
	j.state = StateRunning
	return j.attempts
}

func (j *Job) settle(state State, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
	if err != nil {
		j.lastErr = err
	}
	if state.Done() {
		j.finished = time.Now()
	}
}
