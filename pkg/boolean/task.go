package boolean

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNotDone is returned by operations that need a finished task.
var ErrNotDone = errors.New("boolean: task not finished")

// State is the lifecycle of one difference group's processing.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCommitting
	StateDone
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCanceled
}

// Stats describes a finished run.
type Stats struct {
	Keeps int
	Holes int
	Pairs int // subtractions performed
}

// Task is the handle on a running difference computation. The group that
// started it retains it so teardown can cancel or await it.
type Task struct {
	state  atomic.Int32
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	// written before done is closed
	err   error
	stats Stats
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

// State returns the current state.
func (t *Task) State() State { return State(t.state.Load()) }

func (t *Task) setState(s State) { t.state.Store(int32(s)) }

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. Nothing is committed once a cancel has been
// observed. Cancel after completion has no effect.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes or ctx ends, and returns the task's
// error or ctx's.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task's error once it has finished, and ErrNotDone before.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return ErrNotDone
	}
}

// Stats returns the run statistics once finished.
func (t *Task) Stats() (Stats, error) {
	select {
	case <-t.done:
		return t.stats, nil
	default:
		return Stats{}, ErrNotDone
	}
}

func (t *Task) finish(s State, stats Stats, err error) {
	t.once.Do(func() {
		t.err = err
		t.stats = stats
		t.setState(s)
		t.cancel()
		close(t.done)
	})
}
