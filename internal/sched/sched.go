// Package sched implements the cooperative task scheduler that stands in
// for the emulated platform's async executor: conceptually many tasks are
// "running" (an app's main thread, a timer callback, a key-event handler),
// but only one of them ever touches the ARM core at a time. Goroutines plus
// a single-slot CPU token channel are the idiomatic Go substitute for the
// original's async/await suspension points - a task blocks on a channel
// receive everywhere the original would have hit an .await.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/wieerr"
)

// Task is one logical thread of guest execution.
type Task struct {
	ID       uuid.UUID
	sched    *Scheduler
	fn       func(t *Task) error
	done     chan struct{}
	err      error
	canceled bool
}

// Err returns the error the task finished with, if any. Safe to call only
// after Done() has closed.
func (t *Task) Err() error { return t.err }

// Done returns a channel closed when the task has finished running.
func (t *Task) Done() <-chan struct{} { return t.done }

// Core gives a running task access to the shared ARM core. Callers must
// hold the CPU token to use it, which every task does for the duration of
// its fn by construction.
func (t *Task) Core() *core.Core { return t.sched.core }

// Sleep suspends the calling task for d, releasing the CPU token so other
// ready tasks can run in the meantime.
func (t *Task) Sleep(d time.Duration) error {
	t.sched.releaseCPU()
	defer t.sched.acquireCPU()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-t.sched.ctx.Done():
		return wieerr.ErrTaskCanceled
	}
}

// Call invokes a guest function synchronously on behalf of the task. It
// does not release the CPU token: a nested guest call is, from the
// scheduler's point of view, still the same task occupying the single
// logical CPU, just one stack frame deeper.
func (t *Task) Call(addr uint32, args []uint32) (uint32, error) {
	return t.sched.core.RunFunction(addr, args)
}

// Scheduler owns the shared core and arbitrates which task may drive it.
type Scheduler struct {
	core  *core.Core
	token chan struct{}

	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	// lastStarted is closed once the most recently spawned task has taken
	// the CPU token for the first time; the next spawned task waits on it.
	lastStarted chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler for c. Only one task may run guest code on c at
// a time, enforced by the scheduler's CPU token.
func New(c *core.Core) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		core:   c,
		token:  make(chan struct{}, 1),
		tasks:  make(map[uuid.UUID]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
	s.token <- struct{}{}
	return s
}

func (s *Scheduler) acquireCPU() {
	select {
	case <-s.token:
	case <-s.ctx.Done():
	}
}

func (s *Scheduler) releaseCPU() {
	select {
	case s.token <- struct{}{}:
	default:
	}
}

// Spawn starts fn as a new task and returns immediately; fn runs in its own
// goroutine once it has acquired the CPU token. Tasks take the token for
// the first time in the order they were spawned.
func (s *Scheduler) Spawn(fn func(t *Task) error) *Task {
	t := &Task{
		ID:    uuid.New(),
		sched: s,
		fn:    fn,
		done:  make(chan struct{}),
	}
	started := make(chan struct{})
	s.mu.Lock()
	s.tasks[t.ID] = t
	prev := s.lastStarted
	s.lastStarted = started
	s.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		s.acquireCPU()
		close(started)
		defer s.releaseCPU()
		defer close(t.done)

		if t.canceled {
			t.err = wieerr.ErrTaskCanceled
			return
		}
		t.err = fn(t)
	}()

	return t
}

// Stop cancels every pending suspension point; tasks blocked in Sleep
// return wieerr.ErrTaskCanceled.
func (s *Scheduler) Stop() {
	s.cancel()
}

// TaskInfo is a point-in-time snapshot of one task's state, for the
// inspector UI to poll without holding a reference to the live Task.
type TaskInfo struct {
	ID     uuid.UUID
	Status string
	Err    error
}

// Tasks returns a snapshot of every task spawned so far.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		status := "running"
		select {
		case <-t.done:
			if t.err != nil {
				status = "failed"
			} else {
				status = "done"
			}
		default:
		}
		out = append(out, TaskInfo{ID: t.ID, Status: status, Err: t.err})
	}
	return out
}

// Wait blocks until every task spawned so far has finished.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	snapshot := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		snapshot = append(snapshot, t)
	}
	s.mu.Unlock()

	var firstErr error
	for _, t := range snapshot {
		<-t.Done()
		if t.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("task %s: %w", t.ID, t.err)
		}
	}
	return firstErr
}
