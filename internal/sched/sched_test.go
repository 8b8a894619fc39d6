package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirusu400/wie/internal/core"
)

func TestSpawnRunsAndWaits(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	s := New(c)

	var ran int32
	s.Spawn(func(_ *Task) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected task to run once, ran=%d", ran)
	}
}

func TestTasksAreMutuallyExclusive(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	s := New(c)

	var active int32
	var sawOverlap bool
	work := func(_ *Task) error {
		n := atomic.AddInt32(&active, 1)
		if n > 1 {
			sawOverlap = true
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	}

	s.Spawn(work)
	s.Spawn(work)
	s.Spawn(work)

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if sawOverlap {
		t.Fatalf("expected tasks to never run concurrently")
	}
}

func TestSleepReleasesCPU(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	s := New(c)

	var order []string
	done := make(chan struct{})

	s.Spawn(func(tk *Task) error {
		order = append(order, "a-start")
		if err := tk.Sleep(10 * time.Millisecond); err != nil {
			return err
		}
		order = append(order, "a-end")
		close(done)
		return nil
	})
	s.Spawn(func(_ *Task) error {
		order = append(order, "b")
		return nil
	})

	<-done
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(order) < 2 || order[0] != "a-start" {
		t.Fatalf("unexpected order: %v", order)
	}
	foundB := false
	for _, e := range order {
		if e == "b" {
			foundB = true
		}
	}
	if !foundB {
		t.Fatalf("expected task b to run while task a slept, order=%v", order)
	}
}

func TestTasksSnapshot(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	s := New(c)
	release := make(chan struct{})
	s.Spawn(func(_ *Task) error {
		<-release
		return nil
	})

	var running bool
	for i := 0; i < 100; i++ {
		tasks := s.Tasks()
		if len(tasks) == 1 && tasks[0].Status == "running" {
			running = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !running {
		t.Fatalf("expected one running task before release")
	}

	close(release)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Status != "done" {
		t.Fatalf("expected one done task after Wait, got %+v", tasks)
	}
}
