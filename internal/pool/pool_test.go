package pool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSumOfSquares(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		p := New(size, zerolog.Nop())

		var sum atomic.Int64
		var wg sync.WaitGroup
		for i := int64(1); i <= 1000; i++ {
			wg.Add(1)
			if err := p.Submit(func() {
				defer wg.Done()
				sum.Add(i * i)
			}); err != nil {
				t.Fatalf("size %d: Submit: %v", size, err)
			}
		}
		wg.Wait()
		p.Close()

		// 1000*1001*2001/6
		if got := sum.Load(); got != 333833500 {
			t.Errorf("size %d: sum = %d, want 333833500", size, got)
		}
	}
}

func TestSizeClamped(t *testing.T) {
	p := New(0, zerolog.Nop())
	defer p.Close()
	if p.Size() != 1 {
		t.Errorf("Size() = %d, want 1", p.Size())
	}
}

// TestHelpOneRound blocks the only worker and has the test goroutine drain
// the queue itself.
func TestHelpOneRound(t *testing.T) {
	p := New(1, zerolog.Nop())
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatal(err)
	}
	<-started

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if err := p.Submit(func() { ran.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}

	helped := 0
	for p.HelpOneRound() {
		helped++
	}
	if helped != 5 || ran.Load() != 5 {
		t.Errorf("helped %d, ran %d, want 5 and 5", helped, ran.Load())
	}
	if p.HelpOneRound() {
		t.Error("HelpOneRound ran a task from an empty pool")
	}
	close(release)
}

// TestNestedWaitWithHelp submits tasks that wait on their own subtasks,
// which only completes because waiters help.
func TestNestedWaitWithHelp(t *testing.T) {
	p := New(2, zerolog.Nop())
	defer p.Close()

	var leaves atomic.Int32
	var outer sync.WaitGroup
	for i := 0; i < 8; i++ {
		outer.Add(1)
		err := p.Submit(func() {
			defer outer.Done()
			var pending atomic.Int32
			for j := 0; j < 4; j++ {
				pending.Add(1)
				if err := p.Submit(func() {
					defer pending.Add(-1)
					leaves.Add(1)
				}); err != nil {
					pending.Add(-1)
				}
			}
			for pending.Load() > 0 {
				if !p.HelpOneRound() {
					runtime.Gosched()
				}
			}
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	go func() {
		outer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("nested tasks deadlocked")
	}
	if leaves.Load() != 32 {
		t.Errorf("ran %d leaf tasks, want 32", leaves.Load())
	}
}

func TestCloseDropsQueuedTasks(t *testing.T) {
	p := New(1, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatal(err)
	}
	<-started

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() { ran.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	// Wait until Close has marked the pool before letting the worker go.
	for !errors.Is(p.Submit(func() {}), ErrClosed) {
		runtime.Gosched()
	}
	close(release)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked")
	}
	if ran.Load() != 0 {
		t.Errorf("%d queued tasks ran after Close", ran.Load())
	}
	if !errors.Is(p.Submit(func() {}), ErrClosed) {
		t.Error("Submit after Close should return ErrClosed")
	}
	p.Close()
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, zerolog.Nop())
	defer p.Close()

	if err := p.Submit(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

// TestIdleWorkerStealsFromBusyQueue queues a task behind a blocked worker
// and expects the other, sleeping worker to pick it up.
func TestIdleWorkerStealsFromBusyQueue(t *testing.T) {
	p := New(2, zerolog.Nop())
	defer p.Close()

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	// Round-robin: the first Submit lands on worker 1, the second on worker 0.
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := p.Submit(func() {}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond) // let worker 0 go idle

	done := make(chan struct{})
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task queued behind a busy worker was never stolen")
	}
}
