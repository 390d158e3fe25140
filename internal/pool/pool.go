// Package pool is a fixed-size work-stealing thread pool. Each worker owns a
// deque; tasks are submitted round-robin, a worker runs its own tasks oldest
// first and steals the newest task of another worker when idle. Goroutines
// that are blocked waiting for results can lend a hand through HelpOneRound.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pool closed")

// Task is a unit of work. Tasks must not block on other tasks without
// helping (see HelpOneRound), or a small pool can deadlock.
type Task func()

type deque struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks []Task
	idle  bool // owner is about to sleep or sleeping on cond
}

func newDeque() *deque {
	q := &deque{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// popFront takes the oldest task. Caller holds q.mu.
func (q *deque) popFront() (Task, bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t, true
}

// popBack takes the newest task. Caller holds q.mu.
func (q *deque) popBack() (Task, bool) {
	n := len(q.tasks)
	if n == 0 {
		return nil, false
	}
	t := q.tasks[n-1]
	q.tasks[n-1] = nil
	q.tasks = q.tasks[:n-1]
	return t, true
}

// Pool runs tasks on a fixed set of worker goroutines.
type Pool struct {
	log    zerolog.Logger
	queues []*deque
	wg     sync.WaitGroup

	next      atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	// Stats
	executed atomic.Int64
	stolen   atomic.Int64
	helped   atomic.Int64
}

// New starts a pool of size workers (at least one).
func New(size int, logger zerolog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		log:    logger,
		queues: make([]*deque, size),
	}
	for i := range p.queues {
		p.queues[i] = newDeque()
	}
	for i := 0; i < size; i++ {
		workerID := i
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runWorker(workerID)
		}()
	}
	p.log.Debug().Int("workers", size).Msg("pool started")
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.queues)
}

// Submit queues t on the next worker in round-robin order. If that worker
// is busy, one idle worker is woken to steal it.
func (p *Pool) Submit(t Task) error {
	if p.closed.Load() {
		return ErrClosed
	}
	i := int(p.next.Add(1) % uint64(len(p.queues)))
	q := p.queues[i]
	q.mu.Lock()
	if p.closed.Load() {
		q.mu.Unlock()
		return ErrClosed
	}
	q.tasks = append(q.tasks, t)
	idle := q.idle
	q.idle = false
	q.mu.Unlock()
	q.cond.Signal()
	if !idle {
		p.wakePeer(i)
	}
	return nil
}

// wakePeer wakes the first idle worker other than skip.
func (p *Pool) wakePeer(skip int) {
	n := len(p.queues)
	for j := 1; j < n; j++ {
		q := p.queues[(skip+j)%n]
		q.mu.Lock()
		if q.idle {
			q.idle = false
			q.mu.Unlock()
			q.cond.Signal()
			return
		}
		q.mu.Unlock()
	}
}

// HelpOneRound runs at most one queued task from any worker on the calling
// goroutine. It reports whether a task was run.
func (p *Pool) HelpOneRound() bool {
	if p.closed.Load() {
		return false
	}
	n := len(p.queues)
	start := int(p.next.Load() % uint64(n))
	for i := 0; i < n; i++ {
		q := p.queues[(start+i)%n]
		if !q.mu.TryLock() {
			continue
		}
		t, ok := q.popBack()
		q.mu.Unlock()
		if ok {
			p.helped.Add(1)
			p.run(t)
			return true
		}
	}
	return false
}

// Close stops the workers. Tasks still queued are dropped; running tasks
// finish first. Close is idempotent and safe to call concurrently.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		dropped := 0
		for _, q := range p.queues {
			q.mu.Lock()
			dropped += len(q.tasks)
			q.tasks = nil
			q.mu.Unlock()
			q.cond.Broadcast()
		}
		p.wg.Wait()
		p.log.Debug().
			Int("dropped", dropped).
			Int64("executed", p.executed.Load()).
			Int64("stolen", p.stolen.Load()).
			Int64("helped", p.helped.Load()).
			Msg("pool stopped")
	})
}

func (p *Pool) runWorker(id int) {
	own := p.queues[id]
	log := p.log.With().Int("worker_id", id).Logger()
	log.Trace().Msg("worker started")

	for !p.closed.Load() {
		own.mu.Lock()
		t, ok := own.popFront()
		own.mu.Unlock()
		if !ok {
			t, ok = p.steal(id, false)
		}
		if ok {
			p.run(t)
			continue
		}

		// Announce idleness, then look once more, waiting on every victim's
		// lock. A task queued after the announcement clears idle (see
		// Submit and wakePeer) before signalling, so the wait below cannot
		// miss it.
		own.mu.Lock()
		own.idle = true
		own.mu.Unlock()
		if t, ok = p.steal(id, true); ok {
			own.mu.Lock()
			own.idle = false
			own.mu.Unlock()
			p.run(t)
			continue
		}
		own.mu.Lock()
		for own.idle && len(own.tasks) == 0 && !p.closed.Load() {
			own.cond.Wait()
		}
		own.idle = false
		own.mu.Unlock()
	}
	log.Trace().Msg("worker stopped")
}

// steal takes the newest task of the first victim that has one. Unless
// block is set, victims whose lock is held are skipped.
func (p *Pool) steal(id int, block bool) (Task, bool) {
	n := len(p.queues)
	for i := 1; i < n; i++ {
		victim := p.queues[(id+i)%n]
		if block {
			victim.mu.Lock()
		} else if !victim.mu.TryLock() {
			continue
		}
		t, ok := victim.popBack()
		victim.mu.Unlock()
		if ok {
			p.stolen.Add(1)
			return t, true
		}
	}
	return nil, false
}

func (p *Pool) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("task panicked")
		}
	}()
	p.executed.Add(1)
	t()
}
