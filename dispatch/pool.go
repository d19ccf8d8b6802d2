package dispatch

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/adamwoolhether/oneshot/observability"
)

// Pool is a fixed set of background-priority workers draining an
// unbounded FIFO queue.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool
	shared bool

	workers int
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *observability.Metrics
}

type task struct {
	fn       func()
	enqueued time.Time
}

// DefaultPoolSize is the worker count of the [Shared] pool.
func DefaultPoolSize() int {
	return runtime.NumCPU() + 1
}

// NewPool starts workers goroutines, each pinned to its own
// background-priority thread for the life of the pool. A non-positive
// count starts a single worker.
func NewPool(workers int, optFns ...Option) *Pool {
	o := applyOptions(optFns)

	p := &Pool{
		workers: max(workers, 1),
		logger:  o.logger,
		metrics: o.metrics,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(p.workers)
	for range p.workers {
		go p.worker()
	}

	return p
}

var sharedPool = sync.OnceValue(func() *Pool {
	p := NewPool(DefaultPoolSize())
	p.shared = true
	return p
})

// Shared returns the process-wide pool, starting it on first use. It lives
// for the rest of the process; Close on it is a no-op.
func Shared() *Pool {
	return sharedPool()
}

// Execute queues fn and returns without waiting for a worker.
func (p *Pool) Execute(fn func()) error {
	if fn == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task{fn: fn, enqueued: time.Now()})
	depth := len(p.queue)
	p.mu.Unlock()

	p.cond.Signal()
	p.metrics.SetQueueDepth(depth)

	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.workers }

// Pending returns the number of tasks waiting for a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

// Close stops accepting tasks, lets the workers drain the queue, and waits
// for them to exit.
func (p *Pool) Close() {
	if p.shared {
		p.logger.Debug("ignoring Close on the shared pool")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	lowerPriority(p.logger)

	for {
		t, ok := p.next()
		if !ok {
			return
		}

		p.metrics.ObserveQueueWait(time.Since(t.enqueued))
		p.metrics.TaskStarted(PolicyBoundedPool)

		panicked := run(p.logger, PolicyBoundedPool, t.fn)
		p.metrics.TaskFinished(PolicyBoundedPool, panicked)
	}
}

// next blocks until a task is queued, or reports false once the pool is
// closed and drained.
func (p *Pool) next() (task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}

	if len(p.queue) == 0 {
		return task{}, false
	}

	t := p.queue[0]
	p.queue[0] = task{}
	p.queue = p.queue[1:]
	p.metrics.SetQueueDepth(len(p.queue))

	return t, true
}
