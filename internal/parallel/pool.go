// Package parallel schedules data-parallel kernels over a fixed pool of
// goroutines in work groups of consecutive indices.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when dispatching on a closed pool.
var ErrPoolClosed = errors.New("parallel: worker pool closed")

// group is one work group: the index range [lo, hi) of a single dispatch.
type group struct {
	lo, hi int
	fn     func(lo, hi int)
	done   *sync.WaitGroup
}

func (g group) run() {
	defer g.done.Done()
	g.fn(g.lo, g.hi)
}

// WorkerPool runs work groups on a fixed set of goroutines.
//
// Each worker owns a queue and steals from the other queues when its own
// is empty, so a slow group does not stall the rest of a dispatch.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan group
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// mu is held shared while a dispatch queues groups and exclusively
	// while closing, so no group is queued after the workers drain.
	mu sync.RWMutex
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan group, workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan group, queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case g := <-own:
			g.run()
		default:
			if g, ok := p.steal(id); ok {
				g.run()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case g := <-own:
				g.run()
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan group) {
	for {
		select {
		case g := <-queue:
			g.run()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) (group, bool) {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case g := <-p.queues[i]:
			return g, true
		default:
		}
	}
	return group{}, false
}

// GroupCount returns the number of work groups of size groupSize needed to
// cover n items.
func GroupCount(n, groupSize int) int {
	if n <= 0 || groupSize <= 0 {
		return 0
	}
	return (n + groupSize - 1) / groupSize
}

// Dispatch calls fn once per work group covering [0, n) and waits for all
// groups to finish. The last group may be short.
//
// Cancelling ctx stops further groups from being queued; groups already
// queued still run, and Dispatch returns ctx.Err() after they finish.
func (p *WorkerPool) Dispatch(ctx context.Context, n, groupSize int, fn func(lo, hi int)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return ErrPoolClosed
	}
	if groupSize <= 0 {
		groupSize = 1
	}
	groups := GroupCount(n, groupSize)
	if groups == 0 {
		return nil
	}

	var done sync.WaitGroup
	var err error
submit:
	for i := range groups {
		if err = ctx.Err(); err != nil {
			break
		}
		lo := i * groupSize
		g := group{lo: lo, hi: min(lo+groupSize, n), fn: fn, done: &done}
		done.Add(1)
		select {
		case p.queues[i%p.workers] <- g:
		case <-ctx.Done():
			done.Done()
			err = ctx.Err()
			break submit
		}
	}
	done.Wait()
	return err
}

// Close stops the workers after the queued groups have run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
