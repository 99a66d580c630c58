package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs submitted jobs on a fixed set of goroutines. A pool with a single
// worker runs every job inline on the submitting goroutine, in order.
type Pool struct {
	workers int
	jobs    chan func()
	wg      sync.WaitGroup
	closeFn func()
}

// Start creates a pool. numWorkers < 1 means one worker per available CPU.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		workers: numWorkers,
		closeFn: func() {},
	}

	if numWorkers > 1 {
		pool.jobs = make(chan func(), numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for f := range pool.jobs {
					f()
				}
			})
		}

		pool.closeFn = sync.OnceFunc(func() { close(pool.jobs) })
	}

	return pool
}

func (p *Pool) Workers() int {
	return p.workers
}

// Submit hands f to the pool. It blocks while all workers are busy and gives
// up with the context error once ctx is done. Submitting after Wait panics.
func (p *Pool) Submit(ctx context.Context, f func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.jobs == nil {
		f()
		return nil
	}

	select {
	case p.jobs <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait stops accepting work and blocks until every submitted job returned.
func (p *Pool) Wait() {
	p.closeFn()
	p.wg.Wait()
}
