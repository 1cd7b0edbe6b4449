package notify

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrNotifierClosed is returned when work is submitted after Close.
var ErrNotifierClosed = errors.New("notifier closed")

// workerPool runs delivery handoffs on a fixed set of goroutines so a burst
// of mutations does not spawn one goroutine per channel.
type workerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	stopOnce   sync.Once
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	wp := &workerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}
	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.stopCh:
			// Drain remaining work before exiting.
			for {
				select {
				case task := <-wp.workCh:
					task()
				default:
					return
				}
			}
		case task := <-wp.workCh:
			task()
		}
	}
}

// submit enqueues a task with backpressure; it blocks when all workers are
// busy and the buffer is full, bounding in-flight deliveries.
func (wp *workerPool) submit(ctx context.Context, task func()) error {
	if wp.closed.Load() {
		return ErrNotifierClosed
	}
	select {
	case wp.workCh <- task:
		return nil
	case <-wp.stopCh:
		return ErrNotifierClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *workerPool) close() {
	wp.stopOnce.Do(func() {
		wp.closed.Store(true)
		close(wp.stopCh)
	})
	wp.wg.Wait()
}
