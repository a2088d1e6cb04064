// internal/logger/dispatcher.go
package logger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrDispatcherStopped is returned when enqueueing on a dispatcher that
	// is not running.
	ErrDispatcherStopped = errors.New("dispatcher not running")
	// ErrAlreadyRunning is returned by Start on a running dispatcher.
	ErrAlreadyRunning = errors.New("dispatcher already running")
)

// Job is one unit of deferred output.
type Job func()

// Dispatcher drains a bounded queue of jobs with a fixed set of workers.
// Enqueue blocks while the queue is full, so producers slow down instead of
// piling up goroutines. With a single worker jobs run in enqueue order.
type Dispatcher struct {
	queueSize   int
	workerCount int

	mu      sync.RWMutex // held for reading by senders, for writing by Stop
	queue   chan Job
	running atomic.Bool
	wg      sync.WaitGroup

	processed atomic.Uint64
	panicked  atomic.Uint64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the queue capacity.
func WithQueueSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workerCount = n
		}
	}
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queueSize:   1024,
		workerCount: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}
	d.queue = make(chan Job, d.queueSize)
	d.running.Store(true)
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(d.queue)
	}
	return nil
}

// Stop closes the queue and waits until every queued job has run or ctx
// ends.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	d.running.Store(false)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues job, waiting for room until ctx ends.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running.Load() {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the dispatcher accepts jobs.
func (d *Dispatcher) Running() bool { return d.running.Load() }

// Processed returns the number of jobs that have run.
func (d *Dispatcher) Processed() uint64 { return d.processed.Load() }

// Panicked returns the number of jobs that panicked.
func (d *Dispatcher) Panicked() uint64 { return d.panicked.Load() }

func (d *Dispatcher) worker(queue <-chan Job) {
	defer d.wg.Done()
	for job := range queue {
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Add(1)
		}
		d.processed.Add(1)
	}()
	job()
}

var std struct {
	once sync.Once
	d    *Dispatcher
}

// Default returns the package dispatcher, starting it on first use.
func Default() *Dispatcher {
	std.once.Do(func() {
		std.d = NewDispatcher()
		_ = std.d.Start()
	})
	return std.d
}

// Flush stops the package dispatcher after draining it. Output logged
// afterwards is written synchronously.
func Flush(ctx context.Context) error {
	err := Default().Stop(ctx)
	if errors.Is(err, ErrDispatcherStopped) {
		return nil
	}
	return err
}
