// Package executor runs segment load work on a bounded worker pool.
//
// The pool is injected into a segment rather than owned by it, so many
// segments of one process share a single set of workers.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// ErrPanic wraps a value recovered from a panicking task.
var ErrPanic = errors.New("executor: task panicked")

// Executor runs submitted tasks.
type Executor interface {
	// Submit schedules task. It blocks while the executor is saturated.
	Submit(task func()) error
}

// Pool is an Executor backed by an ants goroutine pool.
type Pool struct {
	pool *ants.Pool
}

// NewPool creates a pool with size workers. size <= 0 uses GOMAXPROCS.
// Panics escaping tasks are logged with logger and swallowed.
func NewPool(size int, logger *slog.Logger) (*Pool, error) {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		logger.Error("executor task panicked", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Submit schedules task on the pool.
func (p *Pool) Submit(task func()) error {
	return p.pool.Submit(task)
}

// Cap returns the number of workers.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running returns the number of busy workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Release stops the pool after running tasks finish.
func (p *Pool) Release() { p.pool.Release() }

// Inline runs every task on the calling goroutine.
type Inline struct{}

// Submit runs task immediately.
func (Inline) Submit(task func()) error {
	task()
	return nil
}

// RunAll runs tasks on ex and waits for every one of them, including tasks
// that finish after another has failed. It returns the error of the first
// failed task in submission order.
func RunAll(ex Executor, tasks ...func() error) error {
	if ex == nil {
		ex = Inline{}
	}
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		err := ex.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()
			errs[i] = task()
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("executor: submit: %w", err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
