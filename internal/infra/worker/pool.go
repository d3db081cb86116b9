// Package worker runs blocking repository calls on a bounded pool so that a
// slow storage backend cannot consume unbounded goroutines. Failures of the
// pool itself are reported as *BoundaryError, distinct from whatever the
// submitted function returns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrPoolExhausted is returned when no slot frees up within the wait limit.
var ErrPoolExhausted = errors.New("worker pool exhausted")

// BoundaryError reports that a job could not be scheduled or did not
// complete normally.
type BoundaryError struct {
	Op  string
	Err error
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("worker boundary [%s]: %v", e.Op, e.Err)
}

func (e *BoundaryError) Unwrap() error {
	return e.Err
}

// PanicError carries a recovered panic from a job.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Observer receives pool lifecycle events. *observability.Metrics satisfies it.
type Observer interface {
	PoolStarted()
	PoolFinished()
}

type nopObserver struct{}

func (nopObserver) PoolStarted()  {}
func (nopObserver) PoolFinished() {}

// Pool bounds the number of concurrently running jobs.
type Pool struct {
	sem      *semaphore.Weighted
	size     int64
	wait     time.Duration
	inFlight atomic.Int64
	observer Observer
	logger   *zap.Logger
}

// NewPool creates a pool with size slots. wait bounds how long a job waits
// for a slot; zero waits as long as the caller's context allows.
func NewPool(size int, wait time.Duration, observer Observer, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(size)),
		size:     int64(size),
		wait:     wait,
		observer: observer,
		logger:   logger,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int64 { return p.size }

// InFlight returns the number of jobs currently running.
func (p *Pool) InFlight() int64 { return p.inFlight.Load() }

// Run executes fn on the pool and waits for it to finish. Once started, a job
// always runs to completion; cancellation only reaches fn through ctx.
func Run[T any](ctx context.Context, p *Pool, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := p.acquire(ctx); err != nil {
		p.logger.Warn("worker: could not acquire slot",
			zap.String("op", op),
			zap.Int64("in_flight", p.InFlight()),
			zap.Error(err),
		)
		return zero, &BoundaryError{Op: op, Err: err}
	}

	type result struct {
		value T
		err   error
		panic *PanicError
	}
	done := make(chan result, 1)

	p.inFlight.Add(1)
	p.observer.PoolStarted()
	go func() {
		var res result
		defer func() {
			if rec := recover(); rec != nil {
				res = result{panic: &PanicError{Value: rec, Stack: debug.Stack()}}
			}
			p.inFlight.Add(-1)
			p.observer.PoolFinished()
			p.sem.Release(1)
			done <- res
		}()
		v, err := fn(ctx)
		res = result{value: v, err: err}
	}()

	res := <-done
	if res.panic != nil {
		p.logger.Error("worker: job panicked",
			zap.String("op", op),
			zap.Any("panic", res.panic.Value),
			zap.ByteString("stack", res.panic.Stack),
		)
		return zero, &BoundaryError{Op: op, Err: res.panic}
	}
	return res.value, res.err
}

// Do is Run for jobs without a result value.
func Do(ctx context.Context, p *Pool, op string, fn func(context.Context) error) error {
	_, err := Run(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.sem.TryAcquire(1) {
		return nil
	}
	if p.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.wait)
		defer cancel()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrPoolExhausted
		}
		return err
	}
	return nil
}

// IsBoundaryError reports whether err came from the pool rather than the job.
func IsBoundaryError(err error) bool {
	var be *BoundaryError
	return errors.As(err, &be)
}
