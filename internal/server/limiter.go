package server

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/jroosing/hydrahost/internal/errs"
)

// Limiter bounds how many handlers of one server run at the same time.
//
// It is the only backpressure mechanism in the host: callers wait for a
// permit until one is free or their context is done. There is no queue limit
// and no rejection path.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    atomic.Int64

	closed    atomic.Bool
	closing   context.Context
	closeOnce sync.Once
	cancel    context.CancelFunc
}

// NewLimiter creates a limiter with maxConnections permits.
func NewLimiter(maxConnections int) (*Limiter, error) {
	if maxConnections < 1 {
		return nil, errs.New(errs.KindInvalidArgument, "server.NewLimiter",
			"max connections must be at least 1, got %d", maxConnections)
	}
	closing, cancel := context.WithCancel(context.Background())
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(maxConnections)),
		capacity: maxConnections,
		closing:  closing,
		cancel:   cancel,
	}, nil
}

// Acquire waits for a permit. The returned release func must be called
// exactly once; extra calls are ignored.
//
// A context that is already done fails with a cancellation error even when a
// permit is free. Waiters blocked when the limiter is closed fail with a
// disposed error.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	const op = "limiter.Acquire"
	if l.closed.Load() {
		return nil, errs.New(errs.KindDisposed, op, "limiter is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCancellation, op, err)
	}

	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.closing, cancel)
	defer stop()

	if err := l.sem.Acquire(actx, 1); err != nil {
		if l.closed.Load() {
			return nil, errs.New(errs.KindDisposed, op, "limiter closed while waiting")
		}
		return nil, errs.Wrap(errs.KindCancellation, op, err)
	}
	l.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.inUse.Add(-1)
			l.sem.Release(1)
		})
	}, nil
}

// Do runs fn while holding a permit. The permit is released however fn
// returns, including by panic. Do is the host's ExecuteWithLimit.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Available returns the number of free permits.
func (l *Limiter) Available() (int, error) {
	if l.closed.Load() {
		return 0, errs.New(errs.KindDisposed, "limiter.Available", "limiter is closed")
	}
	return l.capacity - int(l.inUse.Load()), nil
}

// Capacity returns the number of permits the limiter was created with.
func (l *Limiter) Capacity() int { return l.capacity }

// Close disposes the limiter and wakes every waiter. Permits already held
// stay valid until released. Close is idempotent.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.cancel()
	})
	return nil
}
