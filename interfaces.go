package redlock

import (
	"context"
	"time"
)

// Locker is the interface a Coordinator satisfies. Instrumentation and
// middleware packages depend on Locker rather than *Coordinator so they
// can wrap each other (metrics.Wrap around a Coordinator, middleware
// around the wrapped result) without an import cycle back to this
// package's concrete type.
type Locker interface {
	Acquire(ctx context.Context, resources []string, duration time.Duration, opts ...Option) (*Lock, error)
	Extend(ctx context.Context, lock *Lock, duration time.Duration, opts ...Option) (*Lock, error)
	Release(ctx context.Context, lock *Lock, opts ...Option) (*ExecutionResult, error)
	Using(ctx context.Context, resources []string, duration time.Duration, routine Routine, opts ...Option) error
}

var _ Locker = (*Coordinator)(nil)
