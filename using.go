package redlock

import (
	"context"
	"sync"
	"time"
)

// AbortSignal is handed to a Using routine. The supervisor trips it
// when automatic extension can no longer keep the lock alive; the
// routine is responsible for observing it at its own suspension
// points — the supervisor never cancels the routine synchronously.
type AbortSignal struct {
	mu      sync.Mutex
	aborted bool
	err     error
}

// Aborted reports whether the supervisor has given up extending the
// lock.
func (a *AbortSignal) Aborted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}

// Err returns the extension failure that caused the abort, or nil if
// not aborted.
func (a *AbortSignal) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *AbortSignal) trip(err error) {
	a.mu.Lock()
	a.aborted = true
	a.err = err
	a.mu.Unlock()
}

// Routine is the caller-supplied body Using runs under a held,
// auto-extended lock.
type Routine func(ctx context.Context, abort *AbortSignal) error

// Using acquires a lock over resources, runs routine under it, and
// releases on every exit path, proactively extending the lock so a
// long-running routine does not lose ownership.
//
// AutomaticExtensionThreshold must be no greater than duration - 100ms.
func (c *Coordinator) Using(ctx context.Context, resources []string, duration time.Duration, routine Routine, opts ...Option) error {
	if err := validateDuration(duration); err != nil {
		return err
	}

	settings := applySettings(c.settings, opts)
	if settings.AutomaticExtensionThreshold > duration-100*time.Millisecond {
		return newDomainError("automaticExtensionThreshold must be no greater than duration - 100ms")
	}

	lock, err := c.Acquire(ctx, resources, duration, opts...)
	if err != nil {
		return err
	}

	abort := &AbortSignal{}

	var mu sync.Mutex
	current := lock

	stop := make(chan struct{})
	extenderDone := make(chan struct{})

	go c.runExtender(ctx, duration, settings, opts, &mu, &current, abort, stop, extenderDone)

	finish := func() error {
		close(stop)
		<-extenderDone

		mu.Lock()
		finalLock := current
		mu.Unlock()

		_, err := c.Release(ctx, finalLock)
		return err
	}

	var routineErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				_ = finish()
				panic(r)
			}
		}()
		routineErr = routine(ctx, abort)
	}()

	releaseErr := finish()
	if routineErr != nil {
		return routineErr
	}
	return releaseErr
}

// runExtender drives the Acquired ↔ Extending → Aborted state machine:
// it schedules a timer to fire AutomaticExtensionThreshold before the
// current lock's deadline, extends on fire, and retries immediately
// (per spec.md §9's open question (a)) while the lock remains live,
// giving up only once it has actually expired.
func (c *Coordinator) runExtender(
	ctx context.Context,
	duration time.Duration,
	settings Settings,
	opts []Option,
	mu *sync.Mutex,
	current **Lock,
	abort *AbortSignal,
	stop <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)

	for {
		mu.Lock()
		l := *current
		mu.Unlock()

		wait := time.Until(l.Expiration()) - settings.AutomaticExtensionThreshold
		timer := time.NewTimer(wait)

		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		for {
			newLock, err := c.Extend(ctx, l, duration, opts...)
			if err == nil {
				mu.Lock()
				*current = newLock
				mu.Unlock()
				break
			}
			if l.Live() {
				continue
			}
			abort.trip(err)
			return
		}
	}
}
