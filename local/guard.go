// Package local provides an in-process arbitration layer in front of a
// redlock.Locker.
//
// Two goroutines in the same process racing for the same resource both
// pay for a full quorum round trip, and one of them is guaranteed to
// lose and burn through its retry budget. Guard serializes same-process
// callers per resource before either reaches the network, so only the
// local winner ever calls the wrapped Locker:
//
//	coord, _ := redlock.New(stores)
//	guard := local.New(coord)
//	lock, err := guard.Acquire(ctx, []string{"order:42"}, 10*time.Second)
//	// ... work ...
//	lock.Release(ctx)
//
// Guard never decides ownership on its own — the wrapped Locker's
// quorum is still the only source of truth. It only prevents local
// contention from reaching it.
package local

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/krishna-kudari/redlock"
)

// Option configures a Guard.
type Option func(*config)

type config struct {
	idleTTL time.Duration
}

// WithIdleTTL sets how long an unreferenced per-resource arbiter is
// kept around before being evicted. Default: 1 minute.
func WithIdleTTL(d time.Duration) Option {
	return func(c *config) { c.idleTTL = d }
}

// Guard wraps a redlock.Locker, serializing local Acquire calls that
// share at least one resource.
type Guard struct {
	inner    redlock.Locker
	config   config
	mu       sync.Mutex
	arbiters map[string]*arbiter
	closeCh  chan struct{}
	closed   bool
}

type arbiter struct {
	mu       sync.Mutex
	lastUsed time.Time
	refs     int
}

// New wraps inner with an in-process arbitration layer.
func New(inner redlock.Locker, opts ...Option) *Guard {
	cfg := config{idleTTL: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &Guard{
		inner:    inner,
		config:   cfg,
		arbiters: make(map[string]*arbiter),
		closeCh:  make(chan struct{}),
	}
	go g.evictionLoop()
	return g
}

// Close stops the background eviction goroutine. It does not release
// any outstanding locks.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.closeCh)
	}
}

// Acquire blocks until every local arbiter for resources is free, then
// delegates to the wrapped Locker. The arbiters stay held until the
// returned GuardedLock is released (or Acquire itself fails).
func (g *Guard) Acquire(ctx context.Context, resources []string, duration time.Duration, opts ...redlock.Option) (*GuardedLock, error) {
	held := g.acquireArbiters(resources)

	lock, err := g.inner.Acquire(ctx, resources, duration, opts...)
	if err != nil {
		g.releaseArbiters(resources, held)
		return nil, err
	}
	return &GuardedLock{guard: g, resources: resources, held: held, lock: lock}, nil
}

// Using acquires, runs routine, and releases through the same local
// arbitration as Acquire, regardless of how routine exits.
func (g *Guard) Using(ctx context.Context, resources []string, duration time.Duration, routine redlock.Routine, opts ...redlock.Option) error {
	held := g.acquireArbiters(resources)
	defer g.releaseArbiters(resources, held)

	return g.inner.Using(ctx, resources, duration, routine, opts...)
}

// acquireArbiters locks, in a fixed global order, one arbiter per
// distinct resource name. Sorting resources first (rather than locking
// in caller-supplied order) is what makes two overlapping but
// differently-ordered resource sets unable to deadlock against each
// other.
func (g *Guard) acquireArbiters(resources []string) []*arbiter {
	names := append([]string(nil), resources...)
	sort.Strings(names)

	held := make([]*arbiter, 0, len(names))
	var lastName string
	for i, name := range names {
		if i > 0 && name == lastName {
			continue // de-dup: the same resource named twice in one call
		}
		lastName = name
		a := g.getOrCreateArbiter(name)
		a.mu.Lock()
		held = append(held, a)
	}
	return held
}

func (g *Guard) releaseArbiters(resources []string, held []*arbiter) {
	for _, a := range held {
		a.mu.Unlock()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range dedupSorted(resources) {
		if a, ok := g.arbiters[name]; ok {
			a.refs--
			a.lastUsed = time.Now()
		}
	}
}

func (g *Guard) getOrCreateArbiter(name string) *arbiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.arbiters[name]
	if !ok {
		a = &arbiter{lastUsed: time.Now()}
		g.arbiters[name] = a
	}
	a.refs++
	return a
}

func (g *Guard) evictionLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.evictIdle()
		case <-g.closeCh:
			return
		}
	}
}

func (g *Guard) evictIdle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for name, a := range g.arbiters {
		if a.refs == 0 && now.Sub(a.lastUsed) >= g.config.idleTTL {
			delete(g.arbiters, name)
		}
	}
}

func dedupSorted(resources []string) []string {
	names := append([]string(nil), resources...)
	sort.Strings(names)
	out := names[:0]
	var last string
	for i, name := range names {
		if i > 0 && name == last {
			continue
		}
		last = name
		out = append(out, name)
	}
	return out
}

// GuardedLock is a Lock held under local arbitration: Release and
// Extend route through the same Guard, and the underlying arbiters are
// held until Release is called.
type GuardedLock struct {
	guard     *Guard
	resources []string
	held      []*arbiter
	lock      *redlock.Lock
}

// Lock returns the underlying distributed lock handle.
func (g *GuardedLock) Lock() *redlock.Lock { return g.lock }

// Release releases the distributed lock and frees the local arbiters
// regardless of the distributed release's outcome.
func (g *GuardedLock) Release(ctx context.Context, opts ...redlock.Option) (*redlock.ExecutionResult, error) {
	defer g.guard.releaseArbiters(g.resources, g.held)
	return g.guard.inner.Release(ctx, g.lock, opts...)
}

// Extend extends the distributed lock in place, keeping the same local
// arbiters held.
func (g *GuardedLock) Extend(ctx context.Context, duration time.Duration, opts ...redlock.Option) error {
	newLock, err := g.guard.inner.Extend(ctx, g.lock, duration, opts...)
	if err != nil {
		return err
	}
	g.lock = newLock
	return nil
}
