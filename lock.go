package redlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"github.com/krishna-kudari/redlock/store"
)

// Lock is a handle on exclusive, time-bounded ownership of one or more
// resources. A handle is "live" while Expiration() is in the future;
// it becomes "dead" once released or superseded by a successful Extend
// (Expiration then returns the zero time), or simply once its deadline
// passes (Expiration then returns that past deadline).
//
// A Lock is never shared for mutation across callers: Release and
// Extend each either operate on the handle that produced them or
// return a fresh one.
type Lock struct {
	resources []string
	value     string
	attempts  []*ExecutionStats

	mu         sync.Mutex
	expiration time.Time

	coord *Coordinator
}

// Resources returns the ordered set of resource names this lock covers.
func (l *Lock) Resources() []string { return append([]string(nil), l.resources...) }

// Value returns the lock's opaque random value, shared by the handle
// returned from Extend.
func (l *Lock) Value() string { return l.value }

// Attempts returns the per-attempt stats from the call that produced
// this handle.
func (l *Lock) Attempts() []*ExecutionStats { return l.attempts }

// Expiration returns the deadline at which ownership is no longer
// guaranteed, or the zero time if the lock has been explicitly
// released or superseded by Extend.
func (l *Lock) Expiration() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expiration
}

// Live reports whether the lock's deadline is still in the future.
func (l *Lock) Live() bool {
	return time.Now().Before(l.Expiration())
}

func (l *Lock) setExpiration(t time.Time) {
	l.mu.Lock()
	l.expiration = t
	l.mu.Unlock()
}

// Restore reconstructs a Lock handle for resources a caller already
// believes it owns (e.g. a value and deadline persisted across a
// process restart), without performing a fresh Acquire. It trusts the
// caller: nothing re-checks that the stores still hold this value
// until the next Extend or Release, which will fail normally if they
// don't.
func Restore(coord *Coordinator, resources []string, value string, expiration time.Time) *Lock {
	return &Lock{
		resources:  append([]string(nil), resources...),
		value:      value,
		expiration: expiration,
		coord:      coord,
	}
}

// Release releases the lock through the Coordinator that produced it.
func (l *Lock) Release(ctx context.Context, opts ...Option) (*ExecutionResult, error) {
	return l.coord.Release(ctx, l, opts...)
}

// Extend extends the lock through the Coordinator that produced it,
// returning a new handle on success.
func (l *Lock) Extend(ctx context.Context, duration time.Duration, opts ...Option) (*Lock, error) {
	return l.coord.Extend(ctx, l, duration, opts...)
}

// ExecutionResult is the outcome of a successful quorum operation:
// the full, in-order list of attempts it took.
type ExecutionResult struct {
	Attempts []*ExecutionStats
}

// Coordinator coordinates acquire/extend/release across a fixed,
// caller-supplied set of stores, following the Redlock algorithm.
// Each Coordinator is self-contained: the stores it's handed are
// supplied by the caller and outlive the Coordinator.
type Coordinator struct {
	clients   []namedClient
	settings  Settings
	scripts   *scriptRegistry
	emitter   *emitter
	attempter *quorumAttempter
}

// coordinatorConfig accumulates construction-time options: the base
// Settings and any script-body rewrites, applied once when the
// registry is built.
type coordinatorConfig struct {
	settings Settings
	rewrites map[ScriptKind]func(string) string
}

// CoordinatorOption configures a Coordinator at construction time.
type CoordinatorOption func(*coordinatorConfig)

// WithSettings applies Settings overrides to the Coordinator's
// defaults, used for every call unless overridden per-call.
func WithSettings(opts ...Option) CoordinatorOption {
	return func(c *coordinatorConfig) { c.settings = applySettings(c.settings, opts) }
}

// WithScriptRewrite registers a rewrite applied once, at construction,
// to the named script's body before its SHA-1 digest is computed.
func WithScriptRewrite(kind ScriptKind, rewrite func(body string) string) CoordinatorOption {
	return func(c *coordinatorConfig) {
		if c.rewrites == nil {
			c.rewrites = make(map[ScriptKind]func(string) string)
		}
		c.rewrites[kind] = rewrite
	}
}

// New constructs a Coordinator over the given named stores. Construction
// fails if the store set is empty.
func New(stores map[string]store.Client, opts ...CoordinatorOption) (*Coordinator, error) {
	if len(stores) == 0 {
		return nil, newDomainError("store set must not be empty")
	}

	cfg := coordinatorConfig{settings: defaultSettings()}
	for _, o := range opts {
		o(&cfg)
	}

	clients := make([]namedClient, 0, len(stores))
	for name, c := range stores {
		clients = append(clients, namedClient{name: name, client: c})
	}

	em := newEmitter()
	c := &Coordinator{
		clients:  clients,
		settings: cfg.settings,
		scripts:  newScriptRegistry(cfg.rewrites),
		emitter:  em,
	}
	c.attempter = &quorumAttempter{clients: clients, onVoteAgainst: em.emit}
	return c, nil
}

// OnError registers a handler invoked with every non-fatal per-store
// error the quorum engine observes.
func (c *Coordinator) OnError(handler ErrorHandler) {
	c.emitter.OnError(handler)
}

// Quit releases every underlying store connection. It does not
// release any outstanding locks.
func (c *Coordinator) Quit(ctx context.Context) error {
	var merr error
	for _, nc := range c.clients {
		if err := nc.client.Quit(ctx); err != nil && merr == nil {
			merr = err
		}
	}
	return merr
}

// Acquire requests exclusive, time-bounded ownership of resources for
// duration. duration must be a whole number of milliseconds.
func (c *Coordinator) Acquire(ctx context.Context, resources []string, duration time.Duration, opts ...Option) (*Lock, error) {
	if err := validateDuration(duration); err != nil {
		return nil, err
	}

	value, err := randomValue()
	if err != nil {
		return nil, err
	}

	settings := applySettings(c.settings, opts)
	start := time.Now()

	driver := &retryDriver{attempter: c.attempter, settings: settings}
	_, attempts, err := driver.run(ctx, c.scripts.acquire, resources, value, duration.Milliseconds())
	if err != nil {
		c.cleanupPartial(ctx, resources, value)
		return nil, err
	}

	drift := computeDrift(settings.DriftFactor, duration)
	return &Lock{
		resources:  append([]string(nil), resources...),
		value:      value,
		attempts:   attempts,
		expiration: start.Add(duration - drift),
		coord:      c,
	}, nil
}

// Extend resets lock's expiry to duration from now, returning a new
// handle on success and marking the old handle dead. It fails without
// mutating any key if lock has already expired.
func (c *Coordinator) Extend(ctx context.Context, lock *Lock, duration time.Duration, opts ...Option) (*Lock, error) {
	if err := validateDuration(duration); err != nil {
		return nil, err
	}

	start := time.Now()
	if lock.Expiration().Before(start) {
		return nil, newDomainError("cannot extend an already-expired lock")
	}

	settings := applySettings(c.settings, opts)
	driver := &retryDriver{attempter: c.attempter, settings: settings}
	_, attempts, err := driver.run(ctx, c.scripts.extend, lock.resources, lock.value, duration.Milliseconds())
	if err != nil {
		return nil, err
	}

	drift := computeDrift(settings.DriftFactor, duration)
	newLock := &Lock{
		resources:  lock.resources,
		value:      lock.value,
		attempts:   attempts,
		expiration: start.Add(duration - drift),
		coord:      c,
	}
	lock.setExpiration(time.Time{})
	return newLock, nil
}

// Release invalidates lock immediately (regardless of quorum outcome)
// and runs the release script. Failure to reach quorum surfaces as an
// *ExecutionError; callers may choose to ignore it since the lock's
// TTL will eventually reclaim it.
func (c *Coordinator) Release(ctx context.Context, lock *Lock, opts ...Option) (*ExecutionResult, error) {
	lock.setExpiration(time.Time{})

	settings := applySettings(c.settings, opts)
	driver := &retryDriver{attempter: c.attempter, settings: settings}
	_, attempts, err := driver.run(ctx, c.scripts.release, lock.resources, lock.value)
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Attempts: attempts}, nil
}

// cleanupPartial performs a best-effort, single-attempt release of a
// partially acquired lock, swallowing any error.
func (c *Coordinator) cleanupPartial(ctx context.Context, resources []string, value string) {
	driver := &retryDriver{
		attempter: c.attempter,
		settings:  applySettings(c.settings, []Option{WithRetryCount(0)}),
	}
	_, _, _ = driver.run(ctx, c.scripts.release, resources, value)
}

func validateDuration(d time.Duration) error {
	if d <= 0 || d%time.Millisecond != 0 {
		return newDomainError("duration must be an integer value in milliseconds")
	}
	return nil
}

func computeDrift(driftFactor float64, duration time.Duration) time.Duration {
	ms := math.Round(driftFactor*float64(duration.Milliseconds())) + 2
	return time.Duration(ms) * time.Millisecond
}

func randomValue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
