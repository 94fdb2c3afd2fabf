package redlock

import (
	"fmt"
	"time"

	"github.com/krishna-kudari/redlock/store"
)

// Builder provides a fluent API for constructing a Coordinator.
//
//	coord, err := redlock.NewBuilder().
//	    Store("a", redisstore.New(clientA)).
//	    Store("b", redisstore.New(clientB)).
//	    Store("c", redisstore.New(clientC)).
//	    RetryCount(5).
//	    Build()
type Builder struct {
	stores   map[string]store.Client
	opts     []Option
	rewrites map[ScriptKind]func(string) string
}

// NewBuilder returns a new Builder with no stores and default Settings.
func NewBuilder() *Builder {
	return &Builder{stores: make(map[string]store.Client)}
}

// Store adds one named store to the set the built Coordinator will
// fan out to. name is used only for diagnostics (attempt stats and
// ExecutionError messages).
func (b *Builder) Store(name string, c store.Client) *Builder {
	b.stores[name] = c
	return b
}

// DriftFactor overrides Settings.DriftFactor.
func (b *Builder) DriftFactor(f float64) *Builder {
	b.opts = append(b.opts, WithDriftFactor(f))
	return b
}

// RetryCount overrides Settings.RetryCount. -1 means unlimited.
func (b *Builder) RetryCount(n int) *Builder {
	b.opts = append(b.opts, WithRetryCount(n))
	return b
}

// RetryDelay overrides Settings.RetryDelay.
func (b *Builder) RetryDelay(d time.Duration) *Builder {
	b.opts = append(b.opts, WithRetryDelay(d))
	return b
}

// RetryJitter overrides Settings.RetryJitter.
func (b *Builder) RetryJitter(d time.Duration) *Builder {
	b.opts = append(b.opts, WithRetryJitter(d))
	return b
}

// AutomaticExtensionThreshold overrides Settings.AutomaticExtensionThreshold.
func (b *Builder) AutomaticExtensionThreshold(d time.Duration) *Builder {
	b.opts = append(b.opts, WithAutomaticExtensionThreshold(d))
	return b
}

// ScriptRewrite registers a one-time rewrite for the named script,
// applied when Build computes the script registry.
func (b *Builder) ScriptRewrite(kind ScriptKind, rewrite func(body string) string) *Builder {
	if b.rewrites == nil {
		b.rewrites = make(map[ScriptKind]func(string) string)
	}
	b.rewrites[kind] = rewrite
	return b
}

// Build validates the configuration and returns the configured
// Coordinator. Fails if no stores were added.
func (b *Builder) Build() (*Coordinator, error) {
	if len(b.stores) == 0 {
		return nil, fmt.Errorf("redlock: no stores added; call Store at least once before Build")
	}
	copts := []CoordinatorOption{WithSettings(b.opts...)}
	for kind, rewrite := range b.rewrites {
		copts = append(copts, WithScriptRewrite(kind, rewrite))
	}
	return New(b.stores, copts...)
}
