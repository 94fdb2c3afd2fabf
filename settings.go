package redlock

import "time"

// Settings configures a Coordinator. They are frozen at construction;
// per-call overrides (the variadic Option args on Acquire/Extend/
// Release/Using) are layered on top of a copy and never mutate the
// Coordinator's own Settings.
type Settings struct {
	// DriftFactor is the fraction of the requested duration
	// subtracted, plus 2ms, from the computed deadline to tolerate
	// store clock skew and expiry granularity. Default 0.01.
	DriftFactor float64

	// RetryCount is the maximum number of additional attempts after
	// the first. -1 means unlimited. Default 10.
	RetryCount int

	// RetryDelay is the base inter-attempt delay. Default 200ms.
	RetryDelay time.Duration

	// RetryJitter is symmetric uniform noise added to RetryDelay,
	// in the range ±RetryJitter. Default 100ms.
	RetryJitter time.Duration

	// AutomaticExtensionThreshold is the remaining-time threshold at
	// which Using pre-emptively extends the lock. Default 500ms.
	AutomaticExtensionThreshold time.Duration
}

func defaultSettings() Settings {
	return Settings{
		DriftFactor:                 0.01,
		RetryCount:                  10,
		RetryDelay:                  200 * time.Millisecond,
		RetryJitter:                 100 * time.Millisecond,
		AutomaticExtensionThreshold: 500 * time.Millisecond,
	}
}

// Option configures a Coordinator at construction, or overrides its
// Settings for a single Acquire/Extend/Release/Using call.
type Option func(*Settings)

// WithDriftFactor overrides DriftFactor.
func WithDriftFactor(f float64) Option {
	return func(s *Settings) { s.DriftFactor = f }
}

// WithRetryCount overrides RetryCount. -1 means unlimited.
func WithRetryCount(n int) Option {
	return func(s *Settings) { s.RetryCount = n }
}

// WithRetryDelay overrides RetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Settings) { s.RetryDelay = d }
}

// WithRetryJitter overrides RetryJitter.
func WithRetryJitter(d time.Duration) Option {
	return func(s *Settings) { s.RetryJitter = d }
}

// WithAutomaticExtensionThreshold overrides AutomaticExtensionThreshold,
// consulted only by Using.
func WithAutomaticExtensionThreshold(d time.Duration) Option {
	return func(s *Settings) { s.AutomaticExtensionThreshold = d }
}

func applySettings(base Settings, opts []Option) Settings {
	s := base
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
