// Package metrics provides Prometheus instrumentation for a redlock
// Coordinator.
//
// Wrap any redlock.Locker to automatically record per-operation counts,
// latency, and quorum outcomes:
//
//	collector := metrics.NewCollector()
//	coord, _ := redlock.New(stores)
//	locker := metrics.Wrap(coord, collector)
//
// All metrics are partitioned by operation (acquire / extend / release).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krishna-kudari/redlock"
)

// Operation name constants for the operation label.
const (
	Acquire = "acquire"
	Extend  = "extend"
	Release = "release"
)

// Collector holds Prometheus metric vectors for Coordinator instrumentation.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	attempts   *prometheus.HistogramVec
	votes      *prometheus.CounterVec
}

type collectorConfig struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer
	buckets   []float64
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

// WithNamespace sets the Prometheus metric namespace (prefix).
func WithNamespace(ns string) CollectorOption {
	return func(c *collectorConfig) { c.namespace = ns }
}

// WithSubsystem sets the Prometheus metric subsystem.
func WithSubsystem(sub string) CollectorOption {
	return func(c *collectorConfig) { c.subsystem = sub }
}

// WithRegistry registers metrics with the given Registerer instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) CollectorOption {
	return func(c *collectorConfig) { c.registry = r }
}

// WithBuckets sets custom histogram buckets for operation duration.
func WithBuckets(b []float64) CollectorOption {
	return func(c *collectorConfig) { c.buckets = b }
}

var defaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// NewCollector creates a Collector and registers its metrics.
//
// Metrics registered:
//   - {namespace}_operations_total        counter   (operation, outcome)
//   - {namespace}_operation_duration_seconds  histogram (operation)
//   - {namespace}_errors_total          counter   (operation)
//   - {namespace}_attempts               histogram (operation) — retry rounds per call
//   - {namespace}_votes_against_total    counter   (operation) — per-store against-votes observed
//
// Default namespace is "redlock".
func NewCollector(opts ...CollectorOption) *Collector {
	cfg := &collectorConfig{
		namespace: "redlock",
		registry:  prometheus.DefaultRegisterer,
		buckets:   defaultBuckets,
	}
	for _, o := range opts {
		o(cfg)
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "operations_total",
		Help:      "Total coordinator operations partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Latency of Acquire/Extend/Release calls in seconds.",
		Buckets:   cfg.buckets,
	}, []string{"operation"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "errors_total",
		Help:      "Total operations that returned a non-nil error.",
	}, []string{"operation"})

	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "attempts",
		Help:      "Number of quorum retry rounds a call took.",
		Buckets:   []float64{1, 2, 3, 5, 8, 11, 20},
	}, []string{"operation"})

	votes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "votes_against_total",
		Help:      "Total per-store against-votes observed across all attempts.",
	}, []string{"operation"})

	cfg.registry.MustRegister(operations, duration, errs, attempts, votes)

	return &Collector{
		operations: operations,
		duration:   duration,
		errors:     errs,
		attempts:   attempts,
		votes:      votes,
	}
}

// Wrap returns a redlock.Locker that transparently records Prometheus
// metrics for every Acquire, Extend, and Release delegated to inner.
// Using is delegated without instrumentation: neither the call itself
// nor the Acquire/Extend/Release calls the inner Locker makes for it
// are recorded.
func Wrap(inner redlock.Locker, c *Collector) redlock.Locker {
	return &instrumentedLocker{inner: inner, collector: c}
}

type instrumentedLocker struct {
	inner     redlock.Locker
	collector *Collector
}

func (l *instrumentedLocker) Acquire(ctx context.Context, resources []string, duration time.Duration, opts ...redlock.Option) (*redlock.Lock, error) {
	start := time.Now()
	lock, err := l.inner.Acquire(ctx, resources, duration, opts...)
	l.record(Acquire, start, err, attemptsOf(lock, err))
	return lock, err
}

func (l *instrumentedLocker) Extend(ctx context.Context, lock *redlock.Lock, duration time.Duration, opts ...redlock.Option) (*redlock.Lock, error) {
	start := time.Now()
	newLock, err := l.inner.Extend(ctx, lock, duration, opts...)
	l.record(Extend, start, err, attemptsOf(newLock, err))
	return newLock, err
}

func (l *instrumentedLocker) Release(ctx context.Context, lock *redlock.Lock, opts ...redlock.Option) (*redlock.ExecutionResult, error) {
	start := time.Now()
	result, err := l.inner.Release(ctx, lock, opts...)
	var n int
	if result != nil {
		n = len(result.Attempts)
	} else if execErr, ok := err.(*redlock.ExecutionError); ok {
		n = len(execErr.Attempts)
	}
	l.record(Release, start, err, n)
	return result, err
}

func (l *instrumentedLocker) Using(ctx context.Context, resources []string, duration time.Duration, routine redlock.Routine, opts ...redlock.Option) error {
	return l.inner.Using(ctx, resources, duration, routine, opts...)
}

func (l *instrumentedLocker) record(operation string, start time.Time, err error, attemptCount int) {
	l.collector.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	outcome := "granted"
	if err != nil {
		outcome = "denied"
		l.collector.errors.WithLabelValues(operation).Inc()
	}
	l.collector.operations.WithLabelValues(operation, outcome).Inc()

	if attemptCount > 0 {
		l.collector.attempts.WithLabelValues(operation).Observe(float64(attemptCount))
	}

	if execErr, ok := err.(*redlock.ExecutionError); ok {
		for _, a := range execErr.Attempts {
			l.collector.votes.WithLabelValues(operation).Add(float64(len(a.VotesAgainst)))
		}
	}
}

func attemptsOf(lock *redlock.Lock, err error) int {
	if lock != nil {
		return len(lock.Attempts())
	}
	if execErr, ok := err.(*redlock.ExecutionError); ok {
		return len(execErr.Attempts)
	}
	return 0
}
