// Package middleware provides mutual-exclusion middleware for HTTP and
// gRPC servers, backed by a redlock.Locker.
//
// # Gin, Echo, and Fiber
//
// Framework-specific middleware lives in the ginmw, echomw, and fibermw
// sub-packages so importing this package's net/http middleware does not
// pull in those frameworks:
//
//	import "github.com/krishna-kudari/redlock/middleware/ginmw"
//	import "github.com/krishna-kudari/redlock/middleware/echomw"
//	import "github.com/krishna-kudari/redlock/middleware/fibermw"
//
// # gRPC
//
// gRPC interceptors live in the grpcmw sub-package for the same reason:
//
//	import "github.com/krishna-kudari/redlock/middleware/grpcmw"
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/krishna-kudari/redlock"
)

// KeyFunc extracts the resource names a request must hold a lock on
// before being served. Most handlers return a single resource, e.g. an
// idempotency key or a resource ID path parameter.
type KeyFunc func(r *http.Request) []string

// ErrorHandler is called when the locker returns an error other than a
// failure to reach quorum (e.g. an invalid Duration or a cancelled
// request context). Unreachable stores count as against-votes and end
// in a quorum failure, which goes to ConflictHandler instead.
// Default behavior: 500 Internal Server Error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ConflictHandler is called when the resource is already locked by
// another in-flight request. Default behavior: 409 Conflict.
type ConflictHandler func(w http.ResponseWriter, r *http.Request, err error)

// Config holds the mutual-exclusion middleware configuration.
type Config struct {
	// Locker acquires and releases the distributed lock (required).
	Locker redlock.Locker

	// KeyFunc extracts the resource names to lock for the request
	// (required).
	KeyFunc KeyFunc

	// Duration is how long the lock is held before it would expire on
	// its own if the handler never returns. Default: 30s.
	Duration time.Duration

	// ErrorHandler is called on a non-quorum locker error.
	// Default: responds with 500.
	ErrorHandler ErrorHandler

	// ConflictHandler is called when the resource is already held.
	// Default: responds with 409 and a plain-text body.
	ConflictHandler ConflictHandler

	// ExcludePaths are request paths that bypass locking entirely.
	ExcludePaths map[string]bool
}

// Lock creates HTTP middleware with default settings, serializing
// requests that share a resource name extracted by keyFunc.
func Lock(locker redlock.Locker, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return LockWithConfig(Config{Locker: locker, KeyFunc: keyFunc})
}

// LockWithConfig creates mutual-exclusion middleware with full
// configuration control.
func LockWithConfig(cfg Config) func(http.Handler) http.Handler {
	if cfg.Locker == nil {
		panic("redlock/middleware: Locker is required")
	}
	if cfg.KeyFunc == nil {
		panic("redlock/middleware: KeyFunc is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Second
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	if cfg.ConflictHandler == nil {
		cfg.ConflictHandler = defaultConflictHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			resources := cfg.KeyFunc(r)
			lock, err := cfg.Locker.Acquire(r.Context(), resources, cfg.Duration)
			if err != nil {
				if _, ok := err.(*redlock.ExecutionError); ok {
					cfg.ConflictHandler(w, r, err)
					return
				}
				cfg.ErrorHandler(w, r, err)
				return
			}
			defer cfg.Locker.Release(r.Context(), lock)

			next.ServeHTTP(w, r)
		})
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByHeader returns a KeyFunc that locks on the value of the given
// header — typically an idempotency key.
func KeyByHeader(header string) KeyFunc {
	return func(r *http.Request) []string {
		return []string{r.Header.Get(header)}
	}
}

// KeyByPath returns a KeyFunc that locks on the request path, so at
// most one in-flight request is served per distinct path.
func KeyByPath(r *http.Request) []string {
	return []string{r.URL.Path}
}

// KeyByPathAndHeader combines the request path and a header value,
// useful for per-resource idempotency keys scoped under a route, e.g.
// PUT /orders/{id} guarded by an X-Idempotency-Key header.
func KeyByPathAndHeader(header string) KeyFunc {
	return func(r *http.Request) []string {
		return []string{strings.TrimSuffix(r.URL.Path, "/") + ":" + r.Header.Get(header)}
	}
}

// ─── Default Handlers ────────────────────────────────────────────────────────

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func defaultConflictHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusConflict)
	fmt.Fprintln(w, "resource is locked by another in-flight request")
}
