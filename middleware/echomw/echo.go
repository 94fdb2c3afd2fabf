// Package echomw provides Echo middleware that serializes requests
// through a redlock.Locker.
//
// Separated from the middleware package so that importing the
// net/http middleware does not pull in github.com/labstack/echo.
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	e := echo.New()
//	e.Use(echomw.Lock(coord, echomw.KeyByParam("id")))
package echomw

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/krishna-kudari/redlock"
)

// KeyFunc extracts the resource names a request must hold a lock on
// from an Echo context.
type KeyFunc func(c echo.Context) []string

// ConflictHandler is called when the resource is already locked.
type ConflictHandler func(c echo.Context, err error) error

// ErrorHandler is called when the locker returns a non-quorum error.
type ErrorHandler func(c echo.Context, err error) error

// Config holds the mutual-exclusion middleware configuration.
type Config struct {
	// Locker acquires and releases the distributed lock (required).
	Locker redlock.Locker

	// KeyFunc extracts the resource names to lock (required).
	KeyFunc KeyFunc

	// Duration is how long the lock is held. Default: 30s.
	Duration time.Duration

	// ConflictHandler is called on a quorum failure. Default: 409 JSON.
	ConflictHandler ConflictHandler

	// ErrorHandler is called on a non-quorum locker error.
	// Default: pass-through (fail open).
	ErrorHandler ErrorHandler

	// ExcludePaths are request paths that bypass locking entirely.
	ExcludePaths map[string]bool
}

// Lock creates Echo middleware with default settings.
func Lock(locker redlock.Locker, keyFunc KeyFunc) echo.MiddlewareFunc {
	return LockWithConfig(Config{Locker: locker, KeyFunc: keyFunc})
}

// LockWithConfig creates Echo middleware with full configuration control.
func LockWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Locker == nil {
		panic("echomw: Locker is required")
	}
	if cfg.KeyFunc == nil {
		panic("echomw: KeyFunc is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Second
	}
	if cfg.ConflictHandler == nil {
		cfg.ConflictHandler = defaultConflictHandler
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Request().URL.Path] {
				return next(c)
			}

			resources := cfg.KeyFunc(c)
			lock, err := cfg.Locker.Acquire(c.Request().Context(), resources, cfg.Duration)
			if err != nil {
				if _, ok := err.(*redlock.ExecutionError); ok {
					return cfg.ConflictHandler(c, err)
				}
				return cfg.ErrorHandler(c, err)
			}
			defer cfg.Locker.Release(c.Request().Context(), lock)

			return next(c)
		}
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByParam returns a KeyFunc that locks on a path parameter.
func KeyByParam(param string) KeyFunc {
	return func(c echo.Context) []string {
		return []string{c.Param(param)}
	}
}

// KeyByHeader returns a KeyFunc that locks on a request header value.
func KeyByHeader(header string) KeyFunc {
	return func(c echo.Context) []string {
		return []string{c.Request().Header.Get(header)}
	}
}

// KeyByPathAndRealIP combines the request path and real IP.
func KeyByPathAndRealIP(c echo.Context) []string {
	return []string{c.Path() + ":" + c.RealIP()}
}

// ─── Internals ───────────────────────────────────────────────────────────────

func defaultConflictHandler(c echo.Context, _ error) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": "resource is locked by another in-flight request"})
}

func defaultErrorHandler(c echo.Context, _ error) error {
	return nil
}
