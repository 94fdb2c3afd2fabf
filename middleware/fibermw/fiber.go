// Package fibermw provides Fiber middleware that serializes requests
// through a redlock.Locker.
//
// Separated from the middleware package so that importing the
// net/http middleware does not pull in github.com/gofiber/fiber. Fiber
// uses fasthttp (not net/http), so a dedicated adapter is required.
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	app := fiber.New()
//	app.Use(fibermw.Lock(coord, fibermw.KeyByParam("id")))
package fibermw

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/krishna-kudari/redlock"
)

// KeyFunc extracts the resource names a request must hold a lock on
// from a Fiber context.
type KeyFunc func(c *fiber.Ctx) []string

// ConflictHandler is called when the resource is already locked.
type ConflictHandler func(c *fiber.Ctx, err error) error

// ErrorHandler is called when the locker returns a non-quorum error.
type ErrorHandler func(c *fiber.Ctx, err error) error

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

// Lock creates Fiber middleware with default settings.
func Lock(locker redlock.Locker, keyFunc KeyFunc) fiber.Handler {
	return LockWithConfig(Config{Locker: locker, KeyFunc: keyFunc})
}

// LockWithConfig creates Fiber middleware with full configuration control.
func LockWithConfig(cfg Config) fiber.Handler {
	if cfg.Locker == nil {
		panic("fibermw: Locker is required")
	}
	if cfg.KeyFunc == nil {
		panic("fibermw: KeyFunc is required")
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

	return func(c *fiber.Ctx) error {
		if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Path()] {
			return c.Next()
		}

		resources := cfg.KeyFunc(c)
		lock, err := cfg.Locker.Acquire(c.UserContext(), resources, cfg.Duration)
		if err != nil {
			if _, ok := err.(*redlock.ExecutionError); ok {
				return cfg.ConflictHandler(c, err)
			}
			return cfg.ErrorHandler(c, err)
		}
		defer cfg.Locker.Release(c.UserContext(), lock)

		return c.Next()
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByParam returns a KeyFunc that locks on a route parameter.
func KeyByParam(param string) KeyFunc {
	return func(c *fiber.Ctx) []string {
		return []string{c.Params(param)}
	}
}

// KeyByHeader returns a KeyFunc that locks on a request header value.
func KeyByHeader(header string) KeyFunc {
	return func(c *fiber.Ctx) []string {
		return []string{c.Get(header)}
	}
}

// KeyByPathAndIP combines the request path and client IP.
func KeyByPathAndIP(c *fiber.Ctx) []string {
	return []string{c.Path() + ":" + c.IP()}
}

// ─── Internals ───────────────────────────────────────────────────────────────

func defaultConflictHandler(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "resource is locked by another in-flight request"})
}

func defaultErrorHandler(c *fiber.Ctx, _ error) error {
	return c.Next()
}
