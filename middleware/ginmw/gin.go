// Package ginmw provides Gin middleware that serializes requests
// through a redlock.Locker.
//
// Separated from the middleware package so that importing the
// net/http middleware does not pull in github.com/gin-gonic/gin.
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	r := gin.Default()
//	r.Use(ginmw.Lock(coord, ginmw.KeyByParam("id")))
package ginmw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krishna-kudari/redlock"
)

// KeyFunc extracts the resource names a request must hold a lock on
// from a Gin context.
type KeyFunc func(c *gin.Context) []string

// ConflictHandler is called when the resource is already locked.
type ConflictHandler func(c *gin.Context, err error)

// ErrorHandler is called when the locker returns a non-quorum error.
type ErrorHandler func(c *gin.Context, err error)

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
	// Default: fail open, call c.Next().
	ErrorHandler ErrorHandler

	// ExcludePaths are request paths that bypass locking entirely.
	ExcludePaths map[string]bool
}

// Lock creates Gin middleware with default settings.
func Lock(locker redlock.Locker, keyFunc KeyFunc) gin.HandlerFunc {
	return LockWithConfig(Config{Locker: locker, KeyFunc: keyFunc})
}

// LockWithConfig creates Gin middleware with full configuration control.
func LockWithConfig(cfg Config) gin.HandlerFunc {
	if cfg.Locker == nil {
		panic("ginmw: Locker is required")
	}
	if cfg.KeyFunc == nil {
		panic("ginmw: KeyFunc is required")
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

	return func(c *gin.Context) {
		if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		resources := cfg.KeyFunc(c)
		lock, err := cfg.Locker.Acquire(c.Request.Context(), resources, cfg.Duration)
		if err != nil {
			if _, ok := err.(*redlock.ExecutionError); ok {
				cfg.ConflictHandler(c, err)
				return
			}
			cfg.ErrorHandler(c, err)
			return
		}
		defer cfg.Locker.Release(c.Request.Context(), lock)

		c.Next()
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByParam returns a KeyFunc that locks on a URL parameter, e.g. the
// resource ID in PUT /orders/:id.
func KeyByParam(param string) KeyFunc {
	return func(c *gin.Context) []string {
		return []string{c.Param(param)}
	}
}

// KeyByHeader returns a KeyFunc that locks on a request header value.
func KeyByHeader(header string) KeyFunc {
	return func(c *gin.Context) []string {
		return []string{c.GetHeader(header)}
	}
}

// KeyByPathAndClientIP combines the request path and client IP.
func KeyByPathAndClientIP(c *gin.Context) []string {
	return []string{c.FullPath() + ":" + c.ClientIP()}
}

// ─── Internals ───────────────────────────────────────────────────────────────

func defaultConflictHandler(c *gin.Context, _ error) {
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "resource is locked by another in-flight request"})
}

func defaultErrorHandler(c *gin.Context, _ error) {
	c.Next()
}
