// Package store defines the backend contract redlock's quorum engine
// depends on. redlock never imports a Redis client directly; each
// store.Client in the set it's handed is an independent, opaque
// collaborator invoked through this narrow interface.
//
// The primary implementation is the Redis-backed Client in store/redis,
// built on redis.UniversalClient (standalone, Cluster, Ring, Sentinel).
// store/memtest provides an in-process fake for unit tests that don't
// want a live Redis.
package store

import "context"

// Client abstracts one independent key-value endpoint participating in
// the quorum. Implementations must be safe for concurrent use — the
// quorum attempter invokes every Client in a set concurrently.
type Client interface {
	// EvalSha executes a cached script by its SHA-1 digest. When the
	// store has not cached the script it returns an error whose
	// message is prefixed "NOSCRIPT"; callers should retry with Eval.
	EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) (interface{}, error)

	// Eval executes a script by its raw text, causing the store to
	// cache it (by SHA-1) as a side effect.
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)

	// Del deletes keys unconditionally. The redlock package does not
	// call it: release and the best-effort cleanup after a failed
	// acquire both go through the release script.
	Del(ctx context.Context, keys ...string) error

	// Quit releases any resources held by the client connection.
	Quit(ctx context.Context) error
}

// IsNoScript reports whether err is the store's "script not cached"
// signal — an error whose message is prefixed "NOSCRIPT".
func IsNoScript(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return len(msg) >= len(noScriptPrefix) && msg[:len(noScriptPrefix)] == noScriptPrefix
}

const noScriptPrefix = "NOSCRIPT"
