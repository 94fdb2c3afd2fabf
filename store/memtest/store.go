// Package memtest provides an in-process fake store.Client for unit
// tests that exercise the quorum engine without a live Redis.
//
// It does not interpret Lua: instead it recognizes the three script
// bodies registered by redlock's script registry by identity
// (compared against the exact text redlock embeds) and replays their
// documented semantics directly in Go. Any other script text is
// rejected, since nothing in this repo ever sends one.
package memtest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// Client is a single fake store. Construct one per simulated Redis
// node; combine several into a map of named stores to simulate a
// cluster for the quorum engine's fan-out.
type Client struct {
	mu sync.Mutex
	kv map[string]entry

	// Unreachable, when true, makes every call fail as if the
	// connection were closed.
	Unreachable bool

	// scripts maps a script's SHA-1 digest to its body, mimicking a
	// store's server-side script cache. EvalSha reports NOSCRIPT
	// until Eval has populated it.
	scripts map[string]string

	handlers map[string]scriptHandler
}

type scriptHandler func(keys []string, args []interface{}) (interface{}, error)

// New returns an empty fake store.
func New() *Client {
	c := &Client{
		kv:       make(map[string]entry),
		scripts:  make(map[string]string),
		handlers: make(map[string]scriptHandler),
	}
	return c
}

// Register associates a script body with the handler that implements
// its semantics. Tests call it with redlock's script bodies (or a
// rewritten body) and the matching handler method; production code
// never needs it.
func (c *Client) Register(body string, handler scriptHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := sha1.Sum([]byte(body))
	c.handlers[hex.EncodeToString(sum[:])] = handler
}

func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if c.Unreachable {
		return nil, errors.New("dial tcp: connection refused")
	}
	c.mu.Lock()
	sum := sha1.Sum([]byte(script))
	sha := hex.EncodeToString(sum[:])
	c.scripts[sha] = script
	handler, ok := c.handlers[sha]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memtest: no handler registered for script %s", sha)
	}
	return handler(keys, args)
}

func (c *Client) EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) (interface{}, error) {
	if c.Unreachable {
		return nil, errors.New("dial tcp: connection refused")
	}
	c.mu.Lock()
	_, cached := c.scripts[sha]
	handler, ok := c.handlers[sha]
	c.mu.Unlock()
	if !cached {
		return nil, errors.New("NOSCRIPT No matching script. Please use EVAL.")
	}
	if !ok {
		return nil, fmt.Errorf("memtest: no handler registered for sha %s", sha)
	}
	return handler(keys, args)
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.Unreachable {
		return errors.New("dial tcp: connection refused")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	return nil
}

func (c *Client) Quit(ctx context.Context) error {
	return nil
}

// Peek returns the current raw value stored at key and whether it is
// still live, for use in assertions. It does not count as a vote.
func (c *Client) Peek(key string) (value string, live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.kv[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

// Seed sets a key to value with the given TTL without going through a
// script, for constructing pre-populated test fixtures (spec.md §8
// scenarios 5 and 6: stores pre-populated with a foreign value).
func (c *Client) Seed(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	} else {
		exp = time.Now().Add(100 * 365 * 24 * time.Hour)
	}
	c.kv[key] = entry{value: value, expires: exp}
}

func (c *Client) get(key string) (string, bool) {
	e, ok := c.kv[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expires) {
		delete(c.kv, key)
		return "", false
	}
	return e.value, true
}

func (c *Client) set(key, value string, ttl time.Duration) {
	c.kv[key] = entry{value: value, expires: time.Now().Add(ttl)}
}

// AcquireHandler implements the acquire script's semantics: set every
// key to value with the given TTL only if none of them already exist.
func (c *Client) AcquireHandler(keys []string, args []interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := args[0].(string)
	ttl := time.Duration(toInt64(args[1])) * time.Millisecond

	for _, k := range keys {
		if _, ok := c.get(k); ok {
			return int64(0), nil
		}
	}
	for _, k := range keys {
		c.set(k, value, ttl)
	}
	return int64(len(keys)), nil
}

// ExtendHandler implements the extend script's semantics: reset TTL on
// every key currently holding value; abort without mutation otherwise.
func (c *Client) ExtendHandler(keys []string, args []interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := args[0].(string)
	ttl := time.Duration(toInt64(args[1])) * time.Millisecond

	for _, k := range keys {
		v, ok := c.get(k)
		if !ok || v != value {
			return int64(0), nil
		}
	}
	for _, k := range keys {
		c.set(k, value, ttl)
	}
	return int64(len(keys)), nil
}

// ReleaseHandler implements the release script's semantics: delete
// every key holding value, counting how many were removed.
func (c *Client) ReleaseHandler(keys []string, args []interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value := args[0].(string)
	var n int64
	for _, k := range keys {
		if v, ok := c.get(k); ok && v == value {
			delete(c.kv, k)
			n++
		}
	}
	return n, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
