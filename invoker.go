package redlock

import (
	"context"
	"fmt"

	"github.com/krishna-kudari/redlock/store"
)

// vote is the decision one store contributed to an attempt.
type vote int

const (
	voteFor vote = iota
	voteAgainst
)

// clientExecutionResult is the tagged outcome of invoking a script on
// one store: {vote: for, store, value} or {vote: against, store, error}.
type clientExecutionResult struct {
	vote  vote
	store string
	value int64
	err   error
}

// invoke runs s on client, identified by storeName for diagnostics,
// against keys/args, and normalizes the reply into a vote.
//
// It tries EvalSha first to save bandwidth on the hot path; on a
// NOSCRIPT signal it retries once with the raw script body so the
// store caches it and executes it. Any other error, or an integer
// reply smaller than len(keys), becomes an "against" vote.
func invoke(ctx context.Context, client store.Client, storeName string, s *script, keys []string, args ...interface{}) clientExecutionResult {
	result, err := runScript(ctx, client, s, keys, args...)
	if err != nil {
		return clientExecutionResult{vote: voteAgainst, store: storeName, err: err}
	}

	n, err := asInt64(result)
	if err != nil {
		return clientExecutionResult{vote: voteAgainst, store: storeName, err: err}
	}

	want := int64(len(keys))
	if n == want {
		return clientExecutionResult{vote: voteFor, store: storeName, value: n}
	}
	return clientExecutionResult{
		vote:  voteAgainst,
		store: storeName,
		err:   &ResourceLockedError{Granted: int(n), Requested: len(keys)},
	}
}

func runScript(ctx context.Context, client store.Client, s *script, keys []string, args ...interface{}) (interface{}, error) {
	result, err := client.EvalSha(ctx, s.sha, keys, args...)
	if err == nil {
		return result, nil
	}
	if !store.IsNoScript(err) {
		return nil, err
	}
	return client.Eval(ctx, s.body, keys, args...)
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("redlock: unexpected script reply type %T", v)
	}
}
