// Package redlock provides a distributed mutual-exclusion lock over an
// odd-numbered set of independent Redis-compatible stores, following
// the Redlock algorithm: callers request exclusive, time-bounded
// ownership of one or more named resources, and the library decides
// whether a quorum of stores granted it.
//
// # Quick Start
//
//	coord, err := redlock.New(map[string]store.Client{
//	    "a": redisstore.New(clientA),
//	    "b": redisstore.New(clientB),
//	    "c": redisstore.New(clientC),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lock, err := coord.Acquire(ctx, []string{"inventory:sku-42"}, 10*time.Second)
//	if err != nil {
//	    // quorum not reached, or the resource is already held
//	}
//	defer lock.Release(ctx)
//
// # Scoped use
//
//	err = coord.Using(ctx, []string{"inventory:sku-42"}, 10*time.Second,
//	    func(ctx context.Context, abort *redlock.AbortSignal) error {
//	        // long-running work; check abort.Aborted() at suspension points
//	        return nil
//	    },
//	)
//
// # Construction options
//
//	coord, _ := redlock.New(stores,
//	    redlock.WithSettings(redlock.WithRetryCount(5)),
//	    redlock.WithScriptRewrite(redlock.ScriptAcquire, myRewrite),
//	)
//
// Acquire, Extend, Release, and Using all accept per-call Settings
// overrides that layer on top of the Coordinator's own Settings
// without mutating it.
package redlock
