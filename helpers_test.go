package redlock

import (
	"fmt"

	"github.com/krishna-kudari/redlock/store"
	"github.com/krishna-kudari/redlock/store/memtest"
)

// newMemStores builds n in-process fake stores wired up with the
// package's real script bodies, so the fakes are indexed by exactly
// the SHA-1 digests the invoker computes.
func newMemStores(n int) (map[string]store.Client, []*memtest.Client) {
	clients := make(map[string]store.Client, n)
	raws := make([]*memtest.Client, n)
	for i := 0; i < n; i++ {
		c := memtest.New()
		c.Register(acquireScript, c.AcquireHandler)
		c.Register(extendScript, c.ExtendHandler)
		c.Register(releaseScript, c.ReleaseHandler)
		name := fmt.Sprintf("store%d", i)
		clients[name] = c
		raws[i] = c
	}
	return clients, raws
}
