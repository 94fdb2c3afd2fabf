package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/krishna-kudari/redlock"
	"github.com/krishna-kudari/redlock/store"
	"github.com/krishna-kudari/redlock/store/memtest"
)

func newGuardedCoordinator(t *testing.T, opts ...Option) (*Guard, *redlock.Coordinator) {
	t.Helper()
	clients := map[string]store.Client{}
	for i := 0; i < 3; i++ {
		m := memtest.New()
		m.Register(redlock.AcquireScriptBody, m.AcquireHandler)
		m.Register(redlock.ExtendScriptBody, m.ExtendHandler)
		m.Register(redlock.ReleaseScriptBody, m.ReleaseHandler)
		clients[string(rune('a'+i))] = m
	}
	coord, err := redlock.New(clients)
	if err != nil {
		t.Fatalf("redlock.New: %v", err)
	}
	return New(coord, opts...), coord
}

func TestGuard_AcquireReleaseRoundTrip(t *testing.T) {
	g, _ := newGuardedCoordinator(t)
	defer g.Close()

	lock, err := g.Acquire(context.Background(), []string{"order:1"}, time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestGuard_SerializesOverlappingLocalAcquires(t *testing.T) {
	g, _ := newGuardedCoordinator(t)
	defer g.Close()

	var concurrent int32
	var sawOverlap bool
	var wg sync.WaitGroup

	run := func() {
		defer wg.Done()
		lock, err := g.Acquire(context.Background(), []string{"order:2"}, 500*time.Millisecond)
		if err != nil {
			t.Errorf("acquire: %v", err)
			return
		}
		if atomic.AddInt32(&concurrent, 1) > 1 {
			sawOverlap = true
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		if _, err := lock.Release(context.Background()); err != nil {
			t.Errorf("release: %v", err)
		}
	}

	wg.Add(2)
	go run()
	go run()
	wg.Wait()

	if sawOverlap {
		t.Error("two local callers held the same resource's arbiter concurrently")
	}
}

func TestGuard_DisjointResourcesDoNotSerialize(t *testing.T) {
	g, _ := newGuardedCoordinator(t)
	defer g.Close()

	lockA, err := g.Acquire(context.Background(), []string{"order:a"}, time.Second)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer lockA.Release(context.Background())

	done := make(chan struct{})
	go func() {
		lockB, err := g.Acquire(context.Background(), []string{"order:b"}, time.Second)
		if err != nil {
			t.Errorf("acquire b: %v", err)
			return
		}
		lockB.Release(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a disjoint resource should not wait on the held one")
	}
}

func TestGuard_FailedAcquireReleasesArbiters(t *testing.T) {
	clients := map[string]store.Client{}
	raws := make([]*memtest.Client, 3)
	for i := 0; i < 3; i++ {
		m := memtest.New()
		m.Register(redlock.AcquireScriptBody, m.AcquireHandler)
		m.Register(redlock.ExtendScriptBody, m.ExtendHandler)
		m.Register(redlock.ReleaseScriptBody, m.ReleaseHandler)
		clients[string(rune('a'+i))] = m
		raws[i] = m
	}
	for _, r := range raws {
		r.Seed("order:3", "foreign", 0)
	}
	coord, err := redlock.New(clients, redlock.WithSettings(
		redlock.WithRetryCount(0),
		redlock.WithRetryDelay(time.Millisecond),
		redlock.WithRetryJitter(0),
	))
	if err != nil {
		t.Fatalf("redlock.New: %v", err)
	}
	g := New(coord)
	defer g.Close()

	if _, err := g.Acquire(context.Background(), []string{"order:3"}, time.Second); err == nil {
		t.Fatal("expected the contended acquire to fail")
	}

	done := make(chan struct{})
	go func() {
		g.getOrCreateArbiter("order:3").mu.Lock()
		g.getOrCreateArbiter("order:3").mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a failed acquire should have released its arbiters")
	}
}

func TestGuard_UsingSerializesLikeAcquire(t *testing.T) {
	g, _ := newGuardedCoordinator(t)
	defer g.Close()

	var concurrent int32
	var sawOverlap bool
	var wg sync.WaitGroup

	run := func() {
		defer wg.Done()
		err := g.Using(context.Background(), []string{"order:4"}, 500*time.Millisecond,
			func(ctx context.Context, abort *redlock.AbortSignal) error {
				if atomic.AddInt32(&concurrent, 1) > 1 {
					sawOverlap = true
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
				return nil
			},
		)
		if err != nil {
			t.Errorf("using: %v", err)
		}
	}

	wg.Add(2)
	go run()
	go run()
	wg.Wait()

	if sawOverlap {
		t.Error("two local Using callers held the same resource's arbiter concurrently")
	}
}
