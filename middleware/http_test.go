package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/krishna-kudari/redlock"
	"github.com/krishna-kudari/redlock/middleware"
	"github.com/krishna-kudari/redlock/store"
	"github.com/krishna-kudari/redlock/store/memtest"
)

func newTestLocker(t *testing.T, opts ...redlock.CoordinatorOption) redlock.Locker {
	t.Helper()
	clients := map[string]store.Client{}
	for i := 0; i < 3; i++ {
		m := memtest.New()
		m.Register(redlock.AcquireScriptBody, m.AcquireHandler)
		m.Register(redlock.ExtendScriptBody, m.ExtendHandler)
		m.Register(redlock.ReleaseScriptBody, m.ReleaseHandler)
		clients[string(rune('a'+i))] = m
	}
	coord, err := redlock.New(clients, opts...)
	if err != nil {
		t.Fatalf("redlock.New: %v", err)
	}
	return coord
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestLock_AllowsASingleInFlightRequest(t *testing.T) {
	locker := newTestLocker(t)
	handler := middleware.Lock(locker, middleware.KeyByHeader("X-Idempotency-Key"))(okHandler())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/orders", nil)
	req.Header.Set("X-Idempotency-Key", "abc123")
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestLock_DeniesConcurrentRequestsForTheSameKey(t *testing.T) {
	locker := newTestLocker(t, redlock.WithSettings(
		redlock.WithRetryCount(0),
		redlock.WithRetryDelay(time.Millisecond),
		redlock.WithRetryJitter(0),
	))

	release := make(chan struct{})
	entered := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Lock(locker, middleware.KeyByHeader("X-Idempotency-Key"))(slow)

	var wg sync.WaitGroup
	var firstCode int

	wg.Add(1)
	go func() {
		defer wg.Done()
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/orders", nil)
		req.Header.Set("X-Idempotency-Key", "dup")
		handler.ServeHTTP(rr, req)
		firstCode = rr.Code
	}()

	<-entered

	rr2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("POST", "/orders", nil)
	req2.Header.Set("X-Idempotency-Key", "dup")
	handler.ServeHTTP(rr2, req2)

	if rr2.Code != http.StatusConflict {
		t.Errorf("expected the overlapping request to get 409, got %d", rr2.Code)
	}

	close(release)
	wg.Wait()
	if firstCode != http.StatusOK {
		t.Errorf("expected the first request to succeed with 200, got %d", firstCode)
	}
}

func TestLock_ExcludedPathsBypassLocking(t *testing.T) {
	locker := newTestLocker(t)
	handler := middleware.LockWithConfig(middleware.Config{
		Locker:       locker,
		KeyFunc:      middleware.KeyByPath,
		ExcludePaths: map[string]bool{"/health": true},
	})(okHandler())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected excluded path to pass straight through, got %d", rr.Code)
	}
}

func TestLock_PanicsWithoutRequiredConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when Locker is nil")
		}
	}()
	middleware.LockWithConfig(middleware.Config{KeyFunc: middleware.KeyByPath})
}

func TestKeyByPathAndHeader_CombinesPathAndHeader(t *testing.T) {
	req := httptest.NewRequest("PUT", "/orders/42/", nil)
	req.Header.Set("X-Idempotency-Key", "xyz")
	keys := middleware.KeyByPathAndHeader("X-Idempotency-Key")(req)
	if len(keys) != 1 || keys[0] != "/orders/42:xyz" {
		t.Errorf("unexpected key: %v", keys)
	}
}
