package ginmw_test

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krishna-kudari/redlock"
	"github.com/krishna-kudari/redlock/middleware/ginmw"
	"github.com/krishna-kudari/redlock/store"
	"github.com/krishna-kudari/redlock/store/memtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.PUT("/orders/:id", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(200, "ok") })
	return r
}

func TestLock_AllowsASingleInFlightRequest(t *testing.T) {
	locker := newTestLocker(t)
	router := newRouter(ginmw.Lock(locker, ginmw.KeyByParam("id")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/orders/42", nil)
	router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestLock_DeniesConcurrentRequestsForTheSameParam(t *testing.T) {
	locker := newTestLocker(t, redlock.WithSettings(
		redlock.WithRetryCount(0),
		redlock.WithRetryDelay(time.Millisecond),
		redlock.WithRetryJitter(0),
	))

	entered := make(chan struct{})
	release := make(chan struct{})
	r := gin.New()
	r.Use(ginmw.Lock(locker, ginmw.KeyByParam("id")))
	r.PUT("/orders/:id", func(c *gin.Context) {
		close(entered)
		<-release
		c.String(200, "ok")
	})

	var wg sync.WaitGroup
	var firstCode int

	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/orders/42", nil)
		r.ServeHTTP(w, req)
		firstCode = w.Code
	}()

	<-entered

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/orders/42", nil)
	r.ServeHTTP(w, req)
	if w.Code != 409 {
		t.Errorf("expected 409 for the overlapping request, got %d", w.Code)
	}

	close(release)
	wg.Wait()
	if firstCode != 200 {
		t.Errorf("expected the first request to succeed with 200, got %d", firstCode)
	}
}

func TestLock_ExcludedPathsBypassLocking(t *testing.T) {
	locker := newTestLocker(t)
	router := newRouter(ginmw.LockWithConfig(ginmw.Config{
		Locker:       locker,
		KeyFunc:      ginmw.KeyByParam("id"),
		ExcludePaths: map[string]bool{"/health": true},
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("health should bypass locking, got %d", w.Code)
	}
}

func TestLock_CustomConflictHandler(t *testing.T) {
	locker := newTestLocker(t, redlock.WithSettings(
		redlock.WithRetryCount(0),
		redlock.WithRetryDelay(time.Millisecond),
		redlock.WithRetryJitter(0),
	))
	customCalled := false

	entered := make(chan struct{})
	release := make(chan struct{})
	r := gin.New()
	r.Use(ginmw.LockWithConfig(ginmw.Config{
		Locker:  locker,
		KeyFunc: ginmw.KeyByParam("id"),
		ConflictHandler: func(c *gin.Context, _ error) {
			customCalled = true
			c.AbortWithStatusJSON(409, gin.H{"custom": true})
		},
	}))
	r.PUT("/orders/:id", func(c *gin.Context) {
		close(entered)
		<-release
		c.String(200, "ok")
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/orders/99", nil)
		r.ServeHTTP(w, req)
	}()

	<-entered

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("PUT", "/orders/99", nil)
	r.ServeHTTP(w2, req2)

	close(release)
	wg.Wait()

	if !customCalled {
		t.Error("custom conflict handler should have been called")
	}
}

func TestKeyByHeader(t *testing.T) {
	locker := newTestLocker(t, redlock.WithSettings(redlock.WithRetryCount(0)))
	router := newRouter(ginmw.Lock(locker, ginmw.KeyByHeader("X-API-Key")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/orders/1", nil)
	req.Header.Set("X-API-Key", "key-A")
	router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatal("key-A should be allowed")
	}
}

func TestKeyByPathAndClientIP_CombinesPathAndIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var keys []string
	r.PUT("/orders/:id", func(c *gin.Context) {
		keys = ginmw.KeyByPathAndClientIP(c)
		c.String(200, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/orders/7", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	r.ServeHTTP(w, req)

	if len(keys) != 1 {
		t.Fatalf("expected one combined key, got %v", keys)
	}
}
