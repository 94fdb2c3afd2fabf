package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/krishna-kudari/redlock/store/memtest"
)

func TestBuilder_FailsWithNoStores(t *testing.T) {
	_, err := NewBuilder().Build()
	if err == nil {
		t.Fatal("expected an error when Build is called without any stores")
	}
}

func TestBuilder_BuildsAWorkingCoordinator(t *testing.T) {
	a := memtest.New()
	a.Register(acquireScript, a.AcquireHandler)
	a.Register(extendScript, a.ExtendHandler)
	a.Register(releaseScript, a.ReleaseHandler)
	b := memtest.New()
	b.Register(acquireScript, b.AcquireHandler)
	b.Register(extendScript, b.ExtendHandler)
	b.Register(releaseScript, b.ReleaseHandler)
	c := memtest.New()
	c.Register(acquireScript, c.AcquireHandler)
	c.Register(extendScript, c.ExtendHandler)
	c.Register(releaseScript, c.ReleaseHandler)

	coord, err := NewBuilder().
		Store("a", a).
		Store("b", b).
		Store("c", c).
		RetryCount(3).
		RetryDelay(time.Millisecond).
		RetryJitter(0).
		DriftFactor(0.02).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	lock, err := coord.Acquire(context.Background(), []string{"{r}builder"}, time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, live := a.Peek("{r}builder"); !live {
		t.Error("expected store a to hold the key")
	}
	if _, err := coord.Release(context.Background(), lock); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestBuilder_ScriptRewriteIsAppliedOnBuild(t *testing.T) {
	a := memtest.New()
	rewritten := acquireScript + "\n-- builder rewrite marker"
	a.Register(rewritten, a.AcquireHandler)
	a.Register(extendScript, a.ExtendHandler)
	a.Register(releaseScript, a.ReleaseHandler)

	coord, err := NewBuilder().
		Store("a", a).
		ScriptRewrite(ScriptAcquire, func(body string) string { return body + "\n-- builder rewrite marker" }).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := coord.Acquire(context.Background(), []string{"{r}rewrite"}, time.Second); err != nil {
		t.Fatalf("acquire against the rewritten script digest: %v", err)
	}
}
