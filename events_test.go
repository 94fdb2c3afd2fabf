package redlock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitter_NoListenersDoesNotPanic(t *testing.T) {
	e := newEmitter()
	e.emit(errors.New("boom"))
}

func TestEmitter_NilErrorIsIgnored(t *testing.T) {
	e := newEmitter()
	called := false
	e.OnError(func(err error) { called = true })
	e.emit(nil)
	if called {
		t.Error("a nil error must not reach registered handlers")
	}
}

func TestEmitter_FansOutToEveryHandler(t *testing.T) {
	e := newEmitter()
	var gotA, gotB error
	e.OnError(func(err error) { gotA = err })
	e.OnError(func(err error) { gotB = err })

	want := errors.New("against-vote")
	e.emit(want)

	if gotA != want || gotB != want {
		t.Errorf("expected both handlers to observe %v, got %v and %v", want, gotA, gotB)
	}
}

func TestEmitter_IgnoresNilHandlerRegistration(t *testing.T) {
	e := newEmitter()
	e.OnError(nil)
	if len(e.handlers) != 1 {
		t.Errorf("expected the self-subscribed no-op to remain the only handler, got %d", len(e.handlers))
	}
}

func TestCoordinator_OnErrorReceivesAgainstVotes(t *testing.T) {
	stores, raws := newMemStores(3)
	raws[0].Seed("{r}z", "foreign", 0)
	c, err := New(stores)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var observed []error
	c.OnError(func(err error) { observed = append(observed, err) })

	if _, err := c.Acquire(context.Background(), []string{"{r}z"}, 1000*time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(observed) != 1 {
		t.Fatalf("expected exactly 1 observed against-vote, got %d", len(observed))
	}
}
