package redlock

import "testing"

func TestNewScriptRegistry_DefaultBodies(t *testing.T) {
	reg := newScriptRegistry(nil)

	if reg.acquire.body != acquireScript {
		t.Error("acquire script body should default to acquireScript")
	}
	if reg.extend.body != extendScript {
		t.Error("extend script body should default to extendScript")
	}
	if reg.release.body != releaseScript {
		t.Error("release script body should default to releaseScript")
	}
}

func TestNewScriptRegistry_DigestsAreStable(t *testing.T) {
	reg1 := newScriptRegistry(nil)
	reg2 := newScriptRegistry(nil)

	if reg1.acquire.sha != reg2.acquire.sha {
		t.Error("identical script bodies must hash to the same SHA-1 digest")
	}
	if len(reg1.acquire.sha) != 40 {
		t.Errorf("expected a 40-char hex SHA-1 digest, got %d chars", len(reg1.acquire.sha))
	}
}

func TestNewScriptRegistry_RewriteAppliedOnce(t *testing.T) {
	calls := 0
	rewrite := func(body string) string {
		calls++
		return body + "\n-- rewritten"
	}

	reg := newScriptRegistry(map[ScriptKind]func(string) string{
		ScriptAcquire: rewrite,
	})

	if calls != 1 {
		t.Errorf("expected rewrite to be applied exactly once, got %d", calls)
	}
	if reg.acquire.body == acquireScript {
		t.Error("rewrite should have changed the acquire script body")
	}
	if reg.extend.body != extendScript {
		t.Error("rewrite for acquire must not affect the extend script")
	}
}
