package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Fetch hooks
	f := NoopFetchHooks{}
	f.OnFetchStart(ctx, "fraud")
	f.OnFetchComplete(ctx, "fraud", 3, time.Second, nil)
	f.OnRetry(ctx, "fraud", 2, time.Second)
	f.OnDefaultSubstituted(ctx, "fraud")

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "resource")
	c.OnCacheMiss(ctx, "resource")
	c.OnCacheSet(ctx, "resource", 1024)

	// Render hooks
	r := NoopRenderHooks{}
	r.OnRenderStart(ctx, "chart-overview", 2)
	r.OnRenderComplete(ctx, "chart-overview", time.Second, nil)
	r.OnFallback(ctx, "chart-overview", "empty series")

	// Health hooks
	h := NoopHealthHooks{}
	h.OnTick(ctx, 10, 2, 1, time.Second)
	h.OnStateChange(ctx, "chart-overview", "Pending", "Rendered")
	h.OnRecoveryAttempt(ctx, "chart-overview", 1)
	h.OnRecoveryComplete(ctx, "chart-overview", true)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Fetch().(NoopFetchHooks); !ok {
		t.Error("Fetch() should return NoopFetchHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Health().(NoopHealthHooks); !ok {
		t.Error("Health() should return NoopHealthHooks by default")
	}

	// Set custom hooks
	customFetch := &testFetchHooks{}
	SetFetchHooks(customFetch)
	if Fetch() != customFetch {
		t.Error("SetFetchHooks should set custom hooks")
	}

	customHealth := &testHealthHooks{}
	SetHealthHooks(customHealth)
	if Health() != customHealth {
		t.Error("SetHealthHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Fetch().(NoopFetchHooks); !ok {
		t.Error("Reset() should restore NoopFetchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRenderHooks{}
	SetRenderHooks(custom)

	// Setting nil should be ignored
	SetRenderHooks(nil)

	if Render() != custom {
		t.Error("SetRenderHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testFetchHooks struct{ NoopFetchHooks }
type testRenderHooks struct{ NoopRenderHooks }
type testHealthHooks struct{ NoopHealthHooks }
