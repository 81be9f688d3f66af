// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about data acquisition, cache operations, rendering, and
// health monitoring.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFetchHooks(&myFetchHooks{})
//	    observability.SetHealthHooks(&myHealthHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Fetch().OnFetchStart(ctx, key)
//	// ... do fetching ...
//	observability.Fetch().OnFetchComplete(ctx, key, attempts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from the data acquisition service.
type FetchHooks interface {
	// OnFetchStart records the start of a resource fetch.
	OnFetchStart(ctx context.Context, key string)

	// OnFetchComplete records a finished fetch, including the number of
	// transport attempts that were made.
	OnFetchComplete(ctx context.Context, key string, attempts int, duration time.Duration, err error)

	// OnRetry records a retry of a failed transport call.
	OnRetry(ctx context.Context, key string, attempt int, delay time.Duration)

	// OnDefaultSubstituted records that a default payload replaced a failed fetch.
	OnDefaultSubstituted(ctx context.Context, key string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives events from the render adapter.
type RenderHooks interface {
	// OnRenderStart records the start of a chart render.
	OnRenderStart(ctx context.Context, containerID string, seriesCount int)

	// OnRenderComplete records a finished render.
	OnRenderComplete(ctx context.Context, containerID string, duration time.Duration, err error)

	// OnFallback records a degraded-mode substitution.
	OnFallback(ctx context.Context, containerID, reason string)
}

// =============================================================================
// Health Hooks
// =============================================================================

// HealthHooks receives events from the health monitor.
type HealthHooks interface {
	// OnTick records a completed audit pass over all registered containers.
	OnTick(ctx context.Context, total, empty, errored int, duration time.Duration)

	// OnStateChange records a chart record state transition.
	OnStateChange(ctx context.Context, containerID, from, to string)

	// OnRecoveryAttempt records a single auto-recovery attempt.
	OnRecoveryAttempt(ctx context.Context, containerID string, attempt int)

	// OnRecoveryComplete records the end of an auto-recovery run.
	OnRecoveryComplete(ctx context.Context, containerID string, recovered bool)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetchStart(context.Context, string)                              {}
func (NoopFetchHooks) OnFetchComplete(context.Context, string, int, time.Duration, error) {}
func (NoopFetchHooks) OnRetry(context.Context, string, int, time.Duration)               {}
func (NoopFetchHooks) OnDefaultSubstituted(context.Context, string)                      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, string, int)                   {}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}
func (NoopRenderHooks) OnFallback(context.Context, string, string)                   {}

// NoopHealthHooks is a no-op implementation of HealthHooks.
type NoopHealthHooks struct{}

func (NoopHealthHooks) OnTick(context.Context, int, int, int, time.Duration) {}
func (NoopHealthHooks) OnStateChange(context.Context, string, string, string) {}
func (NoopHealthHooks) OnRecoveryAttempt(context.Context, string, int)       {}
func (NoopHealthHooks) OnRecoveryComplete(context.Context, string, bool)     {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	fetchHooks  FetchHooks  = NoopFetchHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	renderHooks RenderHooks = NoopRenderHooks{}
	healthHooks HealthHooks = NoopHealthHooks{}
	hooksMu     sync.RWMutex
)

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup before any fetch operations.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRenderHooks registers custom render hooks.
// This should be called once at application startup before any render operations.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetHealthHooks registers custom health hooks.
// This should be called once at application startup before the monitor runs.
func SetHealthHooks(h HealthHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		healthHooks = h
	}
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Health returns the registered health hooks.
func Health() HealthHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return healthHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	fetchHooks = NoopFetchHooks{}
	cacheHooks = NoopCacheHooks{}
	renderHooks = NoopRenderHooks{}
	healthHooks = NoopHealthHooks{}
}
