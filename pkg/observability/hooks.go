// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline stages, optimizer progress, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks take only primitive values and this package's own event types, so
// the library packages that emit them can import it without cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEmbedHooks(&progressBar{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, "graph", n)
//	// ... build the kNN graph ...
//	observability.Pipeline().OnStageComplete(ctx, "graph", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the embedding pipeline stages
// ("load", "graph", "embed", "export"). Affinity preparation runs inside
// the embed stage.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string, size int)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// =============================================================================
// Embed Hooks
// =============================================================================

// IterationEvent describes one optimizer step. Cost is only meaningful when
// HasCost is set; it is evaluated every few iterations.
type IterationEvent struct {
	RunID     string
	Iteration int
	MaxIter   int
	Phase     string
	Z         float64
	Cost      float64
	HasCost   bool
	Elapsed   time.Duration
}

// EmbedHooks receives events from the optimizer.
type EmbedHooks interface {
	// OnPhase records a state transition of the optimizer.
	OnPhase(ctx context.Context, runID, phase string, iteration int)

	// OnIteration records a finished iteration.
	OnIteration(ctx context.Context, ev IterationEvent)
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
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string, int)                     {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopEmbedHooks is a no-op implementation of EmbedHooks.
type NoopEmbedHooks struct{}

func (NoopEmbedHooks) OnPhase(context.Context, string, string, int) {}
func (NoopEmbedHooks) OnIteration(context.Context, IterationEvent)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	embedHooks    EmbedHooks    = NoopEmbedHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetEmbedHooks registers custom optimizer hooks.
func SetEmbedHooks(h EmbedHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		embedHooks = h
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

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Embed returns the registered optimizer hooks.
func Embed() EmbedHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return embedHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	embedHooks = NoopEmbedHooks{}
	cacheHooks = NoopCacheHooks{}
}
