// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about fetch attempts and quota consumption.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in the [prom] subpackage so that the
// library packages only depend on these interfaces.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.NewRegistry())
//	    observability.SetFetchHooks(m)
//	    observability.SetQuotaHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Fetch().OnAttempt(ctx, host, try, status, apiStatus, elapsed)
//
// [prom]: github.com/matzehuels/placeskit/pkg/observability/prom
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from the retrying fetcher.
type FetchHooks interface {
	// OnAttempt records an attempt whose HTTP exchange completed.
	// apiStatus is empty when the body could not be decoded.
	OnAttempt(ctx context.Context, host string, try, statusCode int, apiStatus string, duration time.Duration)

	// OnTransportError records a failed HTTP exchange (DNS, connect, timeout).
	OnTransportError(ctx context.Context, host string, err error)

	// OnComplete records the end of a fetch, successful or not.
	OnComplete(ctx context.Context, host string, tries int, ok bool)
}

// =============================================================================
// Quota Hooks
// =============================================================================

// QuotaHooks receives events from the quota tracker.
type QuotaHooks interface {
	// OnIncrement records the counter value after an increment.
	OnIncrement(ctx context.Context, day string, count, limit int)

	// OnExhausted records a refused request.
	OnExhausted(ctx context.Context, day string, count, limit int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnAttempt(context.Context, string, int, int, string, time.Duration) {}
func (NoopFetchHooks) OnTransportError(context.Context, string, error)                    {}
func (NoopFetchHooks) OnComplete(context.Context, string, int, bool)                      {}

// NoopQuotaHooks is a no-op implementation of QuotaHooks.
type NoopQuotaHooks struct{}

func (NoopQuotaHooks) OnIncrement(context.Context, string, int, int) {}
func (NoopQuotaHooks) OnExhausted(context.Context, string, int, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	fetchHooks FetchHooks = NoopFetchHooks{}
	quotaHooks QuotaHooks = NoopQuotaHooks{}
	hooksMu    sync.RWMutex
)

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup before any requests are made.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetQuotaHooks registers custom quota hooks.
func SetQuotaHooks(h QuotaHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		quotaHooks = h
	}
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Quota returns the registered quota hooks.
func Quota() QuotaHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return quotaHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	fetchHooks = NoopFetchHooks{}
	quotaHooks = NoopQuotaHooks{}
}
