// Package providers implements the uniform provider façade (C1): one
// typed Get(ticker) per data kind, backed by a TTL cache, a per-host rate
// limiter, a circuit breaker, and retry-with-backoff. Every failure mode —
// network error, parse error, HTTP error, open circuit, exhausted retries,
// context cancellation — collapses to a nil result. The caller treats nil as
// "absent"; only a missing credential in strict mode is allowed to escalate
// to a startup-time fatal error (see Port.Validate).
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/squeezescout/internal/cache"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/metrics"
	"github.com/sawpanic/squeezescout/internal/net/circuit"
	"github.com/sawpanic/squeezescout/internal/net/ratelimit"
)

// Fetcher is the raw network call for one data kind, returning a decoded
// value. Implementations should not retry or cache — Port handles that.
type Fetcher[T any] func(ctx context.Context, ticker string) (T, error)

// Port wraps a Fetcher with the C1/C2 cross-cutting concerns.
type Port[T any] struct {
	name       string
	cfg        config.ProviderConfig
	store      *cache.Store
	limiter    *ratelimit.Manager
	breaker    *circuit.Manager
	fetch      Fetcher[T]
	strictMode bool
	hasCreds   func() bool // nil means "credentials not required"
}

// NewPort builds a provider port. cfg.StrictMode + a failing hasCreds makes
// Validate return an error (checked once at engine startup, never per-run).
func NewPort[T any](name string, cfg config.ProviderConfig, registry *cache.Registry, limiter *ratelimit.Manager, breaker *circuit.Manager, fetch Fetcher[T], hasCreds func() bool) *Port[T] {
	store := registry.Store(name, cfg.CacheTTL())
	limiter.AddProvider(name, cfg.RPS, cfg.Burst)
	breaker.AddProvider(name, circuit.Config{
		MaxHalfOpenRequests: 1,
		ResetInterval:       60 * time.Second,
		OpenTimeout:         time.Duration(cfg.Circuit.TimeoutMS) * time.Millisecond,
		ConsecutiveFailures: uint32(cfg.Circuit.FailureThreshold),
		ErrorRatePct:        cfg.Circuit.ErrorRatePct,
	})

	return &Port[T]{
		name: name, cfg: cfg, store: store, limiter: limiter, breaker: breaker,
		fetch: fetch, strictMode: cfg.StrictMode, hasCreds: hasCreds,
	}
}

// Validate enforces StrictModeMissingCredential at startup only.
func (p *Port[T]) Validate() error {
	if p.strictMode && p.hasCreds != nil && !p.hasCreds() {
		return fmt.Errorf("provider %s: strict mode enabled but credentials are missing", p.name)
	}
	return nil
}

// Get fetches ticker's record, routed through cache -> rate limit -> circuit
// breaker -> bounded retry. Any failure anywhere in that chain returns
// (nil, false) — "absent" per §4.1; no error is ever returned. A ctx that is
// already cancelled also yields (nil, false) without touching the cache.
// A cache entry seeded from a cold store holds raw JSON and is decoded into T.
func (p *Port[T]) Get(ctx context.Context, ticker string) (*T, bool) {
	if err := ctx.Err(); err != nil {
		return nil, false
	}

	raw, err := p.store.GetOrLoad(ctx, ticker, func(ctx context.Context) (interface{}, error) {
		if err := p.limiter.Wait(ctx, p.name, p.cfg.Host); err != nil {
			return nil, err
		}

		backoff := ratelimit.BackoffConfig{
			Base:   time.Duration(p.cfg.Backoff.BaseMS) * time.Millisecond,
			Max:    time.Duration(p.cfg.Backoff.MaxMS) * time.Millisecond,
			Jitter: p.cfg.Backoff.Jitter,
		}

		var result T
		retryErr := ratelimit.Retry(ctx, backoff, 3, func(ctx context.Context) error {
			v, err := p.breaker.Call(ctx, func(ctx context.Context) (interface{}, error) {
				reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout())
				defer cancel()
				return p.fetch(reqCtx, ticker)
			})
			if err != nil {
				return err
			}
			result = v.(T)
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return result, nil
	})

	if err != nil {
		log.Debug().Str("provider", p.name).Str("ticker", ticker).Err(err).Msg("provider call absent")
		metrics.ProviderCallsTotal.WithLabelValues(p.name, "absent").Inc()
		return nil, false
	}

	value, ok := raw.(T)
	if msg, isRaw := raw.(json.RawMessage); !ok && isRaw {
		ok = json.Unmarshal(msg, &value) == nil
	}
	if !ok {
		metrics.ProviderCallsTotal.WithLabelValues(p.name, "absent").Inc()
		return nil, false
	}
	metrics.ProviderCallsTotal.WithLabelValues(p.name, "hit").Inc()
	return &value, true
}

// GetBatch fans a Get call out across tickers using the bounded-concurrency
// harness; callers that need only a subset of tickers should prefer this
// over calling Get in a loop so the per-host semaphore is respected.
func (p *Port[T]) GetBatch(ctx context.Context, tickers []string, concurrency int, budget time.Duration) map[string]T {
	out := make(map[string]T, len(tickers))
	results := runFanout(ctx, tickers, concurrency, budget, func(ctx context.Context, ticker string) (T, bool) {
		return valueOrZero(p.Get(ctx, ticker))
	})
	for k, v := range results {
		out[k] = v
	}
	return out
}

func valueOrZero[T any](v *T, ok bool) (T, bool) {
	var zero T
	if !ok || v == nil {
		return zero, false
	}
	return *v, true
}
