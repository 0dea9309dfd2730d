// Package ratelimit implements per-provider-host token-bucket limiting plus
// an exponential backoff retry helper, used by the provider ports (C1),
// including the FINRA tape, to keep each vendor under its documented RPS ceiling.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter is a token-bucket limiter scoped to a single provider host.
type HostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewHostLimiter creates a limiter for a given steady-state RPS and burst depth.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *HostLimiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[host] = limiter
	return limiter
}

// Allow reports whether an immediate request for host is permitted.
func (l *HostLimiter) Allow(host string) bool {
	return l.getLimiter(host).Allow()
}

// Wait blocks until a token for host is available or ctx is cancelled.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	return l.getLimiter(host).Wait(ctx)
}

// SetRPS updates the steady-state rate for every host tracked so far.
func (l *HostLimiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	for _, limiter := range l.limiters {
		limiter.SetLimit(rate.Limit(rps))
	}
}

// Stats reports current token levels, used by health/debug surfaces.
func (l *HostLimiter) Stats() map[string]HostStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]HostStats, len(l.limiters))
	for host, limiter := range l.limiters {
		out[host] = HostStats{
			Host:            host,
			RPS:             float64(limiter.Limit()),
			Burst:           limiter.Burst(),
			TokensAvailable: limiter.Tokens(),
		}
	}
	return out
}

// HostStats is a point-in-time view of one host's bucket.
type HostStats struct {
	Host            string
	RPS             float64
	Burst           int
	TokensAvailable float64
}

// Manager owns one HostLimiter per provider, so that a daily-budget-capped
// vendor (e.g. a free-tier fundamentals API) never starves a high-throughput
// one (e.g. a quote stream) sharing the same process.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*HostLimiter
}

// NewManager creates an empty rate-limit manager.
func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*HostLimiter)}
}

// AddProvider registers a limiter for provider at the given RPS/burst.
func (m *Manager) AddProvider(provider string, rps float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[provider] = NewHostLimiter(rps, burst)
}

// Wait blocks until provider/host has a token, a no-op if provider is unregistered.
func (m *Manager) Wait(ctx context.Context, provider, host string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[provider]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx, host)
}

// BackoffConfig describes exponential retry behavior for transient provider failures.
type BackoffConfig struct {
	Base   time.Duration
	Max    time.Duration
	Jitter bool
}

// DefaultBackoff is a sane default: 250ms doubling up to 8s, jittered.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{Base: 250 * time.Millisecond, Max: 8 * time.Second, Jitter: true}
}

// Retry calls fn up to attempts times, sleeping an exponentially increasing
// delay between attempts. It returns the last error if every attempt fails,
// or nil as soon as fn succeeds. Context cancellation aborts immediately.
func Retry(ctx context.Context, cfg BackoffConfig, attempts int, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := cfg.Base
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		sleep := delay
		if cfg.Jitter {
			sleep = time.Duration(float64(delay) * (0.5 + rand.Float64()))
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > cfg.Max {
			delay = cfg.Max
		}
	}
	return lastErr
}
