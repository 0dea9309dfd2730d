// Package circuit wraps sony/gobreaker with a per-provider manager so that a
// misbehaving market-data source trips independently of its peers and the
// engine degrades that source to "absent" rather than blocking the run.
package circuit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Config controls trip/recovery behavior for a single provider breaker.
type Config struct {
	MaxHalfOpenRequests uint32
	ResetInterval       time.Duration // window over which closed-state counts are reset
	OpenTimeout         time.Duration // how long to stay open before probing half-open
	ConsecutiveFailures uint32        // consecutive failures required to trip
	ErrorRatePct        float64       // error rate (0-100) required to trip once Requests>=10
}

// DefaultConfig matches the conservative defaults strict vendors expect.
func DefaultConfig() Config {
	return Config{
		MaxHalfOpenRequests: 1,
		ResetInterval:       60 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
		ErrorRatePct:        50.0,
	}
}

// Manager owns one gobreaker.CircuitBreaker per provider name.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewManager creates an empty breaker manager.
func NewManager() *Manager {
	return &Manager{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// AddProvider registers a breaker for provider under the given config.
func (m *Manager) AddProvider(provider string, cfg Config) {
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests >= 10 {
				rate := float64(counts.TotalFailures) / float64(counts.Requests) * 100
				if rate >= cfg.ErrorRatePct {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakers[provider] = gobreaker.NewCircuitBreaker(settings)
}

// Call runs fn through the named provider's breaker. A missing breaker means
// the provider was never registered and fn runs uncontrolled (treated as
// always-closed). The returned error is gobreaker.ErrOpenState,
// gobreaker.ErrTooManyRequests, or whatever fn returned.
func (m *Manager) Call(ctx context.Context, provider string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	m.mu.RLock()
	breaker, ok := m.breakers[provider]
	m.mu.RUnlock()

	if !ok {
		return fn(ctx)
	}

	return breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
}

// State reports the current breaker state for a provider, "unknown" if unregistered.
func (m *Manager) State(provider string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.breakers[provider]
	if !ok {
		return "unknown"
	}
	return b.State().String()
}

// Open reports whether a provider's breaker is currently open (requests blocked).
func (m *Manager) Open(provider string) bool {
	return m.State(provider) == gobreaker.StateOpen.String()
}

// Counts returns the raw gobreaker counters for a provider, for health endpoints.
func (m *Manager) Counts(provider string) (gobreaker.Counts, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.breakers[provider]
	if !ok {
		return gobreaker.Counts{}, false
	}
	return b.Counts(), true
}

// Snapshot returns a point-in-time health summary for every registered provider.
func (m *Manager) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.breakers))
	for name, b := range m.breakers {
		out[name] = fmt.Sprintf("%s (failures=%d requests=%d)", b.State().String(), b.Counts().ConsecutiveFailures, b.Counts().Requests)
	}
	return out
}
