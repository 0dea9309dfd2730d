package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProvidersConfig is the per-vendor operations configuration: rate limits,
// daily budgets, cache TTLs, backoff, and circuit-breaker tuning. Adapted
// from the teacher's provider ops loader for the data kinds named in the
// provider port (fundamentals, liquidity, borrow, short interest, catalyst,
// quote, bars, FINRA tape).
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Global    GlobalConfig              `yaml:"global"`
}

// ProviderConfig is the operations envelope for a single data source.
type ProviderConfig struct {
	Host        string        `yaml:"host"`
	BaseURL     string        `yaml:"base_url"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	DailyBudget int           `yaml:"daily_budget"`
	TTLSecs     int           `yaml:"ttl_secs"`
	Backoff     BackoffConfig `yaml:"backoff_ms"`
	Circuit     CircuitConfig `yaml:"circuit"`
	Enabled     bool          `yaml:"enabled"`
	StrictMode  bool          `yaml:"strict_mode"` // fail startup if credentials missing
}

// BackoffConfig configures the exponential retry delay between failed calls.
type BackoffConfig struct {
	BaseMS int  `yaml:"base"`
	MaxMS  int  `yaml:"max"`
	Jitter bool `yaml:"jitter"`
}

// CircuitConfig configures the per-provider circuit breaker.
type CircuitConfig struct {
	FailureThreshold int     `yaml:"failure_threshold"`
	ErrorRatePct     float64 `yaml:"error_rate_pct"`
	TimeoutMS        int     `yaml:"timeout_ms"`
	RequestTimeoutMS int     `yaml:"request_timeout_ms"`
}

// GlobalConfig bundles process-wide provider settings.
type GlobalConfig struct {
	MaxConcurrentPerHost int           `yaml:"max_concurrent_per_host"`
	UserAgent            string        `yaml:"user_agent"`
	GlobalBudget         time.Duration `yaml:"global_budget"` // wall-clock budget for one fan-out (C2)
	SkipCacheWrites      bool          `yaml:"skip_cache_writes"`
}

// DefaultProvidersConfig returns the TTLs and concurrency caps named in §4.1/§4.2.
func DefaultProvidersConfig() ProvidersConfig {
	mk := func(host, base string, rps float64, burst, budget, ttlSecs int) ProviderConfig {
		return ProviderConfig{
			Host: host, BaseURL: base, RPS: rps, Burst: burst, DailyBudget: budget, TTLSecs: ttlSecs,
			Backoff: BackoffConfig{BaseMS: 250, MaxMS: 8000, Jitter: true},
			Circuit: CircuitConfig{FailureThreshold: 5, ErrorRatePct: 50, TimeoutMS: 30000, RequestTimeoutMS: 9000},
			Enabled: true,
		}
	}
	return ProvidersConfig{
		Providers: map[string]ProviderConfig{
			"fundamentals":  mk("fundamentals.internal", "https://fundamentals.example/v1", 2, 4, 50000, 4*3600),
			"liquidity":     mk("liquidity.internal", "https://liquidity.example/v1", 2, 4, 50000, 24*3600),
			"borrow":        mk("borrow.internal", "https://borrow.example/v1", 1, 2, 20000, 4*3600),
			"shortinterest": mk("shortinterest.internal", "https://shortinterest.example/v1", 1, 2, 20000, 24*3600),
			"catalyst":      mk("catalyst.internal", "https://catalyst.example/v1", 2, 4, 50000, 12*3600),
			"quote":         mk("quote.internal", "https://quote.example/v1", 10, 20, 500000, 0),
			"bars":          mk("bars.internal", "https://bars.example/v1", 5, 10, 200000, 0),
			"dailybars":     mk("dailybars.internal", "https://bars.example/v1", 2, 4, 50000, 12*3600),
			"finra":         mk("finra.internal", "https://finra.example/tape", 1, 1, 500, 24*3600),
		},
		Global: GlobalConfig{
			MaxConcurrentPerHost: 4,
			UserAgent:            "squeezescout/1.0",
			GlobalBudget:         30 * time.Second,
			SkipCacheWrites:      false,
		},
	}
}

// LoadProvidersConfig loads and validates provider ops config from YAML.
func LoadProvidersConfig(path string) (*ProvidersConfig, error) {
	if path == "" {
		cfg := DefaultProvidersConfig()
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers config: %w", err)
	}

	cfg := DefaultProvidersConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse providers config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid providers config: %w", err)
	}
	return &cfg, nil
}

// Validate checks internal consistency of the provider ops config.
func (c *ProvidersConfig) Validate() error {
	if c.Global.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("global.max_concurrent_per_host must be positive")
	}
	for name, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks a single provider's operations config.
func (p *ProviderConfig) Validate() error {
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %f", p.RPS)
	}
	if p.Burst < int(p.RPS) {
		return fmt.Errorf("burst (%d) must be >= rps (%.1f)", p.Burst, p.RPS)
	}
	if p.TTLSecs < 0 {
		return fmt.Errorf("ttl_secs cannot be negative")
	}
	return nil
}

// CacheTTL returns the provider's cache TTL as a Duration.
func (p *ProviderConfig) CacheTTL() time.Duration { return time.Duration(p.TTLSecs) * time.Second }

// RequestTimeout returns the per-request timeout as a Duration.
func (p *ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.Circuit.RequestTimeoutMS) * time.Millisecond
}
