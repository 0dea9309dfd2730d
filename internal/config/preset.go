// Package config loads the scan preset (thresholds, weights, tiers,
// cold-tape relaxation) and the provider operations config (RPS, burst,
// budgets, circuit settings) from YAML, the way the teacher's provider
// config loader does, and derives a stable digest for the audit record.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds bundles the hard-elimination and soft-gate cutoffs.
type Thresholds struct {
	PriceMin               float64 `yaml:"price_min"`
	FloatSharesMax         float64 `yaml:"float_shares_max"`
	ShortInterestPctMin    float64 `yaml:"short_interest_pct_min"`
	ShortInterestPctPref   float64 `yaml:"short_interest_pct_preferred"`
	DaysToCoverMin         float64 `yaml:"days_to_cover_min"`
	DaysToCoverPref        float64 `yaml:"days_to_cover_preferred"`
	BorrowFeePctMin        float64 `yaml:"borrow_fee_pct_min"`
	BorrowFeePctPref       float64 `yaml:"borrow_fee_pct_preferred"`
	BorrowFeeTrendMinPP7d  float64 `yaml:"borrow_fee_trend_min_pp_7d"`
	AvgDollarLiquidityMin  float64 `yaml:"avg_dollar_liquidity_min"`
	CatalystWindowDaysMin  float64 `yaml:"catalyst_window_days_min"`
	CatalystWindowDaysMax  float64 `yaml:"catalyst_window_days_max"`
	RSIBuyMin              float64 `yaml:"rsi_buy_min"`
	RSIBuyMax              float64 `yaml:"rsi_buy_max"`
	ATRPctMin              float64 `yaml:"atr_pct_min"`
}

// Momentum bundles the rel-volume gates driving the two readiness tiers.
type Momentum struct {
	RelVolTradeReady  float64 `yaml:"rel_vol_trade_ready"`
	RelVolEarly       float64 `yaml:"rel_vol_early"`
	HighPriorityRelVol float64 `yaml:"high_priority_rel_vol"`
}

// Weights holds the five scorer component weights (renormalized over present components).
type Weights struct {
	Momentum  float64 `yaml:"momentum"`
	Squeeze   float64 `yaml:"squeeze"`
	Catalyst  float64 `yaml:"catalyst"`
	Sentiment float64 `yaml:"sentiment"`
	Technical float64 `yaml:"technical"`
}

// TierRange is a [min,max] composite-score band mapping to one action tier.
type TierRange struct {
	ScoreMin float64 `yaml:"score_min"`
	ScoreMax float64 `yaml:"score_max"` // 0 means "no upper bound"
}

// Tiers bundles the score bands for every readiness tier.
type Tiers struct {
	TradeReady TierRange `yaml:"trade_ready"`
	EarlyReady TierRange `yaml:"early_ready"`
	Watch      TierRange `yaml:"watch"`
	Monitor    TierRange `yaml:"monitor"`
}

// Relaxation describes how much each threshold eases once cold tape is detected.
type Relaxation struct {
	RelVolTradeReadyDelta float64 `yaml:"rel_vol_trade_ready_delta"`
	RelVolEarlyDelta      float64 `yaml:"rel_vol_early_delta"`
	RSIMinDelta           float64 `yaml:"rsi_min_delta"`
	ATRPctMinDelta        float64 `yaml:"atr_pct_min_delta"`
}

// ColdTape configures the consecutive-run-count cold-tape detector (C6).
type ColdTape struct {
	ConsecutiveRuns int        `yaml:"consecutive_runs"`
	CountCeiling    int        `yaml:"count_ceiling"` // stage counts <= this are "cold" for that run
	WindowSec       int        `yaml:"window_sec"`    // retained for parity with the source's wall-clock field; unused, see DESIGN.md
	ScoreCeiling    float64    `yaml:"score_ceiling"`
	Relaxation      Relaxation `yaml:"relaxation"`
}

// Exclusions bundles the optional hard-elimination toggles.
type Exclusions struct {
	ExcludeHaltsToday bool    `yaml:"exclude_halts_today"`
	MaxSpreadPct      float64 `yaml:"max_spread_pct"`
}

// FreshnessCfg bounds how stale a provenance-carrying field may be before it's penalized.
type FreshnessCfg struct {
	ShortInterestMaxAgeDays float64 `yaml:"short_interest_max_age_days"`
}

// Preset is the full, versioned configuration bundle for one discovery run.
type Preset struct {
	Name       string       `yaml:"name"`
	Thresholds Thresholds   `yaml:"thresholds"`
	Momentum   Momentum     `yaml:"momentum"`
	Weights    Weights      `yaml:"weights"`
	Tiers      Tiers        `yaml:"tiers"`
	ColdTape   ColdTape     `yaml:"coldTape"`
	Exclusions Exclusions   `yaml:"exclusions"`
	Freshness  FreshnessCfg `yaml:"freshness"`

	// MaxPrefilteredTickers caps C5 pre-filter output; env SCAN_MAX_TICKERS overrides.
	MaxPrefilteredTickers int `yaml:"max_prefiltered_tickers"`

	// StrictMode is parsed but not read by the pipeline; the startup check
	// that turns a missing provider credential into a fatal error is driven by
	// each provider's own strict_mode (ProviderConfig.StrictMode).
	StrictMode bool `yaml:"strict_mode"`
}

// DefaultPreset matches the numeric defaults named throughout the spec.
func DefaultPreset() Preset {
	return Preset{
		Name: "default",
		Thresholds: Thresholds{
			PriceMin:              0.50,
			FloatSharesMax:        500_000_000,
			ShortInterestPctMin:   5,
			ShortInterestPctPref:  20,
			DaysToCoverMin:        1,
			DaysToCoverPref:       3,
			BorrowFeePctMin:       4,
			BorrowFeePctPref:      8,
			BorrowFeeTrendMinPP7d: 0,
			AvgDollarLiquidityMin: 500_000,
			CatalystWindowDaysMin: 0,
			CatalystWindowDaysMax: 30,
			RSIBuyMin:             60,
			RSIBuyMax:             75,
			ATRPctMin:             4,
		},
		Momentum: Momentum{
			RelVolTradeReady:   3.0,
			RelVolEarly:        1.8,
			HighPriorityRelVol: 3.0,
		},
		Weights: Weights{
			Momentum:  0.25,
			Squeeze:   0.20,
			Catalyst:  0.30,
			Sentiment: 0.15,
			Technical: 0.10,
		},
		Tiers: Tiers{
			TradeReady: TierRange{ScoreMin: 75, ScoreMax: 0},
			EarlyReady: TierRange{ScoreMin: 60, ScoreMax: 80},
			Watch:      TierRange{ScoreMin: 45, ScoreMax: 0},
			Monitor:    TierRange{ScoreMin: 30, ScoreMax: 0},
		},
		ColdTape: ColdTape{
			ConsecutiveRuns: 3,
			CountCeiling:    2,
			WindowSec:       3600,
			ScoreCeiling:    82,
			Relaxation: Relaxation{
				RelVolTradeReadyDelta: 0.5,
				RelVolEarlyDelta:      0.3,
				RSIMinDelta:           5,
				ATRPctMinDelta:        1,
			},
		},
		Exclusions: Exclusions{
			ExcludeHaltsToday: true,
			MaxSpreadPct:      5.0,
		},
		Freshness: FreshnessCfg{
			ShortInterestMaxAgeDays: 14,
		},
		MaxPrefilteredTickers: 1200,
		StrictMode:            false,
	}
}

// LoadPreset reads and validates a preset from a YAML file, falling back to
// DefaultPreset when path is empty (mirrors SQUEEZE_CONFIG_PATH semantics).
func LoadPreset(path string) (Preset, error) {
	if path == "" {
		return DefaultPreset(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset config: %w", err)
	}

	preset := DefaultPreset()
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return Preset{}, fmt.Errorf("parse preset config: %w", err)
	}

	if err := preset.Validate(); err != nil {
		return Preset{}, fmt.Errorf("invalid preset config: %w", err)
	}

	return preset, nil
}

// Validate rejects a preset that would make the pipeline behave incoherently.
func (p *Preset) Validate() error {
	if p.Thresholds.PriceMin <= 0 {
		return fmt.Errorf("thresholds.price_min must be positive, got %f", p.Thresholds.PriceMin)
	}
	if p.Thresholds.FloatSharesMax <= 0 {
		return fmt.Errorf("thresholds.float_shares_max must be positive, got %f", p.Thresholds.FloatSharesMax)
	}
	sum := p.Weights.Momentum + p.Weights.Squeeze + p.Weights.Catalyst + p.Weights.Sentiment + p.Weights.Technical
	if sum <= 0 {
		return fmt.Errorf("weights must sum to a positive value, got %f", sum)
	}
	if p.ColdTape.ConsecutiveRuns <= 0 {
		return fmt.Errorf("coldTape.consecutive_runs must be positive, got %d", p.ColdTape.ConsecutiveRuns)
	}
	if p.ColdTape.ScoreCeiling <= 0 || p.ColdTape.ScoreCeiling > 100 {
		return fmt.Errorf("coldTape.score_ceiling must be in (0,100], got %f", p.ColdTape.ScoreCeiling)
	}
	if p.MaxPrefilteredTickers <= 0 {
		p.MaxPrefilteredTickers = 1200
	}
	return nil
}
