package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

func floatp(v float64) *float64 { return &v }

func defaultThresholds() config.Thresholds {
	return config.DefaultPreset().Thresholds
}

func defaultExclusions() config.Exclusions {
	return config.DefaultPreset().Exclusions
}

func TestHardEliminate_PriceBelowMinimum(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 0.25}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "price_below_minimum")
}

func TestHardEliminate_NoPriceData(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 0}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "no_price_data")
	assert.NotContains(t, reasons, "price_below_minimum")
}

func TestHardEliminate_PortfolioExclusion(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, Held: true}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "portfolio_exclusion")
}

func TestHardEliminate_InsufficientLiquidity(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, AvgDollarLiquidity30d: floatp(100_000)}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "insufficient_liquidity")
}

func TestHardEliminate_UnknownLiquiditySkipped(t *testing.T) {
	// Nil liquidity means "unknown" and must not be treated as a failure.
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.NotContains(t, reasons, "insufficient_liquidity")
}

func TestHardEliminate_FloatExceedsMax(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, FloatShares: floatp(600_000_000)}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "float_exceeds_max")
}

func TestHardEliminate_HaltsToday(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, HaltedToday: true}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "halts_today")
}

func TestHardEliminate_HaltsTodayIgnoredWhenExclusionDisabled(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, HaltedToday: true}
	excl := defaultExclusions()
	excl.ExcludeHaltsToday = false
	reasons := HardEliminate(rec, defaultThresholds(), excl)
	assert.NotContains(t, reasons, "halts_today")
}

func TestHardEliminate_ExcessiveSpread(t *testing.T) {
	rec := &model.FeatureRecord{Ticker: "FOO", Price: 10, SpreadPctToday: floatp(8)}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Contains(t, reasons, "excessive_spread")
}

func TestHardEliminate_CollectsAllReasons(t *testing.T) {
	// No short-circuiting: every failing condition shows up in the drop audit.
	rec := &model.FeatureRecord{
		Ticker: "FOO", Price: 0.25, Held: true,
		FloatShares: floatp(600_000_000), HaltedToday: true,
	}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.ElementsMatch(t, []string{
		"portfolio_exclusion", "price_below_minimum", "float_exceeds_max", "halts_today",
	}, reasons)
}

func TestHardEliminate_SurvivorHasNoReasons(t *testing.T) {
	rec := &model.FeatureRecord{
		Ticker: "BAR", Price: 5, FloatShares: floatp(80_000_000),
		AvgDollarLiquidity30d: floatp(12_000_000),
	}
	reasons := HardEliminate(rec, defaultThresholds(), defaultExclusions())
	assert.Empty(t, reasons)
}
