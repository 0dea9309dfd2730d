// Package gates implements the two-stage gate engine (C6): hard elimination
// followed by soft scoring with cold-tape relaxation. Hard elimination
// collects every failing reason rather than short-circuiting on the first,
// the way the teacher's gate evaluator walks freshness/fatigue/late-fill/
// microstructure in sequence and appends a GateReason per stage
// (internal/domain/gates/evaluate.go) — adapted here onto the squeeze
// screen's seven reason codes instead of the teacher's momentum-fatigue set.
package gates

import (
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

// HardEliminate returns the reason codes that exclude rec, or nil if rec
// survives to soft scoring. Every condition is checked (no short-circuit) so
// the run's audit trail shows every reason a ticker was dropped.
func HardEliminate(rec *model.FeatureRecord, t config.Thresholds, excl config.Exclusions) []string {
	var reasons []string

	if rec.Held {
		reasons = append(reasons, "portfolio_exclusion")
	}

	if rec.Price <= 0 {
		reasons = append(reasons, "no_price_data")
	} else if rec.Price <= t.PriceMin {
		reasons = append(reasons, "price_below_minimum")
	}

	if rec.AvgDollarLiquidity30d != nil && *rec.AvgDollarLiquidity30d > 0 && *rec.AvgDollarLiquidity30d <= t.AvgDollarLiquidityMin {
		reasons = append(reasons, "insufficient_liquidity")
	}

	if rec.FloatShares != nil && *rec.FloatShares > t.FloatSharesMax {
		reasons = append(reasons, "float_exceeds_max")
	}

	if excl.ExcludeHaltsToday && rec.HaltedToday {
		reasons = append(reasons, "halts_today")
	}

	if rec.SpreadPctToday != nil && *rec.SpreadPctToday > excl.MaxSpreadPct {
		reasons = append(reasons, "excessive_spread")
	}

	return reasons
}
