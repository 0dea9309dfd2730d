package gates

import (
	"math"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

// SoftScoreResult carries the gate score, the readiness tier flags, and the
// flags struct the scorer/action-mapper and the run audit both read.
type SoftScoreResult struct {
	GateScore      float64
	PassTradeReady bool
	PassEarly      bool
	Flags          model.Flags
}

// SoftScore implements stage B of §4.6: momentum tier evaluation followed by
// the bonus/penalty ladder. t and m carry the effective (possibly
// cold-tape-relaxed) thresholds; coldTapeActive disables the TRADE_READY tier
// outright regardless of whether its numeric conditions are met.
func SoftScore(rec *model.FeatureRecord, t config.Thresholds, m config.Momentum, coldTapeActive bool) SoftScoreResult {
	score := 50.0
	var flags model.Flags

	tech := rec.Technicals
	vwapReclaim := rec.Price > tech.VWAP && tech.VWAP > 0

	passTradeReady := false
	passEarly := false

	if !coldTapeActive && tech.RelVolume >= m.RelVolTradeReady && math.Abs(tech.PriceChange1DPct) >= 3.5 && vwapReclaim {
		score += 20
		passTradeReady = true
		flags.VWAPReclaim = true
	}

	if !passTradeReady && tech.RelVolume >= m.RelVolEarly && rec.Catalyst.Type != "" {
		score += 10
		passEarly = true
	}

	switch {
	case tech.RelVolume >= m.HighPriorityRelVol:
		score += 15
		flags.HighVolumeSpike = true
		flags.HighPriority = true
	case tech.RelVolume >= 1.5:
		score += 5
	case tech.RelVolume > 0:
		score -= 10
	}

	if tech.RSI > 0 && tech.RSI <= 35 && tech.RelVolume >= 2 {
		score += 8
		flags.OversoldBounce = true
	} else if tech.RSI >= t.RSIBuyMin && tech.RSI <= t.RSIBuyMax {
		score += 5
		flags.GoodTechnicals = true
	}

	if tech.ATRPct >= t.ATRPctMin {
		flags.GoodTechnicals = true
	}

	if tech.PriceChange1DPct > 5 {
		score += 15
		flags.MomentumBreakout = true
	}

	if rec.ShortInterestPct != nil {
		switch {
		case *rec.ShortInterestPct >= t.ShortInterestPctPref:
			score += 20
		case *rec.ShortInterestPct >= 10:
			score += 8
		case *rec.ShortInterestPct < 5:
			score -= 5
		}
	}

	if rec.DaysToCover != nil {
		switch {
		case *rec.DaysToCover >= 3:
			score += 10
		case *rec.DaysToCover < 1:
			score -= 5
		}
	}

	if rec.BorrowFeePct != nil && *rec.BorrowFeePct >= 8 {
		score += 12
	}
	if rec.BorrowFeeTrendPP7d != nil && *rec.BorrowFeeTrendPP7d > 0 {
		score += 10
	}

	if rec.Catalyst.Type != "" {
		if rec.Catalyst.VerifiedInWindow {
			score += 12
		} else {
			score += 5
		}
	}

	if rec.AvgDollarLiquidity30d != nil {
		switch {
		case *rec.AvgDollarLiquidity30d >= 10_000_000:
			score += 8
		case *rec.AvgDollarLiquidity30d >= 5_000_000:
			score += 4
		}
	}

	if rec.Freshness.ShortInterestAgeDays > 30 {
		score -= 5
	}
	if rec.SIProvenance != "" && rec.SIProvenance != model.ProvenanceReal {
		score -= 3
	}

	score = math.Max(0, score)

	return SoftScoreResult{
		GateScore:      score,
		PassTradeReady: passTradeReady,
		PassEarly:      passEarly,
		Flags:          flags,
	}
}
