// Package action implements the action/readiness-tier mapper (C8): the
// first-match-wins rule ladder from §4.8, plus the strong-tape guard and the
// two-of-four technical confirmation check gating any BUY.
package action

import (
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

// Inputs bundles everything the mapper consults, mirroring §4.8's inputs
// list rather than taking the whole FeatureRecord so the mapping rule stays
// testable in isolation from the scorer and gate engine.
type Inputs struct {
	Composite      float64
	PassTradeReady bool
	PassEarly      bool
	Price          float64
	VWAP           float64
	CatalystPresent bool
	ColdTapeActive bool

	VWAPHeldOrReclaimed bool
	EMA9                float64
	EMA20               float64
	ATRPct              float64
	RSI                 float64
	RelVolume           float64
}

// Map implements §4.8's rule ladder and returns the resulting (tier, action).
func Map(in Inputs, tiers config.Tiers, t config.Thresholds) (model.Tier, model.Action) {
	aboveVWAP := in.Price > in.VWAP && in.VWAP > 0

	tier, action := classify(in, tiers, aboveVWAP)

	if strongTapeGuard(in, tiers) {
		action = model.ActionBuy
	}

	if action == model.ActionBuy && !technicalConfirmation(in, t) {
		action = model.ActionWatchlist
		if tier == model.TierTradeReady {
			tier = model.TierWatch
		}
	}

	return tier, action
}

func classify(in Inputs, tiers config.Tiers, aboveVWAP bool) (model.Tier, model.Action) {
	if in.Composite >= tiers.TradeReady.ScoreMin && aboveVWAP && in.PassTradeReady && !in.ColdTapeActive {
		return model.TierTradeReady, model.ActionBuy
	}

	if inRange(in.Composite, tiers.EarlyReady) && in.PassEarly && in.CatalystPresent {
		return model.TierEarlyReady, model.ActionEarlyReady
	}

	if in.Composite >= tiers.Watch.ScoreMin {
		return model.TierWatch, model.ActionWatchlist
	}

	if in.Composite >= tiers.Monitor.ScoreMin || (in.RelVolume >= 3 && aboveVWAP) {
		return model.TierMonitor, model.ActionMonitor
	}

	return model.TierNone, model.ActionNoAction
}

func strongTapeGuard(in Inputs, tiers config.Tiers) bool {
	return in.RelVolume >= 5 && in.Price >= in.VWAP && in.VWAP > 0 && in.Composite >= tiers.Watch.ScoreMin-5
}

// technicalConfirmation requires at least 2 of the 4 named signals.
func technicalConfirmation(in Inputs, t config.Thresholds) bool {
	count := 0
	if in.VWAPHeldOrReclaimed {
		count++
	}
	if in.EMA9 >= in.EMA20 && in.EMA20 > 0 {
		count++
	}
	if in.ATRPct >= t.ATRPctMin {
		count++
	}
	if in.RSI >= t.RSIBuyMin && in.RSI <= t.RSIBuyMax {
		count++
	}
	return count >= 2
}

func inRange(v float64, r config.TierRange) bool {
	if v < r.ScoreMin {
		return false
	}
	if r.ScoreMax > 0 && v > r.ScoreMax {
		return false
	}
	return true
}
