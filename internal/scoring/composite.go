// Package scoring implements the weighted five-component composite scorer
// (C7). Each component yields a 0..100 sub-score only when at least one of
// its inputs is present; the composite renormalizes over the weights of
// present components, the way the teacher's composite scorer renormalizes
// weighted contributions per regime (internal/domain/scoring/composite.go) —
// adapted here from regime-selected crypto factor weights to the squeeze
// preset's fixed five-component weight set.
package scoring

import (
	"math"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

// Result is the scorer's output: the rounded composite plus full attribution.
type Result struct {
	Composite  float64
	Components []model.ComponentSubscore
}

// Score computes the composite for one FeatureRecord under weights w.
func Score(rec *model.FeatureRecord, w config.Weights, t config.Thresholds) Result {
	components := []model.ComponentSubscore{
		momentumComponent(rec, w.Momentum),
		squeezeComponent(rec, w.Squeeze),
		catalystComponent(rec, w.Catalyst),
		sentimentComponent(rec, w.Sentiment),
		technicalComponent(rec, w.Technical, t),
	}

	var weightedSum, presentWeight float64
	for _, c := range components {
		if !c.Present {
			continue
		}
		weightedSum += c.Subscore * c.Weight
		presentWeight += c.Weight
	}

	composite := 0.0
	if presentWeight > 0 {
		composite = weightedSum / presentWeight
	}
	composite = math.Round(clamp(0, 100, composite))

	return Result{Composite: composite, Components: components}
}

func momentumComponent(rec *model.FeatureRecord, weight float64) model.ComponentSubscore {
	t := rec.Technicals
	hasRelVol := t.RelVolume > 0
	hasPrice := rec.Price > 0 && t.VWAP > 0
	hasEMA := t.EMA9 > 0 && t.EMA20 > 0

	if !hasRelVol && !hasPrice && !hasEMA {
		return model.ComponentSubscore{Name: "momentum", Weight: weight, Present: false}
	}

	var parts []float64
	if hasRelVol {
		rv := t.RelVolume
		if rv > 10 {
			rv = 10
		}
		score := rv / 10 * 100
		if rv >= 3 {
			score = math.Min(100, score+10)
		}
		parts = append(parts, score)
	}
	if hasPrice {
		priceVsVWAP := (rec.Price - t.VWAP) / t.VWAP
		score := (math.Tanh(priceVsVWAP*10) + 1) / 2 * 100
		parts = append(parts, score)
	}
	if hasEMA {
		slope := (t.EMA9 - t.EMA20) / t.EMA20
		score := (math.Tanh(slope*20) + 1) / 2 * 100
		if t.EMA9 >= t.EMA20 {
			score = math.Min(100, score+10)
		}
		parts = append(parts, score)
	}

	return model.ComponentSubscore{Name: "momentum", Subscore: average(parts), Weight: weight, Present: true}
}

func squeezeComponent(rec *model.FeatureRecord, weight float64) model.ComponentSubscore {
	hasSI := rec.ShortInterestPct != nil
	hasDTC := rec.DaysToCover != nil
	hasFee := rec.BorrowFeePct != nil

	if !hasSI && !hasDTC && !hasFee {
		return model.ComponentSubscore{Name: "squeeze", Weight: weight, Present: false}
	}

	var parts []float64
	if hasSI {
		parts = append(parts, clamp(0, 100, *rec.ShortInterestPct))
	}
	if hasDTC {
		score := 0.0
		if *rec.DaysToCover >= 3 {
			score = 80
		} else {
			score = *rec.DaysToCover / 3 * 80
		}
		parts = append(parts, score)
	}
	if hasFee {
		parts = append(parts, clamp(0, 100, *rec.BorrowFeePct*10))
	}

	return model.ComponentSubscore{Name: "squeeze", Subscore: average(parts), Weight: weight, Present: true}
}

func catalystComponent(rec *model.FeatureRecord, weight float64) model.ComponentSubscore {
	c := rec.Catalyst
	if c.Type == "" {
		return model.ComponentSubscore{Name: "catalyst", Weight: weight, Present: false}
	}

	base := 40.0
	switch c.Type {
	case "earnings_approach":
		base = 80
	case "volume_breakout", "price_breakout", "price_breakdown", "reversal_setup", "oversold_bounce", "volatility_expansion":
		base = 60
	}

	score := base * (0.5 + 0.5*clamp(0, 1, c.Strength))
	if c.VerifiedInWindow {
		score = math.Min(100, score*1.2)
	}

	// Recency bonus: an event closing in fast earns a boost; a catalyst read
	// going stale loses one.
	if c.DaysToEvent > 0 && c.DaysToEvent <= 30 {
		score = math.Min(100, score+10*(1-c.DaysToEvent/30))
	}
	if rec.Freshness.CatalystAgeDays > 7 {
		score = math.Max(0, score-5)
	}

	return model.ComponentSubscore{Name: "catalyst", Subscore: clamp(0, 100, score), Weight: weight, Present: true}
}

func sentimentComponent(rec *model.FeatureRecord, weight float64) model.ComponentSubscore {
	hasSentiment := rec.Sentiment.Present
	hasSocial := rec.Social.Present && rec.Social.AvgMentions7d > 0

	if !hasSentiment && !hasSocial {
		return model.ComponentSubscore{Name: "sentiment", Weight: weight, Present: false}
	}

	var parts []float64
	if hasSentiment {
		parts = append(parts, (rec.Sentiment.Score+1)/2*100)
	}
	if hasSocial {
		const eps = 0.001
		velocity := rec.Social.MentionsToday / math.Max(eps, rec.Social.AvgMentions7d)
		if velocity > 5 {
			velocity = 5
		}
		parts = append(parts, velocity/5*100)
	}

	return model.ComponentSubscore{Name: "sentiment", Subscore: average(parts), Weight: weight, Present: true}
}

func technicalComponent(rec *model.FeatureRecord, weight float64, t config.Thresholds) model.ComponentSubscore {
	tech := rec.Technicals
	hasRSI := tech.RSI > 0
	hasATR := tech.ATRPct > 0
	hasOptions := rec.Options.Present

	if !hasRSI && !hasATR && !hasOptions {
		return model.ComponentSubscore{Name: "technical", Weight: weight, Present: false}
	}

	atrMax := t.ATRPctMin * 2

	var parts []float64
	if hasRSI {
		parts = append(parts, rsiSweetSpot(tech.RSI, t.RSIBuyMin, t.RSIBuyMax))
	}
	if hasATR {
		score := atrSweetSpot(tech.ATRPct, t.ATRPctMin, atrMax)
		if tech.ATRPct >= atrMax {
			score = math.Min(100, score+10)
		}
		parts = append(parts, score)
	}
	if hasOptions {
		score := clamp(0, 100, 50-rec.Options.CallPutRatio*25)
		parts = append(parts, score)
	}

	return model.ComponentSubscore{Name: "technical", Subscore: average(parts), Weight: weight, Present: true}
}

// rsiSweetSpot peaks at 100 inside [min,max] and decays linearly outside.
func rsiSweetSpot(rsi, min, max float64) float64 {
	if rsi >= min && rsi <= max {
		return 100
	}
	if rsi < min {
		return clamp(0, 100, 100-(min-rsi)*3)
	}
	return clamp(0, 100, 100-(rsi-max)*3)
}

// atrSweetSpot peaks at 100 inside [min,max] and decays outside.
func atrSweetSpot(atrPct, min, max float64) float64 {
	if atrPct >= min && atrPct <= max {
		return 100
	}
	if atrPct < min {
		return clamp(0, 100, 100-(min-atrPct)*20)
	}
	return clamp(0, 100, 100-(atrPct-max)*10)
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
