package estimator

import (
	"math"
	"time"

	"github.com/sawpanic/squeezescout/internal/model"
)

// earningsAnchors are day-of-year centers for the four typical quarterly
// earnings windows (roughly end of Jan/Apr/Jul/Oct), used as a catalyst proxy
// when no provider-sourced earnings date is available.
var earningsAnchors = [4]int{31, 120, 212, 304}

// CatalystInputs bundles the technical signals the estimator scores when a
// provider catalyst is absent, per §4.3's candidate list.
type CatalystInputs struct {
	RelVolume        float64
	Change1DPct      float64
	Change5DPct      float64
	Change30DPct     float64
	RSI              float64
	Volatility30d    float64
	Asof             time.Time
}

type catalystCandidate struct {
	kind     string
	strength float64
	daysToEvent float64
}

// EstimateCatalyst picks the single strongest technical-signal catalyst per
// the ordered candidate list in §4.3, falling back to the placeholder
// technical_pattern entry when nothing else fires. Mirrors the teacher's
// tier-decay estimator in spirit (score every candidate signal, keep the
// strongest) without reusing its exponential half-life, since §4.3 spells out
// linear strength formulas per signal instead.
func EstimateCatalyst(in CatalystInputs) model.Catalyst {
	candidates := make([]catalystCandidate, 0, 7)

	if in.RelVolume > 3 {
		candidates = append(candidates, catalystCandidate{"volume_breakout", math.Min(in.RelVolume/5, 1), 0})
	}

	if math.Abs(in.Change1DPct) > 10 {
		kind := "price_breakout"
		if in.Change1DPct < 0 {
			kind = "price_breakdown"
		}
		candidates = append(candidates, catalystCandidate{kind, math.Min(math.Abs(in.Change1DPct)/20, 1), 0})
	}

	if in.Change5DPct < -15 && in.Change1DPct > 5 {
		candidates = append(candidates, catalystCandidate{"reversal_setup", 0.7, 0})
	}

	if in.RSI > 0 && in.RSI < 25 && in.Change1DPct > 3 {
		candidates = append(candidates, catalystCandidate{"oversold_bounce", 0.8, 0})
	}

	if in.Volatility30d > 50 {
		candidates = append(candidates, catalystCandidate{"volatility_expansion", math.Min(in.Volatility30d/100, 0.9), 0})
	}

	if d, ok := nearestEarningsDistance(in.Asof); ok && d <= 30 {
		candidates = append(candidates, catalystCandidate{"earnings_approach", math.Max(0.3, 1-d/30), d})
	}

	best, ok := strongest(candidates)
	if !ok {
		return model.Catalyst{
			Type: "technical_pattern", Strength: 0.1, VerifiedInWindow: false, Placeholder: true,
		}
	}

	return model.Catalyst{
		Type:             best.kind,
		Strength:         best.strength,
		DaysToEvent:      best.daysToEvent,
		VerifiedInWindow: false,
		DateValid:        best.kind == "earnings_approach",
		Placeholder:      false,
	}
}

func strongest(candidates []catalystCandidate) (catalystCandidate, bool) {
	if len(candidates) == 0 {
		return catalystCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.strength > best.strength {
			best = c
		}
	}
	return best, true
}

// nearestEarningsDistance returns the minimum number of days from asof to the
// nearest quarterly earnings anchor, wrapping across year boundaries.
func nearestEarningsDistance(asof time.Time) (float64, bool) {
	if asof.IsZero() {
		return 0, false
	}
	doy := float64(asof.YearDay())
	yearLen := 365.0
	if isLeap(asof.Year()) {
		yearLen = 366.0
	}

	best := math.Inf(1)
	for _, anchor := range earningsAnchors {
		d := math.Abs(doy - float64(anchor))
		wrapped := yearLen - d
		if wrapped < d {
			d = wrapped
		}
		if d < best {
			best = d
		}
	}
	return best, true
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
