// Package indicators computes the technicals kit (C10) — VWAP, EMA9/EMA20,
// Wilder-smoothed RSI(14), ATR(14)%, and relative volume — from a session's
// minute bars. The Wilder smoothing recurrence (seed with a simple average,
// then roll forward with a 1/period weighted update) follows the teacher's
// technical-indicator package (internal/domain/indicators/technical.go),
// reshaped here onto the bar-level inputs and the exact field set §4.4 names.
package indicators

import (
	"math"

	"github.com/sawpanic/squeezescout/internal/model"
	"github.com/sawpanic/squeezescout/internal/providers"
)

const (
	rsiPeriod = 14
	atrPeriod = 14
)

// Compute derives a full Technicals record from a session's minute bars plus
// the previous day's close and the 30-day average daily volume (for relative
// volume). bars must be in chronological order; an empty slice returns a
// zero-value Technicals (all fields absent/zero, per §4.4 step 6's fallback
// chain handling price separately).
func Compute(bars []providers.Bar, prevClose float64, adv30Shares float64) model.Technicals {
	if len(bars) == 0 {
		return model.Technicals{}
	}

	vwap := computeVWAP(bars)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ema9 := ema(closes, 9)
	ema20 := ema(closes, 20)
	rsi := wilderRSI(closes, rsiPeriod)
	atrPct := wilderATRPct(bars, atrPeriod)

	dayVolume := 0.0
	for _, b := range bars {
		dayVolume += b.Volume
	}
	relVol := relativeVolume(dayVolume, adv30Shares)

	last := closes[len(closes)-1]
	change1D := 0.0
	if prevClose > 0 {
		change1D = (last - prevClose) / prevClose * 100
	}

	return model.Technicals{
		VWAP:                vwap,
		EMA9:                ema9,
		EMA20:               ema20,
		RSI:                 rsi,
		ATRPct:              atrPct,
		RelVolume:           relVol,
		Volume:              dayVolume,
		PriceChange1DPct:    change1D,
		VWAPHeldOrReclaimed: last > vwap && vwap > 0,
	}
}

// computeVWAP is the cumulative typical-price-weighted average over bars.
func computeVWAP(bars []providers.Bar) float64 {
	var pvSum, volSum float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pvSum += typical * b.Volume
		volSum += b.Volume
	}
	if volSum == 0 {
		return 0
	}
	return pvSum / volSum
}

// ema computes a standard exponential moving average over closes, seeded
// with a simple average of the first `period` closes.
func ema(closes []float64, period int) float64 {
	if len(closes) < period {
		period = len(closes)
	}
	if period == 0 {
		return 0
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	seed /= float64(period)

	alpha := 2.0 / (float64(period) + 1)
	value := seed
	for i := period; i < len(closes); i++ {
		value = alpha*closes[i] + (1-alpha)*value
	}
	return value
}

// wilderRSI computes RSI(period) using Wilder's smoothing: seed average
// gain/loss over the first `period` deltas, then roll forward with a
// 1/period-weighted update rather than a plain moving average.
func wilderRSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 0
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// wilderATRPct computes ATR(period) as a percentage of the latest close,
// using Wilder's smoothed true-range recurrence.
func wilderATRPct(bars []providers.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trueRanges = append(trueRanges, trueRange(bars[i], bars[i-1]))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	last := bars[len(bars)-1].Close
	if last == 0 {
		return 0
	}
	return atr / last * 100
}

func trueRange(cur, prev providers.Bar) float64 {
	return math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// relativeVolume is session volume-to-date over ADV30; callers supply
// already-accumulated session volume (sum of minute bars so far).
func relativeVolume(dayVolume, adv30Shares float64) float64 {
	if adv30Shares <= 0 {
		return 0
	}
	return dayVolume / adv30Shares
}

// DailyStats is the 5d/30d price-change and realized-volatility read the
// catalyst estimator's reversal_setup and volatility_expansion candidates
// need (§4.3), derived from a daily (not minute) bar series.
type DailyStats struct {
	Change5DPct   float64
	Change30DPct  float64
	Volatility30d float64
}

// ComputeDailyStats derives 5-session and 30-session percent change plus a
// 30-session annualized realized volatility (stdev of daily returns, scaled
// by sqrt(252) trading days) from a chronologically ordered daily bar series.
func ComputeDailyStats(dailyBars []providers.Bar) DailyStats {
	if len(dailyBars) < 2 {
		return DailyStats{}
	}

	closes := make([]float64, len(dailyBars))
	for i, b := range dailyBars {
		closes[i] = b.Close
	}
	last := closes[len(closes)-1]

	var stats DailyStats
	if idx := len(closes) - 1 - 5; idx >= 0 && closes[idx] > 0 {
		stats.Change5DPct = (last - closes[idx]) / closes[idx] * 100
	}
	if idx := len(closes) - 1 - 30; idx >= 0 && closes[idx] > 0 {
		stats.Change30DPct = (last - closes[idx]) / closes[idx] * 100
	}

	window := closes
	if len(window) > 31 {
		window = window[len(window)-31:]
	}
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] > 0 {
			returns = append(returns, (window[i]-window[i-1])/window[i-1])
		}
	}
	if len(returns) > 1 {
		mean := average(returns)
		var sumSq float64
		for _, r := range returns {
			sumSq += (r - mean) * (r - mean)
		}
		stdev := math.Sqrt(sumSq / float64(len(returns)-1))
		stats.Volatility30d = stdev * math.Sqrt(252) * 100
	}

	return stats
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
