// Package universe implements the universe source and snapshot pre-filter
// (C5): produce the candidate ticker set, then cheaply reduce it with a
// snapshot-based pass before the expensive per-provider fan-out runs.
package universe

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/sawpanic/squeezescout/internal/providers"
)

// Source returns the set of active, tradeable US common-stock tickers
// per §4.5; held positions are removed afterwards by FilterHeld. ENGINE_TEST_SYMBOLS overrides with a
// fixed deterministic list for tests.
type Source interface {
	ActiveTickers(ctx context.Context) ([]string, error)
}

// EnvOverrideSource returns ENGINE_TEST_SYMBOLS (comma-separated) when set;
// otherwise it delegates to the wrapped broker-backed source.
type EnvOverrideSource struct {
	Delegate Source
}

func (s EnvOverrideSource) ActiveTickers(ctx context.Context) ([]string, error) {
	if raw := os.Getenv("ENGINE_TEST_SYMBOLS"); raw != "" {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return s.Delegate.ActiveTickers(ctx)
}

// FilterHeld removes held tickers from the universe up front per §4.5.
func FilterHeld(tickers []string, held map[string]bool) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !held[t] {
			out = append(out, t)
		}
	}
	return out
}

// defaultMaxPrefiltered is the fallback cap named in §4.5 when
// SCAN_MAX_TICKERS and the preset's MaxPrefilteredTickers are both unset.
const defaultMaxPrefiltered = 1200

// PreFilter applies §4.5's snapshot criteria, or the symbol-shape heuristic
// fallback when no snapshot is available. presetMax is the preset's
// configured cap; SCAN_MAX_TICKERS overrides it when set.
func PreFilter(tickers []string, snapshot map[string]providers.SnapshotRow, presetMax int) []string {
	maxTickers := effectiveMax(presetMax)

	if len(snapshot) > 0 {
		return capAt(snapshotFilter(tickers, snapshot), maxTickers)
	}
	return capAt(shapeHeuristicFilter(tickers), maxTickers)
}

func snapshotFilter(tickers []string, snapshot map[string]providers.SnapshotRow) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		row, ok := snapshot[t]
		if !ok {
			continue
		}
		if row.Price < 2 || row.Price > 100 {
			continue
		}
		if row.DayVolume < 500_000 {
			continue
		}
		if abs(row.DayChangePct) < 2.0 {
			continue
		}
		if row.DayDollarVolume < 1_000_000 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// shapeHeuristicFilter is the no-snapshot fallback: short symbols without
// the leveraged/ETF-shaped letters X or Z.
func shapeHeuristicFilter(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if len(t) > 4 {
			continue
		}
		if strings.ContainsAny(t, "XZ") {
			continue
		}
		out = append(out, t)
	}
	return out
}

func effectiveMax(presetMax int) int {
	if raw := os.Getenv("SCAN_MAX_TICKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	if presetMax > 0 {
		return presetMax
	}
	return defaultMaxPrefiltered
}

func capAt(tickers []string, max int) []string {
	if len(tickers) <= max {
		return tickers
	}
	return tickers[:max]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
