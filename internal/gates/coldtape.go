package gates

import (
	"sync"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

// ColdTapeDetector counts consecutive cold runs from each run's per-stage
// gate counts (across runs, not within one run) and decides whether the market is "cold"
// — too few qualifying candidates for several runs in a row. Open question
// resolved: the detector counts consecutive runs, not elapsed wall-clock
// (see DESIGN.md); coldTape.windowSec is retained in config for parity with
// the source but unused here.
//
// Lifecycle: one instance lives for the process, constructed once and reused
// across engine invocations (the run controller is otherwise stateless), the
// way the design notes call for an owned registry instead of a package-level
// mutable map. Updates are applied atomically at the end of each run.
type ColdTapeDetector struct {
	mu                sync.Mutex
	consecutiveColdRuns int
}

// NewColdTapeDetector constructs a detector with an empty history.
func NewColdTapeDetector() *ColdTapeDetector {
	return &ColdTapeDetector{}
}

// IsActive reports whether cold tape is currently in effect, based on the
// history recorded by prior calls to Record.
func (d *ColdTapeDetector) IsActive(cfg config.ColdTape) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consecutiveColdRuns >= cfg.ConsecutiveRuns
}

// Record updates the consecutive-cold-run count from this run's gate counts, to be
// called exactly once at the end of a run.
func (d *ColdTapeDetector) Record(counts model.GateCounts, cfg config.ColdTape) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cold := counts.TradeReadyMomentum <= cfg.CountCeiling &&
		counts.Technical <= cfg.CountCeiling &&
		counts.Squeeze <= cfg.CountCeiling &&
		counts.Catalyst <= cfg.CountCeiling

	if cold {
		d.consecutiveColdRuns++
	} else {
		d.consecutiveColdRuns = 0
	}
}

// RelaxedThresholds returns t/m with the preset's cold-tape relaxation delta
// applied, used for the run during which cold tape is active.
func RelaxedThresholds(t config.Thresholds, m config.Momentum, relax config.Relaxation) (config.Thresholds, config.Momentum) {
	m.RelVolTradeReady -= relax.RelVolTradeReadyDelta
	m.RelVolEarly -= relax.RelVolEarlyDelta
	t.RSIBuyMin -= relax.RSIMinDelta
	t.ATRPctMin -= relax.ATRPctMinDelta
	return t, m
}
