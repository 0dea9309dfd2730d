package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

func TestColdTapeDetector_ActivatesAfterThreeConsecutiveColdRuns(t *testing.T) {
	cfg := config.DefaultPreset().ColdTape
	d := NewColdTapeDetector()
	cold := model.GateCounts{TradeReadyMomentum: 1, Technical: 2, Squeeze: 0, Catalyst: 1}

	assert.False(t, d.IsActive(cfg))
	d.Record(cold, cfg)
	assert.False(t, d.IsActive(cfg))
	d.Record(cold, cfg)
	assert.False(t, d.IsActive(cfg))
	d.Record(cold, cfg)
	// The fourth run now observes cold tape active.
	assert.True(t, d.IsActive(cfg))
}

func TestColdTapeDetector_ResetsOnWarmRun(t *testing.T) {
	cfg := config.DefaultPreset().ColdTape
	d := NewColdTapeDetector()
	cold := model.GateCounts{TradeReadyMomentum: 1, Technical: 1, Squeeze: 1, Catalyst: 1}
	warm := model.GateCounts{TradeReadyMomentum: 10, Technical: 10, Squeeze: 10, Catalyst: 10}

	d.Record(cold, cfg)
	d.Record(cold, cfg)
	d.Record(warm, cfg)
	d.Record(cold, cfg)
	assert.False(t, d.IsActive(cfg))
}

func TestRelaxedThresholds_LowersRelevantCutoffs(t *testing.T) {
	preset := config.DefaultPreset()
	t2, m2 := RelaxedThresholds(preset.Thresholds, preset.Momentum, preset.ColdTape.Relaxation)

	assert.Less(t, m2.RelVolTradeReady, preset.Momentum.RelVolTradeReady)
	assert.Less(t, m2.RelVolEarly, preset.Momentum.RelVolEarly)
	assert.Less(t, t2.RSIBuyMin, preset.Thresholds.RSIBuyMin)
	assert.Less(t, t2.ATRPctMin, preset.Thresholds.ATRPctMin)
}
