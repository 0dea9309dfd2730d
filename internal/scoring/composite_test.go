package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
)

func floatp(v float64) *float64 { return &v }

func TestScore_CompositeWithinRange(t *testing.T) {
	weights := config.DefaultPreset().Weights
	thresholds := config.DefaultPreset().Thresholds

	rec := &model.FeatureRecord{
		Price:            5,
		ShortInterestPct: floatp(35),
		DaysToCover:      floatp(5),
		BorrowFeePct:     floatp(12),
		Catalyst:         model.Catalyst{Type: "earnings_approach", VerifiedInWindow: true, Strength: 0.9},
		Technicals: model.Technicals{
			VWAP: 4.80, EMA9: 5.1, EMA20: 5.0, RSI: 68, ATRPct: 6, RelVolume: 4.0,
		},
	}

	result := Score(rec, weights, thresholds)
	assert.GreaterOrEqual(t, result.Composite, 0.0)
	assert.LessOrEqual(t, result.Composite, 100.0)
	assert.GreaterOrEqual(t, result.Composite, 75.0, "strong-tape scenario should score highly")
}

func TestScore_OmitsAbsentComponents(t *testing.T) {
	weights := config.DefaultPreset().Weights
	thresholds := config.DefaultPreset().Thresholds

	// Only momentum inputs present; squeeze/catalyst/sentiment/technical absent.
	rec := &model.FeatureRecord{
		Price:      5,
		Technicals: model.Technicals{VWAP: 4.8, RelVolume: 2},
	}

	result := Score(rec, weights, thresholds)
	present := 0
	for _, c := range result.Components {
		if c.Present {
			present++
			assert.Equal(t, "momentum", c.Name)
		}
	}
	assert.Equal(t, 1, present)
}

func TestScore_AllComponentsAbsentYieldsZero(t *testing.T) {
	weights := config.DefaultPreset().Weights
	thresholds := config.DefaultPreset().Thresholds
	rec := &model.FeatureRecord{}

	result := Score(rec, weights, thresholds)
	assert.Equal(t, 0.0, result.Composite)
	for _, c := range result.Components {
		assert.False(t, c.Present)
	}
}

func TestScore_RenormalizesOverPresentWeights(t *testing.T) {
	weights := config.DefaultPreset().Weights
	thresholds := config.DefaultPreset().Thresholds

	// Only the squeeze component is present; its renormalized contribution
	// should equal its own subscore directly (weight/weight = 1).
	rec := &model.FeatureRecord{ShortInterestPct: floatp(50)}
	result := Score(rec, weights, thresholds)

	var squeezeSub float64
	for _, c := range result.Components {
		if c.Name == "squeeze" {
			squeezeSub = c.Subscore
		}
	}
	assert.InDelta(t, squeezeSub, result.Composite, 1.0)
}

func TestScore_ClampedToHundred(t *testing.T) {
	weights := config.DefaultPreset().Weights
	thresholds := config.DefaultPreset().Thresholds

	rec := &model.FeatureRecord{
		Price:            100,
		ShortInterestPct: floatp(100),
		DaysToCover:      floatp(30),
		BorrowFeePct:     floatp(100),
		Catalyst:         model.Catalyst{Type: "earnings_approach", VerifiedInWindow: true, Strength: 1},
		Sentiment:        model.Sentiment{Present: true, Score: 1},
		Options:          model.Options{Present: true, CallPutRatio: 0},
		Technicals: model.Technicals{
			VWAP: 1, EMA9: 10, EMA20: 5, RSI: 60, ATRPct: 5, RelVolume: 20,
		},
	}
	result := Score(rec, weights, thresholds)
	assert.LessOrEqual(t, result.Composite, 100.0)
}

func TestRsiSweetSpot_PeaksInsideRangeAndDecaysOutside(t *testing.T) {
	assert.Equal(t, 100.0, rsiSweetSpot(65, 60, 75))
	assert.Less(t, rsiSweetSpot(40, 60, 75), 100.0)
	assert.Less(t, rsiSweetSpot(90, 60, 75), 100.0)
}

func TestAtrSweetSpot_PeaksInsideRangeAndDecaysOutside(t *testing.T) {
	assert.Equal(t, 100.0, atrSweetSpot(5, 4, 8))
	assert.Less(t, atrSweetSpot(1, 4, 8), 100.0)
	assert.Less(t, atrSweetSpot(20, 4, 8), 100.0)
}
