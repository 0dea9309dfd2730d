package universe

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/providers"
)

func TestFilterHeld_RemovesHeldTickers(t *testing.T) {
	held := map[string]bool{"AAPL": true}
	out := FilterHeld([]string{"AAPL", "MSFT", "GOOG"}, held)
	assert.ElementsMatch(t, []string{"MSFT", "GOOG"}, out)
}

func TestPreFilter_SnapshotCriteria(t *testing.T) {
	snapshot := map[string]providers.SnapshotRow{
		"GOOD": {Price: 10, DayVolume: 1_000_000, DayChangePct: 3.0, DayDollarVolume: 5_000_000},
		"LOWP": {Price: 1, DayVolume: 1_000_000, DayChangePct: 3.0, DayDollarVolume: 5_000_000},
		"HIGHP": {Price: 200, DayVolume: 1_000_000, DayChangePct: 3.0, DayDollarVolume: 5_000_000},
		"THIN": {Price: 10, DayVolume: 100_000, DayChangePct: 3.0, DayDollarVolume: 5_000_000},
		"FLAT": {Price: 10, DayVolume: 1_000_000, DayChangePct: 0.5, DayDollarVolume: 5_000_000},
		"NODOLLAR": {Price: 10, DayVolume: 1_000_000, DayChangePct: 3.0, DayDollarVolume: 100_000},
	}
	tickers := []string{"GOOD", "LOWP", "HIGHP", "THIN", "FLAT", "NODOLLAR", "NOSNAP"}

	out := PreFilter(tickers, snapshot, 100)
	assert.Equal(t, []string{"GOOD"}, out)
}

func TestPreFilter_ShapeHeuristicFallbackWhenNoSnapshot(t *testing.T) {
	tickers := []string{"AB", "ABCDE", "AXZ", "GOOD"}
	out := PreFilter(tickers, nil, 100)
	assert.Equal(t, []string{"AB", "GOOD"}, out)
}

func TestPreFilter_CapsAtMax(t *testing.T) {
	tickers := []string{"AAA", "BBB", "CCC", "DDD"}
	out := PreFilter(tickers, nil, 2)
	assert.Len(t, out, 2)
}

func TestPreFilter_ScanMaxTickersEnvOverridesPresetCap(t *testing.T) {
	t.Setenv("SCAN_MAX_TICKERS", "1")
	tickers := []string{"AAA", "BBB", "CCC"}
	out := PreFilter(tickers, nil, 100)
	assert.Len(t, out, 1)
}

func TestEnvOverrideSource_UsesTestSymbolsWhenSet(t *testing.T) {
	t.Setenv("ENGINE_TEST_SYMBOLS", "foo, bar ,BAZ")
	src := EnvOverrideSource{Delegate: failingSource{}}
	out, err := src.ActiveTickers(context.Background())
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]string{"FOO", "BAR", "BAZ"}, out)
}

func TestEnvOverrideSource_DelegatesWhenUnset(t *testing.T) {
	os.Unsetenv("ENGINE_TEST_SYMBOLS")
	src := EnvOverrideSource{Delegate: fixedSource{tickers: []string{"AAPL"}}}
	out, err := src.ActiveTickers(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, out)
}

type failingSource struct{}

func (failingSource) ActiveTickers(ctx context.Context) ([]string, error) {
	panic("should not be called when env override is set")
}

type fixedSource struct{ tickers []string }

func (f fixedSource) ActiveTickers(ctx context.Context) ([]string, error) {
	return f.tickers, nil
}
