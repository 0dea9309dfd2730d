package action

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/squeezescout/internal/config"
)

func defaultTiersAndThresholds() (config.Tiers, config.Thresholds) {
	p := config.DefaultPreset()
	return p.Tiers, p.Thresholds
}

func TestMap_TradeReadyBuy(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{
		Composite: 80, PassTradeReady: true, Price: 5, VWAP: 4.8,
		VWAPHeldOrReclaimed: true, EMA9: 5.1, EMA20: 5.0, ATRPct: 6, RSI: 68,
	}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "TRADE_READY", string(tier))
	assert.Equal(t, "BUY", string(act))
}

func TestMap_TradeReadyDeniedByColdTape(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{
		Composite: 80, PassTradeReady: true, Price: 5, VWAP: 4.8, ColdTapeActive: true,
		VWAPHeldOrReclaimed: true, EMA9: 5.1, EMA20: 5.0, ATRPct: 6, RSI: 68,
	}
	tier, act := Map(in, tiers, thresholds)
	assert.NotEqual(t, "TRADE_READY", string(tier))
	assert.NotEqual(t, "BUY", string(act))
}

func TestMap_EarlyReadyNeedsCatalyst(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 65, PassEarly: true, CatalystPresent: true}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "EARLY_READY", string(tier))
	assert.Equal(t, "EARLY_READY", string(act))
}

func TestMap_EarlyReadyRejectedWithoutCatalyst(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 65, PassEarly: true, CatalystPresent: false}
	tier, _ := Map(in, tiers, thresholds)
	assert.NotEqual(t, "EARLY_READY", string(tier))
}

func TestMap_Watchlist(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 50}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "WATCH", string(tier))
	assert.Equal(t, "WATCHLIST", string(act))
}

func TestMap_MonitorByScore(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 35}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "MONITOR", string(tier))
	assert.Equal(t, "MONITOR", string(act))
}

func TestMap_MonitorByRelVolumeAboveVWAP(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 10, RelVolume: 3.5, Price: 5, VWAP: 4}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "MONITOR", string(tier))
	assert.Equal(t, "MONITOR", string(act))
}

func TestMap_NoAction(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	in := Inputs{Composite: 5}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "NONE", string(tier))
	assert.Equal(t, "NO_ACTION", string(act))
}

func TestMap_StrongTapeGuardUpgradesToBuy(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	// Composite is below trade-ready, but a strong tape (relVol>=5, above VWAP,
	// composite >= watch.min-5) forces a BUY, subject to technical confirmation.
	in := Inputs{
		Composite: 42, RelVolume: 6, Price: 10, VWAP: 9,
		VWAPHeldOrReclaimed: true, EMA9: 10, EMA20: 9, ATRPct: 6, RSI: 65,
	}
	_, act := Map(in, tiers, thresholds)
	assert.Equal(t, "BUY", string(act))
}

func TestMap_BuyDowngradedWithoutTechnicalConfirmation(t *testing.T) {
	tiers, thresholds := defaultTiersAndThresholds()
	// Composite/VWAP/tier conditions satisfy TRADE_READY, but fewer than 2 of
	// the 4 technical confirmations hold, so BUY downgrades to WATCHLIST.
	in := Inputs{
		Composite: 80, PassTradeReady: true, Price: 5, VWAP: 4.8,
		VWAPHeldOrReclaimed: false, EMA9: 4, EMA20: 5, ATRPct: 0, RSI: 10,
	}
	tier, act := Map(in, tiers, thresholds)
	assert.Equal(t, "WATCHLIST", string(act))
	assert.Equal(t, "WATCH", string(tier))
}
