package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/squeezescout/internal/cache"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/model"
	"github.com/sawpanic/squeezescout/internal/net/circuit"
	"github.com/sawpanic/squeezescout/internal/net/ratelimit"
	"github.com/sawpanic/squeezescout/internal/providers"
)

// fixture backs every vendor endpoint the enrichment orchestrator fans out
// to; tests populate per-ticker rows and leave the rest absent (404).
type fixture struct {
	fundamentals map[string]map[string]interface{}
	liquidity    map[string]map[string]interface{}
	borrow       map[string]map[string]interface{}
	shortInt     map[string]map[string]interface{}
	catalyst     map[string]map[string]interface{}
	quote        map[string]map[string]interface{}
	bars         map[string][]map[string]interface{}
	dailyBars    map[string][]map[string]interface{}
	finraByDate  map[string][]map[string]interface{}
}

func newFixture() *fixture {
	return &fixture{
		fundamentals: map[string]map[string]interface{}{},
		liquidity:    map[string]map[string]interface{}{},
		borrow:       map[string]map[string]interface{}{},
		shortInt:     map[string]map[string]interface{}{},
		catalyst:     map[string]map[string]interface{}{},
		quote:        map[string]map[string]interface{}{},
		bars:         map[string][]map[string]interface{}{},
		dailyBars:    map[string][]map[string]interface{}{},
		finraByDate:  map[string][]map[string]interface{}{},
	}
}

func (f *fixture) handler() http.Handler {
	mux := http.NewServeMux()
	respond := func(w http.ResponseWriter, v interface{}, ok bool) {
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/fundamentals", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.fundamentals[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/liquidity", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.liquidity[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/borrow", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.borrow[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/short-interest", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.shortInt[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/catalysts", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.catalyst[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		v, ok := f.quote[r.URL.Query().Get("symbol")]
		respond(w, v, ok)
	})
	mux.HandleFunc("/bars", func(w http.ResponseWriter, r *http.Request) {
		// The minute-bars and daily-bars ports share this endpoint, telling
		// rows apart by the resolution query param the way the real vendor
		// wire shape does.
		symbol := r.URL.Query().Get("symbol")
		table := f.bars
		if r.URL.Query().Get("resolution") == "1Day" {
			table = f.dailyBars
		}
		rows, ok := table[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		respond(w, map[string]interface{}{"bars": rows}, true)
	})
	mux.HandleFunc("/daily", func(w http.ResponseWriter, r *http.Request) {
		rows, ok := f.finraByDate[r.URL.Query().Get("date")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		respond(w, map[string]interface{}{"rows": rows}, true)
	})
	return mux
}

// buildSuite wires a real providers.Suite against an in-process test server,
// so the test exercises the actual cache/rate-limit/circuit/retry stack
// rather than a hand-rolled double.
func buildSuite(t *testing.T, f *fixture) *providers.Suite {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg := config.DefaultProvidersConfig()
	for name, p := range cfg.Providers {
		p.BaseURL = srv.URL
		cfg.Providers[name] = p
	}

	registry := cache.NewRegistry(t.TempDir(), true)
	limiter := ratelimit.NewManager()
	breaker := circuit.NewManager()

	suite, err := providers.NewSuite(cfg, registry, limiter, breaker)
	require.NoError(t, err)
	return suite
}

func TestEnrich_PriceFallbackAppliesBeforeShortInterestEstimator(t *testing.T) {
	// Regression test: the short-interest price-tier default must see the
	// ticker's resolved price (here, from the quote), not the zero value
	// from before the price fallback chain ran.
	f := newFixture()
	f.fundamentals["BAZ"] = map[string]interface{}{"float_shares": 40_000_000.0, "market_cap": 200_000_000.0, "shares_outstanding": 40_000_000.0}
	f.quote["BAZ"] = map[string]interface{}{"last_trade": 40.0, "bid": 39.9, "ask": 40.1, "day_volume": 1_000_000.0, "day_change_pct": 1.0}

	suite := buildSuite(t, f)
	records := Enrich(context.Background(), []string{"BAZ"}, nil, suite, 4, 10*time.Second, time.Now())
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 40.0, rec.Price)
	require.NotNil(t, rec.ShortInterestPct)
	// Price 40 falls in the "<50" price tier (15%, confidence 0.15), not the
	// "<10" tier (25%) that a price-still-zero bug would have produced.
	assert.InDelta(t, 15, *rec.ShortInterestPct, 0.01)
	assert.Equal(t, model.ProvenanceEstimate, rec.SIProvenance)
}

func TestEnrich_DirectProviderShortInterestIsReal(t *testing.T) {
	f := newFixture()
	f.shortInt["AAA"] = map[string]interface{}{"short_interest_shares": 1_000_000.0, "short_interest_pct": 12.5, "days_to_cover": 2.0}
	f.quote["AAA"] = map[string]interface{}{"last_trade": 20.0}

	suite := buildSuite(t, f)
	records := Enrich(context.Background(), []string{"AAA"}, nil, suite, 4, 10*time.Second, time.Now())
	require.Len(t, records, 1)

	rec := records[0]
	require.NotNil(t, rec.ShortInterestPct)
	assert.InDelta(t, 12.5, *rec.ShortInterestPct, 0.001)
	assert.Equal(t, model.ProvenanceReal, rec.SIProvenance)
}

func TestEnrich_FinraProxyUsedWhenDirectMissing(t *testing.T) {
	asof := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	priorDay := asof.AddDate(0, 0, -1).Format("2006-01-02")

	f := newFixture()
	f.fundamentals["QUX"] = map[string]interface{}{"float_shares": 100_000_000.0}
	f.liquidity["QUX"] = map[string]interface{}{"adv_30_shares": 2_000_000.0}
	f.quote["QUX"] = map[string]interface{}{"last_trade": 15.0}
	f.finraByDate[priorDay] = []map[string]interface{}{
		{"ticker": "QUX", "short_volume": 30_000_000.0, "total_volume": 80_000_000.0},
	}

	suite := buildSuite(t, f)
	records := Enrich(context.Background(), []string{"QUX"}, nil, suite, 4, 10*time.Second, asof)
	require.Len(t, records, 1)

	rec := records[0]
	require.NotNil(t, rec.ShortInterestPct)
	assert.InDelta(t, 37.50, *rec.ShortInterestPct, 0.01)
	require.NotNil(t, rec.DaysToCover)
	assert.InDelta(t, 18.75, *rec.DaysToCover, 0.01)
	assert.Equal(t, model.ProvenanceProxy, rec.SIProvenance)
}

func TestEnrich_CatalystEstimatorFillsGapFromTechnicals(t *testing.T) {
	asof := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	f := newFixture()
	f.quote["BAZ"] = map[string]interface{}{"last_trade": 8.0, "day_change_pct": 1.0}
	f.liquidity["BAZ"] = map[string]interface{}{"adv_30_shares": 500_000.0}
	bars := make([]map[string]interface{}, 0, 5)
	base := asof.Add(-4 * time.Minute)
	for i := 0; i < 5; i++ {
		bars = append(bars, map[string]interface{}{
			"t": base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			"o": 8.0, "h": 8.1, "l": 7.9, "c": 8.0, "v": 400_000.0,
		})
	}
	f.bars["BAZ"] = bars

	suite := buildSuite(t, f)
	records := Enrich(context.Background(), []string{"BAZ"}, nil, suite, 4, 10*time.Second, asof)
	require.Len(t, records, 1)

	rec := records[0]
	assert.NotEmpty(t, rec.Catalyst.Type)
	assert.Contains(t, rec.MissingFields, "catalyst_provider")
}

func TestEnrich_DailyBarsDriveReversalSetupCatalyst(t *testing.T) {
	// June 1 sits >30 days from every quarterly earnings anchor, so nothing
	// here can be mistaken for an earnings_approach candidate.
	asof := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	f := newFixture()
	f.quote["REV"] = map[string]interface{}{"last_trade": 80.0, "day_change_pct": 6.0}

	closes := []float64{100, 99, 98, 97, 96, 95, 92, 88, 84, 80}
	dailyRows := make([]map[string]interface{}, 0, len(closes))
	base := asof.AddDate(0, 0, -len(closes))
	for i, c := range closes {
		dailyRows = append(dailyRows, map[string]interface{}{
			"t": base.AddDate(0, 0, i).Format(time.RFC3339),
			"o": c, "h": c + 1, "l": c - 1, "c": c, "v": 100_000.0,
		})
	}
	f.dailyBars["REV"] = dailyRows

	suite := buildSuite(t, f)
	records := Enrich(context.Background(), []string{"REV"}, nil, suite, 4, 10*time.Second, asof)
	require.Len(t, records, 1)

	rec := records[0]
	assert.InDelta(t, -16.67, rec.Technicals.PriceChange5DPct, 0.01)
	assert.Equal(t, "reversal_setup", rec.Catalyst.Type)
}

func TestEnrich_HeldTickerIsFlagged(t *testing.T) {
	f := newFixture()
	f.quote["HELD"] = map[string]interface{}{"last_trade": 10.0}
	suite := buildSuite(t, f)

	records := Enrich(context.Background(), []string{"HELD"}, map[string]bool{"HELD": true}, suite, 4, 10*time.Second, time.Now())
	require.Len(t, records, 1)
	assert.True(t, records[0].Held)
}

func TestEnrich_MissingEverythingStillYieldsRecord(t *testing.T) {
	f := newFixture()
	suite := buildSuite(t, f)

	records := Enrich(context.Background(), []string{"GHOST"}, nil, suite, 4, 10*time.Second, time.Time{})
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "GHOST", rec.Ticker)
	assert.Equal(t, 0.0, rec.Price)
	assert.Contains(t, rec.MissingFields, "price")
}
