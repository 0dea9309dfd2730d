package providers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sawpanic/squeezescout/internal/cache"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/net/circuit"
	"github.com/sawpanic/squeezescout/internal/net/ratelimit"
)

// Suite bundles every data-kind port named in §4.1, wired against one shared
// cache registry, rate-limit manager, and circuit-breaker manager. One Suite
// is constructed per engine process and reused across runs.
type Suite struct {
	Fundamentals  *Port[Fundamentals]
	Liquidity     *Port[Liquidity]
	Borrow        *Port[Borrow]
	ShortInterest *Port[ShortInterest]
	Catalyst      *Port[CatalystRecord]
	Quote         *Port[Quote]
	Bars          *Port[[]Bar]
	DailyBars     *Port[[]Bar]
	Finra         *FinraTape
}

// wireResponse shapes are intentionally loose (vendor JSON contracts are not
// standardized across short-interest/borrow-fee data vendors); each fetcher
// maps its own wire shape onto the typed record the rest of the pipeline uses.
type fundamentalsWire struct {
	FloatShares       float64   `json:"float_shares"`
	MarketCap         float64   `json:"market_cap"`
	SharesOutstanding float64   `json:"shares_outstanding"`
	Asof              time.Time `json:"asof"`
}

type liquidityWire struct {
	AvgDollarLiquidity30d float64   `json:"avg_dollar_liquidity_30d"`
	ADV30Shares           float64   `json:"adv_30_shares"`
	Asof                  time.Time `json:"asof"`
}

type borrowWire struct {
	BorrowFeePct       float64   `json:"borrow_fee_pct"`
	BorrowFeeTrendPP7d float64   `json:"borrow_fee_trend_pp_7d"`
	UtilizationPct     float64   `json:"utilization_pct"`
	Asof               time.Time `json:"asof"`
}

type shortInterestWire struct {
	ShortInterestShares float64   `json:"short_interest_shares"`
	ShortInterestPct    float64   `json:"short_interest_pct"`
	DaysToCover         float64   `json:"days_to_cover"`
	Asof                time.Time `json:"asof"`
}

type catalystWire struct {
	Type             string    `json:"type"`
	VerifiedInWindow bool      `json:"verified_in_window"`
	DateValid        bool      `json:"date_valid"`
	DaysToEvent      float64   `json:"days_to_event"`
	Strength         float64   `json:"strength"`
	Asof             time.Time `json:"asof"`
	Items            []struct {
		Title string    `json:"title"`
		Date  time.Time `json:"date"`
	} `json:"items"`
}

type quoteWire struct {
	LastTrade    float64   `json:"last_trade"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	DayVolume    float64   `json:"day_volume"`
	DayChangePct float64   `json:"day_change_pct"`
	Halted       bool      `json:"halted"`
	Timestamp    time.Time `json:"timestamp"`
}

type barsWire struct {
	Bars []struct {
		Timestamp time.Time `json:"t"`
		Open      float64   `json:"o"`
		High      float64   `json:"h"`
		Low       float64   `json:"l"`
		Close     float64   `json:"c"`
		Volume    float64   `json:"v"`
	} `json:"bars"`
}

// hasCredsFromEnv returns a credential-check closure reading a named env var.
func hasCredsFromEnv(envVar string) func() bool {
	return func() bool { return os.Getenv(envVar) != "" }
}

// NewSuite wires every provider port against cfg/registry/limiter/breaker.
// Credential env vars follow the VENDOR_<NAME>_API_KEY convention; a provider
// with an empty requirement (quote/bars public tape) always reports creds ok.
func NewSuite(cfg config.ProvidersConfig, registry *cache.Registry, limiter *ratelimit.Manager, breaker *circuit.Manager) (*Suite, error) {
	ua := cfg.Global.UserAgent

	s := &Suite{}

	s.Fundamentals = NewPort[Fundamentals]("fundamentals", cfg.Providers["fundamentals"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (Fundamentals, error) {
			var w fundamentalsWire
			if err := getJSON(ctx, ua, cfg.Providers["fundamentals"].BaseURL, "/fundamentals", url.Values{"symbol": {ticker}}, &w); err != nil {
				return Fundamentals{}, err
			}
			return Fundamentals{FloatShares: w.FloatShares, MarketCap: w.MarketCap, SharesOutstanding: w.SharesOutstanding, Asof: w.Asof}, nil
		}, hasCredsFromEnv("VENDOR_FUNDAMENTALS_API_KEY"))

	s.Liquidity = NewPort[Liquidity]("liquidity", cfg.Providers["liquidity"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (Liquidity, error) {
			var w liquidityWire
			if err := getJSON(ctx, ua, cfg.Providers["liquidity"].BaseURL, "/liquidity", url.Values{"symbol": {ticker}}, &w); err != nil {
				return Liquidity{}, err
			}
			return Liquidity{AvgDollarLiquidity30d: w.AvgDollarLiquidity30d, ADV30Shares: w.ADV30Shares, Asof: w.Asof}, nil
		}, hasCredsFromEnv("VENDOR_LIQUIDITY_API_KEY"))

	s.Borrow = NewPort[Borrow]("borrow", cfg.Providers["borrow"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (Borrow, error) {
			var w borrowWire
			if err := getJSON(ctx, ua, cfg.Providers["borrow"].BaseURL, "/borrow", url.Values{"symbol": {ticker}}, &w); err != nil {
				return Borrow{}, err
			}
			return Borrow{BorrowFeePct: w.BorrowFeePct, BorrowFeeTrendPP7d: w.BorrowFeeTrendPP7d, UtilizationPct: w.UtilizationPct, Asof: w.Asof}, nil
		}, hasCredsFromEnv("VENDOR_BORROW_API_KEY"))

	s.ShortInterest = NewPort[ShortInterest]("shortinterest", cfg.Providers["shortinterest"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (ShortInterest, error) {
			var w shortInterestWire
			if err := getJSON(ctx, ua, cfg.Providers["shortinterest"].BaseURL, "/short-interest", url.Values{"symbol": {ticker}}, &w); err != nil {
				return ShortInterest{}, err
			}
			return ShortInterest{ShortInterestShares: w.ShortInterestShares, ShortInterestPct: w.ShortInterestPct, DaysToCover: w.DaysToCover, Asof: w.Asof}, nil
		}, hasCredsFromEnv("VENDOR_SHORTINTEREST_API_KEY"))

	s.Catalyst = NewPort[CatalystRecord]("catalyst", cfg.Providers["catalyst"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (CatalystRecord, error) {
			var w catalystWire
			if err := getJSON(ctx, ua, cfg.Providers["catalyst"].BaseURL, "/catalysts", url.Values{"symbol": {ticker}}, &w); err != nil {
				return CatalystRecord{}, err
			}
			items := make([]CatalystItem, 0, len(w.Items))
			for _, it := range w.Items {
				items = append(items, CatalystItem{Title: it.Title, Date: it.Date})
			}
			return CatalystRecord{
				Type: w.Type, VerifiedInWindow: w.VerifiedInWindow, DateValid: w.DateValid,
				DaysToEvent: w.DaysToEvent, Strength: w.Strength, Items: items, Asof: w.Asof,
			}, nil
		}, hasCredsFromEnv("VENDOR_CATALYST_API_KEY"))

	s.Quote = NewPort[Quote]("quote", cfg.Providers["quote"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) (Quote, error) {
			var w quoteWire
			if err := getJSON(ctx, ua, cfg.Providers["quote"].BaseURL, "/quote", url.Values{"symbol": {ticker}}, &w); err != nil {
				return Quote{}, err
			}
			spread := 0.0
			if w.Bid > 0 && w.Ask > 0 {
				spread = (w.Ask - w.Bid) / w.Ask * 100
			}
			return Quote{
				LastTrade: w.LastTrade, Bid: w.Bid, Ask: w.Ask, DayVolume: w.DayVolume,
				DayChangePct: w.DayChangePct, SpreadPct: spread, Halted: w.Halted, Timestamp: w.Timestamp,
			}, nil
		}, nil)

	s.Bars = NewPort[[]Bar]("bars", cfg.Providers["bars"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) ([]Bar, error) {
			var w barsWire
			q := url.Values{"symbol": {ticker}, "resolution": {"1Min"}, "lookback_days": {"5"}}
			if err := getJSON(ctx, ua, cfg.Providers["bars"].BaseURL, "/bars", q, &w); err != nil {
				return nil, err
			}
			bars := make([]Bar, 0, len(w.Bars))
			for _, b := range w.Bars {
				bars = append(bars, Bar{Timestamp: b.Timestamp, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
			}
			return bars, nil
		}, nil)

	s.DailyBars = NewPort[[]Bar]("dailybars", cfg.Providers["dailybars"], registry, limiter, breaker,
		func(ctx context.Context, ticker string) ([]Bar, error) {
			var w barsWire
			q := url.Values{"symbol": {ticker}, "resolution": {"1Day"}, "lookback_days": {"35"}}
			if err := getJSON(ctx, ua, cfg.Providers["dailybars"].BaseURL, "/bars", q, &w); err != nil {
				return nil, err
			}
			bars := make([]Bar, 0, len(w.Bars))
			for _, b := range w.Bars {
				bars = append(bars, Bar{Timestamp: b.Timestamp, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
			}
			return bars, nil
		}, nil)

	s.Finra = newFinraTape(cfg.Providers["finra"], registry, limiter, breaker, ua)

	for _, v := range []interface{ Validate() error }{s.Fundamentals, s.Liquidity, s.Borrow, s.ShortInterest, s.Catalyst} {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("provider validation: %w", err)
		}
	}

	return s, nil
}
