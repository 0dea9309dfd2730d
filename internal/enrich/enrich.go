// Package enrich implements the enrichment orchestrator (C4): fan out to
// every provider for the pre-filtered ticker set, merge per-ticker
// sub-records, fill short-interest/catalyst gaps via the estimator layer,
// and derive technicals from minute bars. Never throws — every ticker yields
// a FeatureRecord even on total provider failure (§4.4's failure policy).
package enrich

import (
	"context"
	"time"

	"github.com/sawpanic/squeezescout/internal/estimator"
	"github.com/sawpanic/squeezescout/internal/indicators"
	"github.com/sawpanic/squeezescout/internal/model"
	"github.com/sawpanic/squeezescout/internal/providers"
)

// Enrich assembles one FeatureRecord per ticker, per §4.4's six-step
// algorithm. held marks tickers present in current holdings (hard-excluded
// later by the gate engine, flagged here so that downstream stage can act on
// it without a second lookup).
func Enrich(ctx context.Context, tickers []string, held map[string]bool, suite *providers.Suite, concurrency int, budget time.Duration, asof time.Time) []*model.FeatureRecord {
	// Step 1: fan out to every provider across all tickers concurrently;
	// each provider's own internal concurrency/budget still applies.
	fundamentals := suite.Fundamentals.GetBatch(ctx, tickers, concurrency, budget)
	liquidity := suite.Liquidity.GetBatch(ctx, tickers, concurrency, budget)
	borrow := suite.Borrow.GetBatch(ctx, tickers, concurrency, budget)
	shortInterest := suite.ShortInterest.GetBatch(ctx, tickers, concurrency, budget)
	catalyst := suite.Catalyst.GetBatch(ctx, tickers, concurrency, budget)
	quotes := suite.Quote.GetBatch(ctx, tickers, concurrency, budget)
	bars := suite.Bars.GetBatch(ctx, tickers, concurrency, budget)
	dailyBars := suite.DailyBars.GetBatch(ctx, tickers, concurrency, budget)

	records := make([]*model.FeatureRecord, 0, len(tickers))
	for _, ticker := range tickers {
		rec := &model.FeatureRecord{Ticker: ticker, Held: held[ticker]}

		// Step 2: merge provider sub-records.
		mergeFundamentals(rec, fundamentals, ticker)
		mergeLiquidity(rec, liquidity, ticker)
		mergeBorrow(rec, borrow, ticker, asof)
		mergeShortInterest(rec, shortInterest, ticker, asof)
		mergeCatalyst(rec, catalyst, ticker, asof)

		quote, hasQuote := quotes[ticker]
		if hasQuote {
			rec.HaltedToday = quote.Halted
			spread := quote.SpreadPct
			rec.SpreadPctToday = &spread
		}

		barList := bars[ticker]
		prevClose := 0.0
		if len(barList) > 0 {
			prevClose = barList[0].Open
		}

		// Step 6, performed early: the price fallback chain (provider last
		// trade, then first minute bar close) must run before steps 3/4, since
		// the short-interest and catalyst estimators both consult price. No
		// previous-day close is fetched: prevClose is the first minute bar's
		// open, so the prevClose case is never reached and a ticker with no
		// quote and no minute bars has price missing.
		switch {
		case hasQuote && quote.LastTrade > 0:
			rec.Price = quote.LastTrade
		case len(barList) > 0:
			rec.Price = barList[0].Close
		case prevClose > 0:
			rec.Price = prevClose
		default:
			rec.AddMissing("price")
		}

		// Step 5, also performed early: technicals (including the 5d/30d
		// change and realized volatility derived from daily bars) must exist
		// before steps 3/4, since both the short-interest and borrow-fee
		// estimator tiers and the catalyst estimator consult them.
		adv := 0.0
		if rec.ADV30Shares != nil {
			adv = *rec.ADV30Shares
		}
		rec.Technicals = indicators.Compute(barList, prevClose, adv)
		daily := indicators.ComputeDailyStats(dailyBars[ticker])
		rec.Technicals.PriceChange5DPct = daily.Change5DPct
		rec.Technicals.PriceChange30DPct = daily.Change30DPct
		rec.Technicals.Volatility30d = daily.Volatility30d
		if len(dailyBars[ticker]) == 0 {
			rec.AddMissing("daily_bars")
		}

		// Step 3: fill missing short interest via FINRA proxy, then estimator tiers.
		fillShortInterest(rec, suite, ticker, asof)

		// Fill missing borrow fee via the §4.3 additive heuristic.
		fillBorrowFee(rec, daily.Volatility30d)

		// Step 4: fill missing catalyst via the estimator.
		if rec.Catalyst.Type == "" {
			fillCatalyst(rec, quote, asof, daily.Volatility30d)
		}

		records = append(records, rec)
	}

	return records
}

func mergeFundamentals(rec *model.FeatureRecord, m map[string]providers.Fundamentals, ticker string) {
	f, ok := m[ticker]
	if !ok {
		rec.AddMissing("float_shares")
		rec.AddMissing("market_cap")
		return
	}
	floatShares, marketCap, sharesOut := f.FloatShares, f.MarketCap, f.SharesOutstanding
	rec.FloatShares = &floatShares
	rec.MarketCap = &marketCap
	rec.SharesOutstanding = &sharesOut
}

func mergeLiquidity(rec *model.FeatureRecord, m map[string]providers.Liquidity, ticker string) {
	l, ok := m[ticker]
	if !ok {
		rec.AddMissing("avg_dollar_liquidity_30d")
		return
	}
	adv, liq := l.ADV30Shares, l.AvgDollarLiquidity30d
	rec.ADV30Shares = &adv
	rec.AvgDollarLiquidity30d = &liq
}

func mergeBorrow(rec *model.FeatureRecord, m map[string]providers.Borrow, ticker string, asof time.Time) {
	b, ok := m[ticker]
	if !ok {
		rec.AddMissing("borrow_fee_pct")
		return
	}
	fee, trend, util := b.BorrowFeePct, b.BorrowFeeTrendPP7d, b.UtilizationPct
	rec.BorrowFeePct = &fee
	rec.BorrowFeeTrendPP7d = &trend
	rec.UtilizationPct = &util
	rec.BorrowProvenance = model.ProvenanceReal
	rec.BorrowConfidence = 1.0
	rec.Freshness.BorrowFeeAgeDays = ageDays(asof, b.Asof)
}

func mergeShortInterest(rec *model.FeatureRecord, m map[string]providers.ShortInterest, ticker string, asof time.Time) {
	s, ok := m[ticker]
	if !ok {
		return // left unset; fillShortInterest takes over
	}
	shares, pct, dtc := s.ShortInterestShares, s.ShortInterestPct, s.DaysToCover
	rec.ShortInterestShares = &shares
	rec.ShortInterestPct = &pct
	rec.DaysToCover = &dtc
	rec.SIProvenance = model.ProvenanceReal
	rec.SIConfidence = 1.0
	rec.Freshness.ShortInterestAgeDays = ageDays(asof, s.Asof)
}

func mergeCatalyst(rec *model.FeatureRecord, m map[string]providers.CatalystRecord, ticker string, asof time.Time) {
	c, ok := m[ticker]
	if !ok {
		return
	}
	items := make([]model.CatalystItem, 0, len(c.Items))
	for _, it := range c.Items {
		if len(items) >= 3 {
			break
		}
		items = append(items, model.CatalystItem{Title: it.Title, Date: it.Date})
	}
	rec.Catalyst = model.Catalyst{
		Type: c.Type, VerifiedInWindow: c.VerifiedInWindow, DaysToEvent: c.DaysToEvent,
		DateValid: c.DateValid, Strength: c.Strength, Items: items,
	}
	rec.Freshness.CatalystAgeDays = ageDays(asof, c.Asof)
}

// ageDays returns how many days old providerAsof is relative to asof, or 0
// when the provider never reported an as-of time (a zero Freshness value
// reads as "unknown age", not "stale").
func ageDays(asof, providerAsof time.Time) float64 {
	if providerAsof.IsZero() {
		return 0
	}
	age := asof.Sub(providerAsof).Hours() / 24
	if age < 0 {
		return 0
	}
	return age
}

func fillShortInterest(rec *model.FeatureRecord, suite *providers.Suite, ticker string, asof time.Time) {
	if rec.SIProvenance == model.ProvenanceReal {
		return
	}

	if rec.FloatShares != nil {
		if row, ok := suite.Finra.Get(context.Background(), ticker, asof); ok {
			if est, ok := estimator.EstimateFromFinraProxy(estimator.FinraProxyInputs{
				ShortVolume: row.ShortVol, TotalVolume: row.TotalVol,
				FloatShares: *rec.FloatShares, ADV30Shares: valueOr(rec.ADV30Shares),
			}); ok {
				pct, dtc := est.ShortInterestPct, est.DaysToCover
				shares := est.ImpliedShortShares
				rec.ShortInterestPct = &pct
				rec.DaysToCover = &dtc
				rec.ShortInterestShares = &shares
				rec.SIProvenance = model.ProvenanceProxy
				rec.SIConfidence = 0.6
				return
			}
		}
	}

	est := estimator.EstimateShortInterest(estimator.ShortInterestInputs{
		DaysToCover:    rec.DaysToCover,
		FloatShares:    rec.FloatShares,
		BorrowFeePct:   rec.BorrowFeePct,
		UtilizationPct: rec.UtilizationPct,
		RelVolume:      relVolPtr(rec),
		Volatility30d:  volatilityPtr(rec),
		Price:          rec.Price,
	})
	pct := est.Pct
	rec.ShortInterestPct = &pct
	rec.SIProvenance = model.ProvenanceEstimate
	rec.SIConfidence = est.Confidence
	rec.AddMissing("short_interest_pct_direct")

	// The tier ladder above never has a direct days-to-cover reading (tiers
	// reachable here all precede or substitute for one); derive it from the
	// just-estimated percentage so the squeeze scorer's DTC sub-score and the
	// soft-score DTC bonus aren't starved for every non-provider ticker.
	if rec.DaysToCover == nil && rec.FloatShares != nil {
		shortShares := pct / 100 * *rec.FloatShares
		dtc := estimator.EstimateDaysToCover(shortShares, valueOr(rec.ADV30Shares), *rec.FloatShares)
		rec.DaysToCover = &dtc
	}
}

// fillBorrowFee runs the §4.3 additive borrow-fee heuristic whenever the
// borrow provider left BorrowFeePct unset.
func fillBorrowFee(rec *model.FeatureRecord, volatility30d float64) {
	if rec.BorrowProvenance == model.ProvenanceReal {
		return
	}

	turnover := 0.0
	if rec.FloatShares != nil && *rec.FloatShares > 0 {
		turnover = valueOr(rec.ADV30Shares) / *rec.FloatShares
	}

	fee := estimator.EstimateBorrowFee(estimator.BorrowFeeInputs{
		Volatility30d: volatility30d,
		FloatShares:   valueOr(rec.FloatShares),
		Return30dPct:  rec.Technicals.PriceChange30DPct,
		TurnoverRatio: turnover,
		Price:         rec.Price,
	})
	rec.BorrowFeePct = &fee
	rec.BorrowProvenance = model.ProvenanceEstimate
	rec.BorrowConfidence = 0.4
	rec.AddMissing("borrow_fee_pct_direct")
}

func fillCatalyst(rec *model.FeatureRecord, quote providers.Quote, asof time.Time, volatility30d float64) {
	rec.Catalyst = estimator.EstimateCatalyst(estimator.CatalystInputs{
		RelVolume:     rec.Technicals.RelVolume,
		Change1DPct:   quote.DayChangePct,
		Change5DPct:   rec.Technicals.PriceChange5DPct,
		Change30DPct:  rec.Technicals.PriceChange30DPct,
		RSI:           rec.Technicals.RSI,
		Volatility30d: volatility30d,
		Asof:          asof,
	})
	rec.AddMissing("catalyst_provider")
}

func relVolPtr(rec *model.FeatureRecord) *float64 {
	if rec.Technicals.RelVolume == 0 {
		return nil
	}
	v := rec.Technicals.RelVolume
	return &v
}

func volatilityPtr(rec *model.FeatureRecord) *float64 {
	if rec.Technicals.Volatility30d == 0 {
		return nil
	}
	v := rec.Technicals.Volatility30d
	return &v
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
