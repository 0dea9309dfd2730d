package providers

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/squeezescout/internal/cache"
	"github.com/sawpanic/squeezescout/internal/config"
	"github.com/sawpanic/squeezescout/internal/net/circuit"
	"github.com/sawpanic/squeezescout/internal/net/ratelimit"
)

// FinraTape serves the daily FINRA short-volume file, stepping back up to
// five trading days when the most recent file isn't published yet (FINRA
// typically lags by one to two trading days, and holidays/outages can widen
// that further; five days of stepback covers the longest ordinary gap). Each
// day's parsed file is cached in full under its own date key so a stepback
// hit is reused by every symbol lookup in the run.
type FinraTape struct {
	cfg     config.ProviderConfig
	store   *cache.Store
	limiter *ratelimit.Manager
	breaker *circuit.Manager
	ua      string
}

const finraMaxStepbackDays = 5

func newFinraTape(cfg config.ProviderConfig, registry *cache.Registry, limiter *ratelimit.Manager, breaker *circuit.Manager, ua string) *FinraTape {
	store := registry.Store("finra", cfg.CacheTTL())
	limiter.AddProvider("finra", cfg.RPS, cfg.Burst)
	breaker.AddProvider("finra", circuit.Config{
		MaxHalfOpenRequests: 1,
		ResetInterval:       60 * time.Second,
		OpenTimeout:         time.Duration(cfg.Circuit.TimeoutMS) * time.Millisecond,
		ConsecutiveFailures: uint32(cfg.Circuit.FailureThreshold),
		ErrorRatePct:        cfg.Circuit.ErrorRatePct,
	})
	return &FinraTape{cfg: cfg, store: store, limiter: limiter, breaker: breaker, ua: ua}
}

// Get returns ticker's most recently published short-volume row, stepping
// back day by day (skipping weekends) until a file is found or the stepback
// budget is exhausted, in which case it reports absent.
func (f *FinraTape) Get(ctx context.Context, ticker string, asOf time.Time) (*FinraDailyRow, bool) {
	day := asOf
	for i := 0; i < finraMaxStepbackDays; i++ {
		day = prevWeekday(day)
		rows, ok := f.dayFile(ctx, day)
		if !ok {
			continue
		}
		for _, r := range rows {
			if r.Ticker == ticker {
				return &r, true
			}
		}
		// File was published for this day but ticker had no short-sale
		// activity recorded; that's a legitimate zero, not "absent".
		return &FinraDailyRow{Ticker: ticker, TradeDate: day}, true
	}
	return nil, false
}

func prevWeekday(d time.Time) time.Time {
	d = d.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func (f *FinraTape) dayFile(ctx context.Context, day time.Time) ([]FinraDailyRow, bool) {
	key := day.Format("2006-01-02")
	raw, err := f.store.GetOrLoad(ctx, key, func(ctx context.Context) (interface{}, error) {
		if err := f.limiter.Wait(ctx, "finra", f.cfg.Host); err != nil {
			return nil, err
		}

		var result []FinraDailyRow
		backoff := ratelimit.BackoffConfig{
			Base:   time.Duration(f.cfg.Backoff.BaseMS) * time.Millisecond,
			Max:    time.Duration(f.cfg.Backoff.MaxMS) * time.Millisecond,
			Jitter: f.cfg.Backoff.Jitter,
		}
		retryErr := ratelimit.Retry(ctx, backoff, 3, func(ctx context.Context) error {
			v, err := f.breaker.Call(ctx, func(ctx context.Context) (interface{}, error) {
				reqCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout())
				defer cancel()
				var wire struct {
					Rows []struct {
						Ticker   string  `json:"ticker"`
						ShortVol float64 `json:"short_volume"`
						TotalVol float64 `json:"total_volume"`
					} `json:"rows"`
				}
				q := url.Values{"date": {key}}
				if err := getJSON(reqCtx, f.ua, f.cfg.BaseURL, "/daily", q, &wire); err != nil {
					return nil, err
				}
				// Sum by ticker: a symbol reported on more than one tape for
				// the same trade date (e.g. dual CNMS/NYSE rows) is merged into a
				// single row whose short and total volumes are the sums of its rows.
				byTicker := make(map[string]FinraDailyRow, len(wire.Rows))
				for _, r := range wire.Rows {
					agg := byTicker[r.Ticker]
					agg.Ticker, agg.TradeDate = r.Ticker, day
					agg.ShortVol += r.ShortVol
					agg.TotalVol += r.TotalVol
					byTicker[r.Ticker] = agg
				}
				rows := make([]FinraDailyRow, 0, len(byTicker))
				for _, r := range byTicker {
					rows = append(rows, r)
				}
				return rows, nil
			})
			if err != nil {
				return err
			}
			result = v.([]FinraDailyRow)
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return result, nil
	})

	if err != nil {
		log.Debug().Str("provider", "finra").Str("date", key).Err(err).Msg("finra daily file absent, stepping back")
		return nil, false
	}
	rows, ok := raw.([]FinraDailyRow)
	if msg, isRaw := raw.(json.RawMessage); !ok && isRaw {
		ok = json.Unmarshal(msg, &rows) == nil
	}
	return rows, ok
}
