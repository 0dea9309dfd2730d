package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/squeezescout/internal/net/fanout"
)

var errAbsent = errors.New("absent")

// runFanout adapts the (value, ok) Get signature to the fanout harness's
// (value, error) task signature, then drops the bool back out.
func runFanout[T any](ctx context.Context, tickers []string, concurrency int, budget time.Duration, get func(ctx context.Context, ticker string) (T, bool)) map[string]T {
	tasks := make([]fanout.Task[string, T], 0, len(tickers))
	for _, t := range tickers {
		tasks = append(tasks, fanout.Task[string, T]{
			Key: t,
			Fn: func(ctx context.Context, ticker string) (T, error) {
				v, ok := get(ctx, ticker)
				if !ok {
					var zero T
					return zero, errAbsent
				}
				return v, nil
			},
		})
	}
	return fanout.Run(ctx, tasks, concurrency, budget)
}
