// Package fanout implements the bounded-concurrency scheduler used to fetch
// one provider kind across many tickers (C2). Workers share a per-host
// semaphore and the whole batch carries a wall-clock budget and a
// cancellation signal; tasks not yet started when the budget or
// cancellation fires are skipped, and tasks in flight see the cancelled context.
package fanout

import (
	"context"
	"sync"
	"time"
)

// Task is one unit of fan-out work: fetch something for key.
type Task[K comparable, V any] struct {
	Key K
	Fn  func(ctx context.Context, key K) (V, error)
}

// Run executes tasks with at most concurrency in flight simultaneously,
// respecting ctx cancellation and budget. Tasks not started when the budget
// elapses are skipped; tasks already running receive the expired context and
// Run waits for them to return. A skipped task or one that returns an error
// leaves its key out of the result map — the caller must treat a missing
// key as "absent" per §4.1's null contract.
func Run[K comparable, V any](ctx context.Context, tasks []Task[K, V], concurrency int, budget time.Duration) map[K]V {
	if concurrency <= 0 {
		concurrency = 1
	}

	budgetCtx := ctx
	var cancel context.CancelFunc
	if budget > 0 {
		budgetCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	results := make(map[K]V, len(tasks))
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, t := range tasks {
		t := t
		select {
		case <-budgetCtx.Done():
			// Budget already exhausted before this task even started;
			// leave it out of results (treated as absent downstream).
			continue
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-budgetCtx.Done():
				return
			default:
			}

			v, err := t.Fn(budgetCtx, t.Key)
			if err != nil {
				return
			}

			mu.Lock()
			results[t.Key] = v
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}
