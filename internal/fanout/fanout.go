// Package fanout runs independent tasks with a concurrency ceiling while
// keeping results in input order.
package fanout

import "github.com/sourcegraph/conc/pool"

// Map runs task over items with at most max(1, limit) goroutines in flight
// and returns results indexed like the input, regardless of completion
// order. Failure tolerance belongs inside task: return a sentinel instead
// of panicking.
func Map[T, R any](items []T, limit int, task func(T) R) []R {
	if limit < 1 {
		limit = 1
	}

	out := make([]R, len(items))
	workers := pool.New().WithMaxGoroutines(limit)
	for i := range items {
		workers.Go(func() {
			out[i] = task(items[i])
		})
	}
	workers.Wait()
	return out
}
