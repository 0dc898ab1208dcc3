// Package workerpool implements the bounded-concurrency fan-out used by the
// Metadata Sync, Watchlist Engine, and Collection Builder task bodies (spec
// §5 "Scheduling model" names explicit pool widths: metadata fetch 5,
// watchlist refresh 5, per-user visibility 10). Grounded on
// darthnorse-streammon's internal/server/api_stats.go use of
// errgroup.WithContext for bounded concurrent fan-out with shared
// cancellation on first error.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run applies fn to every item in items, running at most width goroutines
// concurrently. It returns the first error encountered; all other
// in-flight work is cancelled via ctx per errgroup's usual behavior. A
// width <= 0 is treated as 1.
func Run[T any](ctx context.Context, width int, items []T, fn func(context.Context, T) error) error {
	if width <= 0 {
		width = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}

// RunCollecting behaves like Run but never aborts the batch on a single
// item's error; instead it invokes onErr for each failing item and still
// processes every item, matching the "skip and continue the batch"
// propagation policy for transient-remote errors (spec §7). It returns the
// number of items that failed.
func RunCollecting[T any](ctx context.Context, width int, items []T, fn func(context.Context, T) error, onErr func(T, error)) int {
	if width <= 0 {
		width = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	failed := make(chan struct{}, len(items))

	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := fn(gctx, item); err != nil {
				if onErr != nil {
					onErr(item, err)
				}
				failed <- struct{}{}
			}
			return nil
		})
	}

	_ = g.Wait()
	close(failed)

	count := 0
	for range failed {
		count++
	}
	return count
}
