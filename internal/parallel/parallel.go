// Package parallel splits index ranges across a bounded set of workers.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a configured worker count; n <= 0 means one per CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// For executes fn over [0, n) in contiguous chunks. Ranges shorter than
// minChunk run on the calling goroutine. The first error cancels the
// remaining chunks and is returned.
func For(ctx context.Context, n, minChunk, workers int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		return fn(0, n)
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(s, e)
		})
	}
	return g.Wait()
}
