package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type BatchOptions struct {
	// Concurrent is the group size; requests in a group run together and
	// the next group starts when the whole group has settled.
	Concurrent int
	// FailFast stops the batch at the end of the first group that failed.
	FailFast bool
}

type BatchRequest[T any] func(context.Context) (T, error)

type BatchResult[T any] struct {
	Index   int
	Value   T
	Err     error
	Success bool
}

type BatchResults[T any] []BatchResult[T]

func (r BatchResults[T]) HasErrors() bool {
	for _, res := range r {
		if !res.Success {
			return true
		}
	}
	return false
}

func (r BatchResults[T]) Values() []T {
	out := make([]T, 0, len(r))
	for _, res := range r {
		if res.Success {
			out = append(out, res.Value)
		}
	}
	return out
}

// Batch runs requests in fixed-size groups. Results keep the index order
// of requests regardless of completion order. With FailFast the first
// error is returned and requests that never ran carry ErrBatchAborted.
func Batch[T any](ctx context.Context, requests []BatchRequest[T], opts BatchOptions) (BatchResults[T], error) {
	size := opts.Concurrent
	if size <= 0 {
		size = len(requests)
	}

	results := make(BatchResults[T], len(requests))
	for i := range results {
		results[i] = BatchResult[T]{Index: i, Err: ErrBatchAborted}
	}

	for start := 0; start < len(requests); start += size {
		end := min(start+size, len(requests))

		var g *errgroup.Group
		gctx := ctx
		if opts.FailFast {
			g, gctx = errgroup.WithContext(ctx)
		} else {
			g = &errgroup.Group{}
		}

		for i := start; i < end; i++ {
			req := requests[i]
			g.Go(func() error {
				v, err := req(gctx)
				results[i] = BatchResult[T]{Index: i, Value: v, Err: err, Success: err == nil}
				if opts.FailFast {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return results, err
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
	}
	return results, nil
}
