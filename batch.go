package transmission

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchCall is a single call within a batch passed to CallBatch().
type BatchCall struct {
	Method    string
	Arguments Arguments
}

// CallBatch invokes several RPC methods concurrently.
//
// At most limit calls are in flight at once. If limit is zero or negative
// there is no limit.
//
// The results are returned in the same order as calls. If any call fails the
// remaining calls are canceled via the context, and the first error is
// returned.
func CallBatch(
	ctx context.Context,
	c Caller,
	calls []BatchCall,
	limit int,
) ([]Result, error) {
	results := make([]Result, len(calls))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, call := range calls {
		i, call := i, call // capture loop variables

		g.Go(func() error {
			res, err := c.Call(ctx, call.Method, call.Arguments)
			if err != nil {
				return err
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
