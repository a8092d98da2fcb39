package infer

import (
	"context"
	"fmt"
	"time"
)

// Sweep solves h at every depth in [from, to] in turn, each with its own
// timeout, and stops at the first depth whose status is OptimalFound. It
// returns the results of every attempted depth in order. Depths are never
// solved concurrently.
func (s *Solver) Sweep(ctx context.Context, h Histogram, from, to int, timeout time.Duration) ([]Result, error) {
	if from < 1 || to < from {
		return nil, fmt.Errorf("%w: depth range [%d, %d]", ErrConfiguration, from, to)
	}
	results := make([]Result, 0, to-from+1)
	for depth := from; depth <= to; depth++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.Solve(ctx, h, depth, timeout)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Status == OptimalFound {
			break
		}
	}
	return results, nil
}
