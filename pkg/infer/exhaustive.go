package infer

import (
	"context"
	"fmt"
)

// Exhaustive enumerates candidate systems in order of increasing cost, up to
// maxCost inclusive, and returns the first one that Verify accepts. The
// returned bool is false when no system of cost ≤ maxCost exists.
//
// The enumeration grows as C(cost+N²+N-1, N²+N) and is only practical for
// two or three symbols; it serves as a reference for the engines.
func Exhaustive(ctx context.Context, h Histogram, depth int, opts AssembleOptions, maxCost int) (Solution, bool, error) {
	if err := h.Validate(); err != nil {
		return Solution{}, false, err
	}
	if depth < 1 {
		return Solution{}, false, fmt.Errorf("%w: depth %d < 1", ErrConfiguration, depth)
	}
	n := h.N()
	slots := make([]int, n*n+n)
	var (
		found Solution
		steps int
	)

	// fill distributes rest over slots[i:] and reports whether a verified
	// system was found.
	var fill func(i, rest int) (bool, error)
	fill = func(i, rest int) (bool, error) {
		if i == len(slots)-1 {
			slots[i] = rest
			steps++
			if steps%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return false, err
				}
			}
			sol := unpack(n, slots)
			if opts.Bounds == HistogramBounds && !withinHistogram(h, sol) {
				return false, nil
			}
			if Verify(h, depth, sol, opts) == nil {
				found = sol
				return true, nil
			}
			return false, nil
		}
		for v := 0; v <= rest; v++ {
			slots[i] = v
			ok, err := fill(i+1, rest-v)
			if ok || err != nil {
				return ok, err
			}
		}
		slots[i] = 0
		return false, nil
	}

	for cost := 0; cost <= maxCost; cost++ {
		ok, err := fill(0, cost)
		if err != nil {
			return Solution{}, false, err
		}
		if ok {
			return found, true, nil
		}
	}
	return Solution{}, false, nil
}

// unpack reads the axiom from the first n slots and the rules, row-major,
// from the rest.
func unpack(n int, slots []int) Solution {
	sol := Solution{Axiom: append(Vector{}, slots[:n]...), Rules: NewMatrix(n)}
	for i := 0; i < n*n; i++ {
		sol.Rules[i/n][i%n] = slots[n+i]
	}
	return sol
}

func withinHistogram(h Histogram, s Solution) bool {
	for r, hr := range h {
		if s.Axiom[r] > hr {
			return false
		}
		for _, x := range s.Rules[r] {
			if x > hr {
				return false
			}
		}
	}
	return true
}
