package fd

import (
	"context"
	"errors"
	"time"
)

// OptimizeOption configures SolveOptimalWithOptions.
type OptimizeOption func(*optConfig)

type optConfig struct {
	timeLimit       time.Duration
	nodeLimit       int
	targetObjective *int
	onIncumbent     func(sol []int, objective int)
}

// WithTimeLimit sets a hard time limit for the optimisation. When reached,
// the best incumbent is returned together with context.DeadlineExceeded.
func WithTimeLimit(d time.Duration) OptimizeOption {
	return func(c *optConfig) { c.timeLimit = d }
}

// WithNodeLimit limits the number of search node expansions. When reached,
// the best incumbent is returned together with ErrSearchLimitReached.
func WithNodeLimit(n int) OptimizeOption {
	return func(c *optConfig) { c.nodeLimit = n }
}

// WithTargetObjective stops the search as soon as an incumbent reaches
// target.
func WithTargetObjective(target int) OptimizeOption {
	return func(c *optConfig) { c.targetObjective = &target }
}

// WithIncumbentCallback registers fn to be called for every improving
// solution. fn runs on the search goroutine.
func WithIncumbentCallback(fn func(sol []int, objective int)) OptimizeOption {
	return func(c *optConfig) { c.onIncumbent = fn }
}

// ErrSearchLimitReached indicates that an optimisation stopped at its node
// limit. The returned incumbent is valid but may not be optimal.
var ErrSearchLimitReached = errors.New("search limit reached")

// SolveOptimal finds a solution that optimises obj.
//
// Contract:
//   - obj is a variable of the model whose domain encodes the objective.
//   - minimize selects the direction.
//   - On success it returns the best solution (values for all model
//     variables in model order) and its objective. An infeasible model
//     yields (nil, 0, nil). When ctx ends or a limit is reached, the best
//     incumbent (possibly nil) is returned together with the reason.
//
// The search is depth-first branch-and-bound: every improving solution
// tightens the objective domain of subsequent nodes to strictly better
// values (obj ≤ best-1 when minimising), so propagation prunes any subtree
// that cannot improve on the incumbent.
func (s *Solver) SolveOptimal(ctx context.Context, obj *Variable, minimize bool) ([]int, int, error) {
	return s.SolveOptimalWithOptions(ctx, obj, minimize)
}

// SolveOptimalWithOptions is SolveOptimal with time, node, and target
// limits.
func (s *Solver) SolveOptimalWithOptions(ctx context.Context, obj *Variable, minimize bool, opts ...OptimizeOption) ([]int, int, error) {
	cfg := &optConfig{}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	if cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeLimit)
		defer cancel()
	}

	s.monitor.StartSearch()
	defer s.monitor.FinishSearch()

	state, err := s.root()
	if err != nil || state == nil {
		return nil, 0, err
	}

	var bestSol []int
	bestVal := 0
	haveIncumbent := false
	nodes := 0

	// accept records st as the new incumbent and reports whether the
	// target objective has been reached.
	accept := func(st *State) bool {
		if !s.check(st) {
			return false
		}
		val := st.Domain(obj.id).SingletonValue()
		if haveIncumbent && ((minimize && val >= bestVal) || (!minimize && val <= bestVal)) {
			return false
		}
		bestVal, bestSol, haveIncumbent = val, st.values(), true
		s.monitor.recordSolution()
		if cfg.onIncumbent != nil {
			cfg.onIncumbent(bestSol, bestVal)
		}
		return cfg.targetObjective != nil && val == *cfg.targetObjective
	}

	// cutoff narrows st's objective to values strictly better than the
	// incumbent.
	cutoff := func(st *State) error {
		if !haveIncumbent {
			return nil
		}
		if minimize {
			return st.SetMax(obj.id, bestVal-1)
		}
		return st.SetMin(obj.id, bestVal+1)
	}

	vid := s.selectVariable(state)
	if vid < 0 {
		accept(state)
		return bestSol, bestVal, nil
	}

	stack := make([]*frame, 0, 64)
	stack = append(stack, &frame{state: state, varID: vid, next: state.Domain(vid).lo})
	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return bestSol, bestVal, ctx.Err()
		default:
		}

		fr := stack[len(stack)-1]
		child, _, ok := fr.child()
		if !ok {
			stack = stack[:len(stack)-1]
			s.monitor.recordBacktrack()
			continue
		}

		nodes++
		s.monitor.recordNode()
		if cfg.nodeLimit > 0 && nodes > cfg.nodeLimit {
			return bestSol, bestVal, ErrSearchLimitReached
		}

		seed := []int{fr.varID}
		if err := cutoff(child); err != nil {
			s.monitor.recordBacktrack()
			continue
		}
		seed = append(seed, child.drainChanged()...)
		if err := s.propagate(child, seed); err != nil {
			s.monitor.recordBacktrack()
			continue
		}

		nid := s.selectVariable(child)
		if nid < 0 {
			if accept(child) {
				return bestSol, bestVal, nil
			}
			continue
		}
		stack = append(stack, &frame{state: child, varID: nid, next: child.Domain(nid).lo})
		s.monitor.recordDepth(len(stack))
	}

	if !haveIncumbent {
		return nil, 0, nil
	}
	return bestSol, bestVal, nil
}
