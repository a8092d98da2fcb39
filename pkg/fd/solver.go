package fd

import (
	"context"
	"errors"
)

// defaultPropagationBudget caps propagator runs per fixpoint. Stopping early
// leaves a sound but weaker state; leaves are re-checked before acceptance.
const defaultPropagationBudget = 1 << 20

// Solver searches a Model. A Solver is not safe for concurrent use; create
// one per goroutine.
type Solver struct {
	model             *Model
	monitor           *SolverMonitor
	propagationBudget int
}

// NewSolver returns a solver for m with a fresh monitor.
func NewSolver(m *Model) *Solver {
	return &Solver{model: m, monitor: NewSolverMonitor(), propagationBudget: defaultPropagationBudget}
}

// Model returns the model being solved.
func (s *Solver) Model() *Model { return s.model }

// SetMonitor replaces the statistics monitor.
func (s *Solver) SetMonitor(m *SolverMonitor) {
	if m != nil {
		s.monitor = m
	}
}

// GetMonitor returns the statistics monitor.
func (s *Solver) GetMonitor() *SolverMonitor { return s.monitor }

// propagate runs constraints to a fixpoint. When seed is nil every
// constraint runs; otherwise only the watchers of the seed variables start
// in the queue.
func (s *Solver) propagate(st *State, seed []int) error {
	cons := s.model.constraints
	inQueue := make([]bool, len(cons))
	queue := make([]int, 0, len(cons))
	enqueue := func(ci int) {
		if !inQueue[ci] {
			inQueue[ci] = true
			queue = append(queue, ci)
		}
	}
	if seed == nil {
		for i := range cons {
			enqueue(i)
		}
	} else {
		for _, v := range seed {
			for _, ci := range s.model.watchers[v] {
				enqueue(ci)
			}
		}
	}
	st.drainChanged()

	runs := 0
	defer func() { s.monitor.recordPropagation(runs) }()
	for len(queue) > 0 && runs < s.propagationBudget {
		ci := queue[0]
		queue = queue[1:]
		inQueue[ci] = false
		runs++
		if err := cons[ci].Propagate(st); err != nil {
			return err
		}
		for _, v := range st.drainChanged() {
			for _, w := range s.model.watchers[v] {
				enqueue(w)
			}
		}
	}
	return nil
}

// check runs every constraint once on a fully assigned state.
func (s *Solver) check(st *State) bool {
	for _, c := range s.model.constraints {
		if err := c.Propagate(st); err != nil {
			return false
		}
	}
	return len(st.drainChanged()) == 0
}

// selectVariable picks the unassigned variable with the smallest domain,
// preferring branching variables. It returns -1 when every variable is
// assigned.
func (s *Solver) selectVariable(st *State) int {
	best, bestBranch, bestCount := -1, false, 0
	for i, d := range st.doms {
		if d.IsSingleton() {
			continue
		}
		branch := s.model.vars[i].branch
		count := d.Count()
		switch {
		case best == -1,
			branch && !bestBranch,
			branch == bestBranch && count < bestCount:
			best, bestBranch, bestCount = i, branch, count
		}
	}
	return best
}

type frame struct {
	state *State
	varID int
	next  int
}

// child assigns fr.varID to its next candidate value in a copy of fr.state.
// ok is false once the candidates are exhausted.
func (fr *frame) child() (*State, int, bool) {
	d := fr.state.Domain(fr.varID)
	if fr.next > d.hi {
		return nil, 0, false
	}
	v := fr.next
	fr.next++
	st := fr.state.clone()
	st.doms[fr.varID] = Singleton(v)
	return st, v, true
}

func (s *Solver) root() (*State, error) {
	if err := s.model.Validate(); err != nil {
		return nil, err
	}
	st := newState(s.model)
	if err := s.propagate(st, nil); err != nil {
		if errors.Is(err, ErrInconsistent) {
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

// Solve returns up to maxSolutions complete assignments (all of them when
// maxSolutions ≤ 0). Values are indexed by variable ID. If ctx ends first, the
// solutions found so far are returned with ctx.Err().
func (s *Solver) Solve(ctx context.Context, maxSolutions int) ([][]int, error) {
	s.monitor.StartSearch()
	defer s.monitor.FinishSearch()

	st, err := s.root()
	if err != nil || st == nil {
		return nil, err
	}
	var out [][]int
	emit := func(st *State) bool {
		if !s.check(st) {
			return false
		}
		s.monitor.recordSolution()
		out = append(out, st.values())
		return maxSolutions > 0 && len(out) >= maxSolutions
	}

	vid := s.selectVariable(st)
	if vid < 0 {
		emit(st)
		return out, nil
	}
	stack := []*frame{{state: st, varID: vid, next: st.Domain(vid).lo}}
	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		fr := stack[len(stack)-1]
		child, _, ok := fr.child()
		if !ok {
			stack = stack[:len(stack)-1]
			s.monitor.recordBacktrack()
			continue
		}
		s.monitor.recordNode()
		if err := s.propagate(child, []int{fr.varID}); err != nil {
			s.monitor.recordBacktrack()
			continue
		}
		nid := s.selectVariable(child)
		if nid < 0 {
			if emit(child) {
				return out, nil
			}
			continue
		}
		stack = append(stack, &frame{state: child, varID: nid, next: child.Domain(nid).lo})
		s.monitor.recordDepth(len(stack))
	}
	return out, nil
}
