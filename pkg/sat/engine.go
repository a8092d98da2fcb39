// Package sat minimises csp problems with the gini SAT solver.
//
// Every variable is bit-blasted into an unsigned word wide enough for its
// upper bound. Products become shift-and-add multipliers and sums become
// adder trees whose widths grow so nothing overflows; each constraint is an
// equality or comparison literal asserted as a unit clause. Minimisation is
// a descending search: after each model with cost c, the circuit for
// cost ≤ c-1 is added incrementally and the solver runs again until the
// problem becomes unsatisfiable.
package sat

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
	unknown       = 0
)

// DefaultMaxWidth is the default bit width limit for a single variable.
const DefaultMaxWidth = 24

var (
	// ErrTooWide is returned when a variable's upper bound needs more bits
	// than the engine's maximum width. Use the fd engine for such problems.
	ErrTooWide = errors.New("sat: variable range too wide")
	// ErrUnsupported is returned for negative ranges and for negative
	// objective coefficients.
	ErrUnsupported = errors.New("sat: unsupported problem")
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxWidth sets the largest bit width a variable may need.
func WithMaxWidth(w int) Option {
	return func(e *Engine) {
		if w > 0 && w < 63 {
			e.maxWidth = w
		}
	}
}

// WithPollInterval sets how often a running solve checks for cancellation.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// Engine implements csp.Engine on top of gini.
type Engine struct {
	maxWidth int
	poll     time.Duration
}

var _ csp.Engine = (*Engine)(nil)

// NewEngine returns a SAT engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxWidth: DefaultMaxWidth, poll: 5 * time.Millisecond}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name implements csp.Engine.
func (e *Engine) Name() string { return "sat" }

// Minimize implements csp.Engine.
func (e *Engine) Minimize(ctx context.Context, p *csp.Problem, budget time.Duration) (csp.Outcome, error) {
	start := time.Now()
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	out := csp.Outcome{Status: csp.Unknown}
	finish := func() (csp.Outcome, error) {
		out.Elapsed = time.Since(start)
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, ctx.Err()
		}
		return out, nil
	}

	enc, err := e.encode(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return finish()
		}
		return csp.Outcome{}, err
	}

	// Load the circuit one root at a time so an expired budget is noticed
	// between roots rather than after the whole conversion.
	g := gini.New()
	var marks []int8
	for _, m := range enc.roots {
		if ctx.Err() != nil {
			return finish()
		}
		var n int
		marks, n = enc.k.c.CnfSince(g, marks, m)
		out.Stats.Clauses += 3 * n
	}
	for _, m := range enc.roots {
		g.Add(m)
		g.Add(0)
	}
	out.Stats.Clauses += len(enc.roots)

	for {
		out.Stats.Nodes++
		switch waitForSolution(ctx, g.GoSolve(), e.poll) {
		case satisfiable:
			out.Values = enc.decode(g)
			out.Objective = csp.Eval(p.Objective(), out.Values)
			out.Status = csp.Feasible
			out.Stats.Solutions++
			// Tighten: cost ≤ best-1.
			if out.Objective <= p.Objective().Const {
				out.Status = csp.Optimal
				return finish()
			}
			bound := enc.k.leq(enc.cost, enc.k.constant(uint64(out.Objective-1-p.Objective().Const)))
			var n int
			marks, n = enc.k.c.CnfSince(g, marks, bound)
			g.Add(bound)
			g.Add(0)
			out.Stats.Clauses += 3*n + 1
		case unsatisfiable:
			if out.Status == csp.Feasible {
				out.Status = csp.Optimal
			} else {
				out.Status = csp.Infeasible
			}
			return finish()
		default:
			return finish()
		}
	}
}

func waitForSolution(ctx context.Context, gs inter.Solve, poll time.Duration) int {
	t := time.NewTicker(poll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return gs.Stop()
		case <-t.C:
			if result, ok := gs.Test(); ok {
				return result
			}
		}
	}
}

type encoding struct {
	k     *circuit
	vars  []word
	roots []z.Lit
	// cost is the objective without its constant.
	cost word
}

func (e *Engine) encode(ctx context.Context, p *csp.Problem) (*encoding, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	enc := &encoding{k: newCircuit()}
	k := enc.k

	enc.vars = make([]word, p.NumVars())
	for _, v := range p.Vars() {
		if v.Lo < 0 {
			return nil, fmt.Errorf("%w: %s has negative lower bound", ErrUnsupported, v.Name)
		}
		w := bits.Len64(uint64(v.Hi))
		if v.Hi >= csp.Inf || w > e.maxWidth {
			return nil, fmt.Errorf("%w: %s needs more than %d bits", ErrTooWide, v.Name, e.maxWidth)
		}
		x := k.input(w)
		enc.vars[v.ID] = x
		if v.Hi != 1<<uint(w)-1 {
			enc.roots = append(enc.roots, k.leq(x, k.constant(uint64(v.Hi))))
		}
		if v.Lo > 0 {
			enc.roots = append(enc.roots, k.leq(k.constant(uint64(v.Lo)), x))
		}
	}

	products := make(map[[2]csp.VarID]word)
	term := func(t csp.Term) word {
		x := enc.vars[t.X]
		if t.IsProduct() {
			a, b := t.X, t.Y
			if b < a {
				a, b = b, a
			}
			key := [2]csp.VarID{a, b}
			xy, ok := products[key]
			if !ok {
				xy = k.mul(enc.vars[a], enc.vars[b])
				products[key] = xy
			}
			x = xy
		}
		c := t.Coeff
		if c < 0 {
			c = -c
		}
		return k.scale(x, uint64(c))
	}

	for _, c := range p.Constraints() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pos, neg []word
		for _, t := range c.Expr.Terms {
			switch {
			case t.Coeff > 0:
				pos = append(pos, term(t))
			case t.Coeff < 0:
				neg = append(neg, term(t))
			}
		}
		if c.Expr.Const > 0 {
			pos = append(pos, k.constant(uint64(c.Expr.Const)))
		} else if c.Expr.Const < 0 {
			neg = append(neg, k.constant(uint64(-c.Expr.Const)))
		}
		lhs, rhs := k.sum(pos), k.sum(neg)
		var root z.Lit
		switch c.Rel {
		case csp.Eq:
			root = k.eq(lhs, rhs)
		case csp.Ge:
			root = k.leq(rhs, lhs)
		case csp.Le:
			root = k.leq(lhs, rhs)
		}
		enc.roots = append(enc.roots, root)
	}

	var costs []word
	for _, t := range p.Objective().Terms {
		if t.Coeff < 0 {
			return nil, fmt.Errorf("%w: negative objective coefficient", ErrUnsupported)
		}
		costs = append(costs, term(t))
	}
	enc.cost = k.sum(costs)
	return enc, nil
}

// decode reads variable values from g's last model. Bits that never made it
// into a clause are unconstrained and read as false.
func (enc *encoding) decode(g *gini.Gini) []int {
	maxVar := g.MaxVar()
	out := make([]int, len(enc.vars))
	for i, x := range enc.vars {
		v := 0
		for b, m := range x {
			if m.Var() <= maxVar && g.Value(m) {
				v |= 1 << uint(b)
			}
		}
		out[i] = v
	}
	return out
}
