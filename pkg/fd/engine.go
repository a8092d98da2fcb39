package fd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// ErrUnsupported is returned when a csp.Problem uses a feature this engine
// cannot represent.
var ErrUnsupported = errors.New("fd: unsupported problem")

// Engine adapts the solver to csp.Engine.
type Engine struct {
	opts []OptimizeOption
}

var _ csp.Engine = (*Engine)(nil)

// NewEngine returns an engine that passes opts to every optimisation. The
// time budget given to Minimize is added as WithTimeLimit.
func NewEngine(opts ...OptimizeOption) *Engine {
	return &Engine{opts: opts}
}

// Name implements csp.Engine.
func (e *Engine) Name() string { return "fd" }

// Minimize implements csp.Engine.
func (e *Engine) Minimize(ctx context.Context, p *csp.Problem, budget time.Duration) (csp.Outcome, error) {
	start := time.Now()
	model, cost, err := Compile(p)
	if err != nil {
		return csp.Outcome{}, err
	}
	solver := NewSolver(model)
	opts := e.opts
	if budget > 0 {
		opts = append(append([]OptimizeOption{}, e.opts...), WithTimeLimit(budget))
	}
	sol, val, err := solver.SolveOptimalWithOptions(ctx, cost, true, opts...)

	stats := solver.GetMonitor().GetStats()
	out := csp.Outcome{
		Objective: val,
		Elapsed:   time.Since(start),
		Stats: csp.Stats{
			Nodes:        stats.NodesExplored,
			Backtracks:   stats.Backtracks,
			Solutions:    stats.SolutionsFound,
			Propagations: stats.PropagatorRuns,
			MaxDepth:     stats.MaxDepth,
		},
	}
	if sol != nil {
		out.Values = sol[:p.NumVars()]
	}

	switch {
	case err == nil && sol != nil:
		out.Status = csp.Optimal
	case err == nil:
		out.Status = csp.Infeasible
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrSearchLimitReached):
		out.Status = csp.Unknown
		if sol != nil {
			out.Status = csp.Feasible
		}
	default:
		return out, err
	}
	return out, nil
}

// Compile translates p into a model. Model variable i is problem variable i;
// product terms get auxiliary variables (one per unordered factor pair) and
// the objective gets a cost variable, which is returned.
func Compile(p *csp.Problem) (*Model, *Variable, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	m := NewModel()
	for _, v := range p.Vars() {
		fv := m.NewVariableWithName(NewDomain(v.Lo, v.Hi), v.Name)
		m.SetBranching(fv, !v.Derived)
	}

	products := make(map[[2]csp.VarID]*Variable)
	product := func(x, y csp.VarID) (*Variable, error) {
		if y < x {
			x, y = y, x
		}
		key := [2]csp.VarID{x, y}
		if z, ok := products[key]; ok {
			return z, nil
		}
		fx, fy := m.vars[x], m.vars[y]
		if fx.domain.lo < 0 || fy.domain.lo < 0 {
			return nil, fmt.Errorf("%w: product %s*%s over negative values", ErrUnsupported, fx.name, fy.name)
		}
		z := m.NewVariableWithName(NewDomain(
			csp.SatMul(fx.domain.lo, fy.domain.lo),
			csp.SatMul(fx.domain.hi, fy.domain.hi),
		), fmt.Sprintf("%s*%s", fx.name, fy.name))
		m.SetBranching(z, false)
		c, err := NewProduct(fx, fy, z)
		if err != nil {
			return nil, err
		}
		if err := m.AddConstraint(c); err != nil {
			return nil, err
		}
		products[key] = z
		return z, nil
	}

	terms := func(e csp.Expr) ([]*Variable, []int, error) {
		vars := make([]*Variable, 0, len(e.Terms))
		coeffs := make([]int, 0, len(e.Terms))
		for _, t := range e.Terms {
			v := m.vars[t.X]
			if t.IsProduct() {
				z, err := product(t.X, t.Y)
				if err != nil {
					return nil, nil, err
				}
				v = z
			}
			vars = append(vars, v)
			coeffs = append(coeffs, t.Coeff)
		}
		return vars, coeffs, nil
	}

	for _, c := range p.Constraints() {
		vars, coeffs, err := terms(c.Expr)
		if err != nil {
			return nil, nil, fmt.Errorf("constraint %q: %w", c.Label, err)
		}
		lin, err := NewLinear(vars, coeffs, c.Expr.Const, c.Rel)
		if err != nil {
			return nil, nil, err
		}
		if err := m.AddConstraint(lin); err != nil {
			return nil, nil, err
		}
	}

	obj := p.Objective()
	vars, coeffs, err := terms(obj)
	if err != nil {
		return nil, nil, err
	}
	lo, hi := obj.Const, obj.Const
	for i, v := range vars {
		a := coeffs[i]
		if a >= 0 {
			lo = csp.SatAdd(lo, csp.SatMul(a, v.domain.lo))
			hi = csp.SatAdd(hi, csp.SatMul(a, v.domain.hi))
		} else {
			lo = csp.SatAdd(lo, csp.SatMul(a, v.domain.hi))
			hi = csp.SatAdd(hi, csp.SatMul(a, v.domain.lo))
		}
	}
	cost := m.NewVariableWithName(NewDomain(lo, hi), "cost")
	m.SetBranching(cost, false)
	lin, err := NewLinear(append(vars, cost), append(coeffs, -1), obj.Const, csp.Eq)
	if err != nil {
		return nil, nil, err
	}
	if err := m.AddConstraint(lin); err != nil {
		return nil, nil, err
	}
	return m, cost, nil
}
