// Package csp defines the contract between problem builders and the
// optimisation engines that solve them.
//
// A Problem is a set of bounded integer variables, a list of constraints of
// the form
//
//	Σ coeff·x[·y] + const  {=, ≥, ≤}  0
//
// (each term is either linear or the product of two variables) and a linear
// objective to minimise. Engines consume a Problem through the Engine
// interface and report an Outcome.
//
// Problems are built sequentially and are read-only while an engine runs.
package csp

import (
	"errors"
	"fmt"
	"strings"
)

// Inf is the saturation value used for unbounded variable ranges and for
// overflowing bound arithmetic. Any magnitude at or above Inf is treated as
// infinite.
const Inf = 1 << 62

// VarID identifies a variable within one Problem.
type VarID int

// NoVar marks the absent second factor of a linear Term.
const NoVar VarID = -1

// ErrInvalidProblem is returned by Validate for malformed problems.
var ErrInvalidProblem = errors.New("csp: invalid problem")

// ErrViolated is returned by Check when an assignment breaks a bound or a
// constraint.
var ErrViolated = errors.New("csp: assignment violates problem")

// Var is a bounded integer decision variable.
type Var struct {
	ID   VarID
	Name string
	Lo   int
	Hi   int
	// Derived variables are functionally determined by the others through
	// equality constraints. Engines may skip branching on them.
	Derived bool
}

// Term is Coeff·X when Y == NoVar, and Coeff·X·Y otherwise.
type Term struct {
	Coeff int
	X     VarID
	Y     VarID
}

// Lin returns the linear term c·x.
func Lin(c int, x VarID) Term { return Term{Coeff: c, X: x, Y: NoVar} }

// Mul returns the bilinear term c·x·y.
func Mul(c int, x, y VarID) Term { return Term{Coeff: c, X: x, Y: y} }

// IsProduct reports whether t multiplies two variables.
func (t Term) IsProduct() bool { return t.Y != NoVar }

// Expr is Σ Terms + Const.
type Expr struct {
	Terms []Term
	Const int
}

// Sum returns the expression Σ x over vars with unit coefficients.
func Sum(vars ...VarID) Expr {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Lin(1, v)
	}
	return Expr{Terms: terms}
}

// Plus returns e + k.
func (e Expr) Plus(k int) Expr {
	return Expr{Terms: e.Terms, Const: SatAdd(e.Const, k)}
}

// Linear reports whether e has no product terms.
func (e Expr) Linear() bool {
	for _, t := range e.Terms {
		if t.IsProduct() {
			return false
		}
	}
	return true
}

// Relation compares an expression against zero.
type Relation int

const (
	// Eq requires expr = 0.
	Eq Relation = iota
	// Ge requires expr ≥ 0.
	Ge
	// Le requires expr ≤ 0.
	Le
)

func (r Relation) String() string {
	switch r {
	case Eq:
		return "="
	case Ge:
		return ">="
	case Le:
		return "<="
	default:
		return "?"
	}
}

// Holds reports whether value satisfies "value r 0".
func (r Relation) Holds(value int) bool {
	switch r {
	case Eq:
		return value == 0
	case Ge:
		return value >= 0
	case Le:
		return value <= 0
	default:
		return false
	}
}

// Constraint is "Expr Rel 0". Label is informational.
type Constraint struct {
	Label string
	Expr  Expr
	Rel   Relation
}

// Problem is a minimisation problem over bounded integer variables.
type Problem struct {
	vars        []Var
	names       map[string]VarID
	constraints []Constraint
	objective   Expr
}

// NewProblem returns an empty problem.
func NewProblem() *Problem {
	return &Problem{names: make(map[string]VarID)}
}

// NewVar adds a variable with range [lo, hi] and returns its ID. Bounds at or
// beyond ±Inf are clamped to ±Inf.
func (p *Problem) NewVar(name string, lo, hi int) VarID {
	id := VarID(len(p.vars))
	p.vars = append(p.vars, Var{ID: id, Name: name, Lo: clamp(lo), Hi: clamp(hi)})
	if _, dup := p.names[name]; !dup {
		p.names[name] = id
	}
	return id
}

// MarkDerived flags id as functionally determined by other variables.
func (p *Problem) MarkDerived(id VarID) {
	p.vars[id].Derived = true
}

// Var returns the variable with the given ID.
func (p *Problem) Var(id VarID) Var { return p.vars[id] }

// Lookup returns the first variable registered under name.
func (p *Problem) Lookup(name string) (VarID, bool) {
	id, ok := p.names[name]
	return id, ok
}

// Vars returns all variables in creation order. The slice must not be
// modified.
func (p *Problem) Vars() []Var { return p.vars }

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// Add posts a constraint.
func (p *Problem) Add(c Constraint) {
	p.constraints = append(p.constraints, c)
}

// Constraints returns all posted constraints. The slice must not be
// modified.
func (p *Problem) Constraints() []Constraint { return p.constraints }

// Minimize sets the linear objective.
func (p *Problem) Minimize(e Expr) { p.objective = e }

// Objective returns the objective expression.
func (p *Problem) Objective() Expr { return p.objective }

// String summarises the problem size.
func (p *Problem) String() string {
	products := 0
	for _, c := range p.constraints {
		for _, t := range c.Expr.Terms {
			if t.IsProduct() {
				products++
			}
		}
	}
	return fmt.Sprintf("Problem{vars: %d, constraints: %d, products: %d}",
		len(p.vars), len(p.constraints), products)
}

// Validate checks that the problem is well formed: unique names, non-empty
// ranges, known variables in every term, and a linear objective.
func (p *Problem) Validate() error {
	seen := make(map[string]bool, len(p.vars))
	for _, v := range p.vars {
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variable name %q", ErrInvalidProblem, v.Name)
		}
		seen[v.Name] = true
		if v.Lo > v.Hi {
			return fmt.Errorf("%w: variable %s has empty range [%d, %d]", ErrInvalidProblem, v.Name, v.Lo, v.Hi)
		}
	}
	for _, c := range p.constraints {
		if err := p.checkTerms(c.Expr); err != nil {
			return fmt.Errorf("%w: constraint %q: %v", ErrInvalidProblem, c.Label, err)
		}
	}
	if err := p.checkTerms(p.objective); err != nil {
		return fmt.Errorf("%w: objective: %v", ErrInvalidProblem, err)
	}
	if !p.objective.Linear() {
		return fmt.Errorf("%w: objective must be linear", ErrInvalidProblem)
	}
	return nil
}

func (p *Problem) checkTerms(e Expr) error {
	n := VarID(len(p.vars))
	for _, t := range e.Terms {
		if t.X < 0 || t.X >= n {
			return fmt.Errorf("unknown variable %d", t.X)
		}
		if t.Y != NoVar && (t.Y < 0 || t.Y >= n) {
			return fmt.Errorf("unknown variable %d", t.Y)
		}
	}
	return nil
}

// Eval evaluates e under values (indexed by VarID) with saturating
// arithmetic.
func Eval(e Expr, values []int) int {
	total := e.Const
	for _, t := range e.Terms {
		v := SatMul(t.Coeff, values[t.X])
		if t.IsProduct() {
			v = SatMul(v, values[t.Y])
		}
		total = SatAdd(total, v)
	}
	return total
}

// Check verifies that values satisfies every bound and constraint of p.
func (p *Problem) Check(values []int) error {
	if len(values) != len(p.vars) {
		return fmt.Errorf("%w: %d values for %d variables", ErrViolated, len(values), len(p.vars))
	}
	for _, v := range p.vars {
		if x := values[v.ID]; x < v.Lo || x > v.Hi {
			return fmt.Errorf("%w: %s = %d outside [%d, %d]", ErrViolated, v.Name, x, v.Lo, v.Hi)
		}
	}
	var broken []string
	for _, c := range p.constraints {
		if !c.Rel.Holds(Eval(c.Expr, values)) {
			broken = append(broken, c.Label)
		}
	}
	if len(broken) > 0 {
		return fmt.Errorf("%w: %s", ErrViolated, strings.Join(broken, ", "))
	}
	return nil
}

func clamp(v int) int {
	if v >= Inf {
		return Inf
	}
	if v <= -Inf {
		return -Inf
	}
	return v
}
