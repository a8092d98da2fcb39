package fd

import (
	"fmt"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// Linear is the bounds-consistent constraint
//
//	Σ a[i]·x[i] + c  rel  0
//
// with rel one of csp.Eq, csp.Ge, csp.Le.
//
// Propagation computes, for every term, the range of the other terms and
// derives the admissible interval of a[i]·x[i]:
//
//	Eq, Ge:  a[i]·x[i] ≥ -c - OtherMax
//	Eq, Le:  a[i]·x[i] ≤ -c - OtherMin
//
// then converts it to bounds on x[i] with sign-aware division. Infinite
// contributions are counted separately so a single unbounded term still
// lets the solver bound that term from the others.
type Linear struct {
	vars   []*Variable
	coeffs []int
	c      int
	rel    csp.Relation
}

// NewLinear constructs Σ coeffs[i]·vars[i] + constant rel 0.
func NewLinear(vars []*Variable, coeffs []int, constant int, rel csp.Relation) (*Linear, error) {
	if len(vars) != len(coeffs) {
		return nil, fmt.Errorf("Linear: len(vars)=%d != len(coeffs)=%d", len(vars), len(coeffs))
	}
	for i, v := range vars {
		if v == nil {
			return nil, fmt.Errorf("Linear: vars[%d] is nil", i)
		}
	}
	switch rel {
	case csp.Eq, csp.Ge, csp.Le:
	default:
		return nil, fmt.Errorf("Linear: unknown relation %d", rel)
	}
	vcopy := make([]*Variable, len(vars))
	copy(vcopy, vars)
	ccopy := make([]int, len(coeffs))
	copy(ccopy, coeffs)
	return &Linear{vars: vcopy, coeffs: ccopy, c: constant, rel: rel}, nil
}

// NewLinearSum constructs Σ coeffs[i]·vars[i] = total.
func NewLinearSum(vars []*Variable, coeffs []int, total *Variable) (*Linear, error) {
	if total == nil {
		return nil, fmt.Errorf("LinearSum: total cannot be nil")
	}
	vs := append(append([]*Variable{}, vars...), total)
	cs := append(append([]int{}, coeffs...), -1)
	return NewLinear(vs, cs, 0, csp.Eq)
}

// Variables implements Constraint.
func (l *Linear) Variables() []*Variable { return l.vars }

// Type implements Constraint.
func (l *Linear) Type() string { return "Linear" }

func (l *Linear) String() string {
	return fmt.Sprintf("Linear(%d terms %+d %s 0)", len(l.vars), l.c, l.rel)
}

// Propagate implements Constraint.
func (l *Linear) Propagate(st *State) error {
	n := len(l.vars)
	lo := make([]int, n)
	hi := make([]int, n)

	minFin, maxFin := l.c, l.c
	minInf, maxInf := 0, 0
	for i, v := range l.vars {
		a := l.coeffs[i]
		d := st.Domain(v.id)
		if a >= 0 {
			lo[i], hi[i] = csp.SatMul(a, d.lo), csp.SatMul(a, d.hi)
		} else {
			lo[i], hi[i] = csp.SatMul(a, d.hi), csp.SatMul(a, d.lo)
		}
		if lo[i] <= -csp.Inf {
			minInf++
		} else {
			minFin = csp.SatAdd(minFin, lo[i])
		}
		if hi[i] >= csp.Inf {
			maxInf++
		} else {
			maxFin = csp.SatAdd(maxFin, hi[i])
		}
	}

	sumMin, sumMax := minFin, maxFin
	if minInf > 0 {
		sumMin = -csp.Inf
	}
	if maxInf > 0 {
		sumMax = csp.Inf
	}
	if (l.rel != csp.Le && sumMax < 0) || (l.rel != csp.Ge && sumMin > 0) {
		return fmt.Errorf("%w: %s range [%s..%s]", ErrInconsistent, l, bound(sumMin), bound(sumMax))
	}

	for i, v := range l.vars {
		a := l.coeffs[i]
		if a == 0 {
			continue
		}
		if l.rel != csp.Le {
			if rest, ok := otherSum(maxFin, maxInf, hi[i], hi[i] >= csp.Inf); ok {
				if err := narrowTerm(st, v.id, a, -rest, true); err != nil {
					return err
				}
			}
		}
		if l.rel != csp.Ge {
			if rest, ok := otherSum(minFin, minInf, lo[i], lo[i] <= -csp.Inf); ok {
				if err := narrowTerm(st, v.id, a, -rest, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// otherSum returns the finite part of a bound with one term's contribution
// removed. ok is false when the remainder is unbounded.
func otherSum(fin, infCount, own int, ownInf bool) (int, bool) {
	if ownInf {
		infCount--
	}
	if infCount > 0 || csp.IsInf(fin) {
		return 0, false
	}
	if ownInf {
		return fin, true
	}
	return fin - own, true
}

// narrowTerm applies a·x ≥ b (lower) or a·x ≤ b (!lower) to x.
func narrowTerm(st *State, id, a, b int, lower bool) error {
	if (a > 0) == lower {
		return st.SetMin(id, ceilDiv(b, a))
	}
	return st.SetMax(id, floorDiv(b, a))
}

// floorDiv returns ⌊a/b⌋ for b ≠ 0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ceilDiv returns ⌈a/b⌉ for b ≠ 0.
func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}
