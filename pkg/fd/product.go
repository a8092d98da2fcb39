package fd

import (
	"fmt"
	"math"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// Product is the bounds-consistent constraint z = x·y over non-negative
// domains. x and y may be the same variable, in which case z = x².
type Product struct {
	x, y, z *Variable
}

// NewProduct constructs z = x·y. All three initial domains must be
// non-negative.
func NewProduct(x, y, z *Variable) (*Product, error) {
	if x == nil || y == nil || z == nil {
		return nil, fmt.Errorf("Product: nil variable")
	}
	for _, v := range []*Variable{x, y, z} {
		if v.domain.lo < 0 {
			return nil, fmt.Errorf("Product: %s has negative values", v)
		}
	}
	return &Product{x: x, y: y, z: z}, nil
}

// Variables implements Constraint.
func (p *Product) Variables() []*Variable { return []*Variable{p.x, p.y, p.z} }

// Type implements Constraint.
func (p *Product) Type() string { return "Product" }

func (p *Product) String() string {
	return fmt.Sprintf("Product(%s = %s * %s)", p.z.name, p.x.name, p.y.name)
}

// Propagate implements Constraint.
func (p *Product) Propagate(st *State) error {
	dx, dy := st.Domain(p.x.id), st.Domain(p.y.id)
	if err := st.Narrow(p.z.id, NewDomain(csp.SatMul(dx.lo, dy.lo), csp.SatMul(dx.hi, dy.hi))); err != nil {
		return err
	}
	if p.x == p.y {
		return p.propagateSquare(st)
	}
	if err := narrowFactor(st, p.x.id, p.y.id, p.z.id); err != nil {
		return err
	}
	return narrowFactor(st, p.y.id, p.x.id, p.z.id)
}

func (p *Product) propagateSquare(st *State) error {
	dz := st.Domain(p.z.id)
	if dz.hi < csp.Inf {
		if err := st.SetMax(p.x.id, isqrt(dz.hi)); err != nil {
			return err
		}
	}
	r := isqrt(dz.lo)
	if r*r < dz.lo {
		r++
	}
	return st.SetMin(p.x.id, r)
}

// narrowFactor bounds x from z = x·y.
func narrowFactor(st *State, x, y, z int) error {
	dy, dz := st.Domain(y), st.Domain(z)
	if dz.lo > 0 {
		lo := 1
		if dy.hi < csp.Inf && dy.hi > 0 {
			lo = max(lo, ceilDiv(dz.lo, dy.hi))
		}
		if err := st.SetMin(x, lo); err != nil {
			return err
		}
	}
	if dy.lo > 0 && dz.hi < csp.Inf {
		if err := st.SetMax(x, floorDiv(dz.hi, dy.lo)); err != nil {
			return err
		}
	}
	return nil
}

// isqrt returns ⌊√v⌋ for v ≥ 0.
func isqrt(v int) int {
	if v <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(v)))
	for r > 0 && r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}
