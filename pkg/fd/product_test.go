package fd

import (
	"context"
	"testing"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

func TestProduct_PrunesResult(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(2, 3))
	y := model.NewVariable(NewDomain(4, 5))
	z := model.NewVariable(NewDomain(0, 100))
	p, err := NewProduct(x, y, z)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	st := newState(model)
	if err := p.Propagate(st); err != nil {
		t.Fatalf("propagation error: %v", err)
	}
	if d := st.Domain(z.ID()); d.Min() != 8 || d.Max() != 15 {
		t.Fatalf("z: got %s, want [8..15]", d)
	}
}

func TestProduct_PrunesFactors(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 100))
	y := model.NewVariable(NewDomain(3, 10))
	z := model.NewVariable(NewDomain(7, 20))
	p, _ := NewProduct(x, y, z)
	st := newState(model)
	if err := p.Propagate(st); err != nil {
		t.Fatalf("propagation error: %v", err)
	}
	// x ≥ ⌈7/10⌉ = 1, x ≤ ⌊20/3⌋ = 6
	if d := st.Domain(x.ID()); d.Min() != 1 || d.Max() != 6 {
		t.Fatalf("x: got %s, want [1..6]", d)
	}
}

func TestProduct_ZeroFactorForcesZero(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 0))
	y := model.NewVariable(NewDomain(0, 9))
	z := model.NewVariable(NewDomain(1, 9))
	p, _ := NewProduct(x, y, z)
	st := newState(model)
	if err := p.Propagate(st); err == nil {
		t.Fatalf("expected inconsistency for 0*y >= 1")
	}
}

func TestProduct_Square(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 100))
	z := model.NewVariable(NewDomain(10, 50))
	p, _ := NewProduct(x, x, z)
	st := newState(model)
	if err := p.Propagate(st); err != nil {
		t.Fatalf("propagation error: %v", err)
	}
	// 4² = 16 ≥ 10, 7² = 49 ≤ 50
	if d := st.Domain(x.ID()); d.Min() != 4 || d.Max() != 7 {
		t.Fatalf("x: got %s, want [4..7]", d)
	}
}

func TestProduct_RejectsNegativeDomains(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(-1, 1))
	y := model.NewVariable(NewDomain(0, 1))
	z := model.NewVariable(NewDomain(0, 1))
	if _, err := NewProduct(x, y, z); err == nil {
		t.Fatalf("expected error for negative domain")
	}
}

// Every solution of z = x*y over small domains satisfies the relation and
// none is missing.
func TestProduct_SolveEnumeratesAll(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 4))
	y := model.NewVariable(NewDomain(0, 4))
	z := model.NewVariable(NewDomain(6, 8))
	p, _ := NewProduct(x, y, z)
	model.AddConstraint(p)

	sols, err := NewSolver(model).Solve(context.Background(), 0)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	want := 0
	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			if c := a * b; c >= 6 && c <= 8 {
				want++
			}
		}
	}
	if len(sols) != want {
		t.Fatalf("got %d solutions, want %d", len(sols), want)
	}
	for _, s := range sols {
		if s[0]*s[1] != s[2] {
			t.Fatalf("bad solution %v", s)
		}
	}
}

func TestIsqrt(t *testing.T) {
	for _, v := range []int{0, 1, 2, 3, 4, 15, 16, 17, 1 << 40, csp.Inf - 1} {
		r := isqrt(v)
		if r*r > v || (r+1)*(r+1) <= v {
			t.Fatalf("isqrt(%d) = %d", v, r)
		}
	}
}
