package infer

import (
	"errors"
	"fmt"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// ErrUndefined is returned when a builder operation reads a handle that has
// not been declared.
var ErrUndefined = errors.New("infer: handle not declared")

// block is the variable set of one handle.
type block struct {
	vars []csp.VarID
	// hi bounds every entry of the block.
	hi int
}

// Builder owns the variable namespace and constraint list of one solve.
// Matrices and vectors are declared under a Handle; products between them
// become equality constraints in the underlying csp.Problem.
type Builder struct {
	n       int
	problem *csp.Problem
	arena   map[Handle]*block
	order   []Handle
}

// NewBuilder returns a builder over an alphabet of n symbols.
func NewBuilder(n int) *Builder {
	return &Builder{n: n, problem: csp.NewProblem(), arena: make(map[Handle]*block)}
}

// N returns the alphabet size.
func (b *Builder) N() int { return b.n }

// Problem returns the problem built so far.
func (b *Builder) Problem() *csp.Problem { return b.problem }

// Defined reports whether h has been declared.
func (b *Builder) Defined(h Handle) bool {
	_, ok := b.arena[h]
	return ok
}

// Handles returns the declared handles in declaration order.
func (b *Builder) Handles() []Handle { return b.order }

// Declare creates the variables of h with range [lo, hi]. Matrix handles get
// N×N cells, vector handles N entries. Derived variables are left to
// propagation by the engines. Declaring a handle twice is an error.
func (b *Builder) Declare(h Handle, lo, hi int, derived bool) error {
	if b.Defined(h) {
		return fmt.Errorf("infer: %s declared twice", h)
	}
	size := b.n
	if h.IsMatrix() {
		size = b.n * b.n
	}
	blk := &block{vars: make([]csp.VarID, size), hi: hi}
	for i := range blk.vars {
		blk.vars[i] = b.problem.NewVar(b.cellName(h, i), lo, hi)
		if derived {
			b.problem.MarkDerived(blk.vars[i])
		}
	}
	b.arena[h] = blk
	b.order = append(b.order, h)
	return nil
}

func (b *Builder) cellName(h Handle, i int) string {
	if h.IsMatrix() {
		return fmt.Sprintf("%s[%d][%d]", h, i/b.n+1, i%b.n+1)
	}
	return fmt.Sprintf("%s[%d]", h, i+1)
}

// Cell returns the variable of matrix cell (r, c), zero-based.
func (b *Builder) Cell(h Handle, r, c int) csp.VarID {
	return b.arena[h].vars[r*b.n+c]
}

// Entry returns the variable of vector entry i, zero-based.
func (b *Builder) Entry(h Handle, i int) csp.VarID {
	return b.arena[h].vars[i]
}

// Vars returns every variable of h, row-major for matrices.
func (b *Builder) Vars(h Handle) []csp.VarID {
	if blk, ok := b.arena[h]; ok {
		return blk.vars
	}
	return nil
}

// Bound returns the upper bound shared by the entries of h.
func (b *Builder) Bound(h Handle) int {
	if blk, ok := b.arena[h]; ok {
		return blk.hi
	}
	return 0
}

// productBound is N·hiA·hiB, the largest value a dot product of two
// declared blocks can take. Chained over p-1 products the power bounds
// grow quickly, which is what limits the sat engine to small depths.
func (b *Builder) productBound(x, y Handle) int {
	return csp.SatMul(b.n, csp.SatMul(b.Bound(x), b.Bound(y)))
}

// MulMatrix constrains c = a·x cell by cell:
//
//	c[r][k] = Σ_i a[r][i]·x[i][k]
//
// If c is undeclared it is declared as a derived matrix bounded by the
// operands. a and x may be the same handle.
func (b *Builder) MulMatrix(a, x, c Handle) error {
	for _, h := range []Handle{a, x} {
		if !h.IsMatrix() || !b.Defined(h) {
			return fmt.Errorf("%w: matrix %s", ErrUndefined, h)
		}
	}
	if !c.IsMatrix() {
		return fmt.Errorf("infer: %s is not a matrix", c)
	}
	if !b.Defined(c) {
		if err := b.Declare(c, 0, b.productBound(a, x), true); err != nil {
			return err
		}
	}
	for r := 0; r < b.n; r++ {
		for k := 0; k < b.n; k++ {
			terms := make([]csp.Term, 0, b.n+1)
			for i := 0; i < b.n; i++ {
				terms = append(terms, csp.Mul(1, b.Cell(a, r, i), b.Cell(x, i, k)))
			}
			terms = append(terms, csp.Lin(-1, b.Cell(c, r, k)))
			b.problem.Add(csp.Constraint{
				Label: fmt.Sprintf("%s[%d][%d]=%s*%s", c, r+1, k+1, a, x),
				Expr:  csp.Expr{Terms: terms},
				Rel:   csp.Eq,
			})
		}
	}
	return nil
}

// MulVector constrains out = v·m entry by entry:
//
//	out[k] = Σ_i v[i]·m[i][k]
//
// If out is undeclared it is declared as a derived vector bounded by the
// operands.
func (b *Builder) MulVector(v, m, out Handle) error {
	if v.IsMatrix() || !b.Defined(v) {
		return fmt.Errorf("%w: vector %s", ErrUndefined, v)
	}
	if !m.IsMatrix() || !b.Defined(m) {
		return fmt.Errorf("%w: matrix %s", ErrUndefined, m)
	}
	if out.IsMatrix() {
		return fmt.Errorf("infer: %s is not a vector", out)
	}
	if !b.Defined(out) {
		if err := b.Declare(out, 0, b.productBound(v, m), true); err != nil {
			return err
		}
	}
	for k := 0; k < b.n; k++ {
		terms := make([]csp.Term, 0, b.n+1)
		for i := 0; i < b.n; i++ {
			terms = append(terms, csp.Mul(1, b.Entry(v, i), b.Cell(m, i, k)))
		}
		terms = append(terms, csp.Lin(-1, b.Entry(out, k)))
		b.problem.Add(csp.Constraint{
			Label: fmt.Sprintf("%s[%d]=%s*%s", out, k+1, v, m),
			Expr:  csp.Expr{Terms: terms},
			Rel:   csp.Eq,
		})
	}
	return nil
}
