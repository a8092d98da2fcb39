// Package infer recovers a minimal rewriting system from the shape of its
// output.
//
// Given a target histogram H over N symbols and a depth p, the package
// searches for an axiom vector v₀ and an N×N rule matrix M with
//
//	v₀ · M^p = H
//
// minimising Σ M + Σ v₀. Rule M[r][c] counts the copies of symbol c that one
// rewrite of symbol r produces; v₀[s] is the multiplicity of s in the
// starting multiset. The relation is assembled as a csp.Problem (matrix
// power by squaring, histogram binding, row and column activity) and
// handed to a csp.Engine.
package infer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// Histogram holds the target count of each symbol; index i is symbol i+1.
type Histogram []int

// N returns the alphabet size.
func (h Histogram) N() int { return len(h) }

// Total returns the length of the word the histogram describes.
func (h Histogram) Total() int {
	t := 0
	for _, c := range h {
		t = csp.SatAdd(t, c)
	}
	return t
}

// Validate reports an ErrConfiguration for an empty alphabet or a negative
// count.
func (h Histogram) Validate() error {
	if len(h) == 0 {
		return fmt.Errorf("%w: empty histogram", ErrConfiguration)
	}
	for i, c := range h {
		if c < 0 {
			return fmt.Errorf("%w: negative count %d for symbol %d", ErrConfiguration, c, i+1)
		}
	}
	return nil
}

func (h Histogram) String() string { return joinInts(h) }

// Vector is a symbol multiset, indexed like Histogram.
type Vector []int

// Times returns v·m.
func (v Vector) Times(m Matrix) Vector {
	out := make(Vector, len(m))
	for i, vi := range v {
		if vi == 0 {
			continue
		}
		for k, mik := range m[i] {
			out[k] = csp.SatAdd(out[k], csp.SatMul(vi, mik))
		}
	}
	return out
}

// Sum returns Σ v.
func (v Vector) Sum() int {
	s := 0
	for _, x := range v {
		s = csp.SatAdd(s, x)
	}
	return s
}

// Equal reports whether both vectors hold the same entries.
func (v Vector) Equal(o []int) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

func (v Vector) String() string { return joinInts(v) }

// Matrix is a square rule matrix; m[r][c] is the number of c produced by
// one rewrite of r.
type Matrix [][]int

// NewMatrix returns the n×n zero matrix.
func NewMatrix(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n)
	for i := range m {
		m[i][i] = 1
	}
	return m
}

// Mul returns m·o.
func (m Matrix) Mul(o Matrix) Matrix {
	n := len(m)
	out := NewMatrix(n)
	for r := 0; r < n; r++ {
		for i := 0; i < n; i++ {
			if m[r][i] == 0 {
				continue
			}
			for k := 0; k < n; k++ {
				out[r][k] = csp.SatAdd(out[r][k], csp.SatMul(m[r][i], o[i][k]))
			}
		}
	}
	return out
}

// Pow returns m^p for p ≥ 0 by binary exponentiation.
func (m Matrix) Pow(p int) Matrix {
	result := Identity(len(m))
	base := m
	for p > 0 {
		if p&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		p >>= 1
	}
	return result
}

// Sum returns the sum of all entries.
func (m Matrix) Sum() int {
	s := 0
	for _, row := range m {
		s = csp.SatAdd(s, Vector(row).Sum())
	}
	return s
}

// RowSums returns the sum of every row.
func (m Matrix) RowSums() []int {
	out := make([]int, len(m))
	for r, row := range m {
		out[r] = Vector(row).Sum()
	}
	return out
}

// ColSums returns the sum of every column.
func (m Matrix) ColSums() []int {
	out := make([]int, len(m))
	for _, row := range m {
		for c, x := range row {
			out[c] = csp.SatAdd(out[c], x)
		}
	}
	return out
}

// Flatten returns the entries in row-major order.
func (m Matrix) Flatten() []int {
	out := make([]int, 0, len(m)*len(m))
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

func (m Matrix) String() string {
	rows := make([]string, len(m))
	for i, row := range m {
		rows[i] = "[" + joinInts(row) + "]"
	}
	return "[" + strings.Join(rows, " ") + "]"
}

// Derive applies m to v0 depth times by repeated multiplication.
func Derive(v0 Vector, m Matrix, depth int) Vector {
	v := append(Vector{}, v0...)
	for i := 0; i < depth; i++ {
		v = v.Times(m)
	}
	return v
}

// Solution is an inferred rewriting system.
type Solution struct {
	Axiom Vector
	Rules Matrix
}

// Cost returns Σ Rules + Σ Axiom.
func (s Solution) Cost() int {
	return csp.SatAdd(s.Rules.Sum(), s.Axiom.Sum())
}

func (s Solution) String() string {
	return fmt.Sprintf("v0=%s M=%s cost=%d", s.Axiom, s.Rules, s.Cost())
}

// Verify checks that s explains h at depth under the structural rules in
// opts: non-negative entries, every row (and column, with ColumnCover)
// summing to at least one, a non-empty axiom with RequireAxiom, and
// v₀·M^depth = h computed by direct multiplication.
func Verify(h Histogram, depth int, s Solution, opts AssembleOptions) error {
	n := h.N()
	if len(s.Axiom) != n || len(s.Rules) != n {
		return fmt.Errorf("%w: solution shape does not match %d symbols", ErrInvalidSolution, n)
	}
	for _, x := range s.Axiom {
		if x < 0 {
			return fmt.Errorf("%w: negative axiom entry", ErrInvalidSolution)
		}
	}
	for r, row := range s.Rules {
		if len(row) != n {
			return fmt.Errorf("%w: rule row %d has %d entries", ErrInvalidSolution, r+1, len(row))
		}
		for _, x := range row {
			if x < 0 {
				return fmt.Errorf("%w: negative rule entry in row %d", ErrInvalidSolution, r+1)
			}
		}
	}
	for r, sum := range s.Rules.RowSums() {
		if sum < 1 {
			return fmt.Errorf("%w: symbol %d produces nothing", ErrInvalidSolution, r+1)
		}
	}
	if opts.ColumnCover {
		for c, sum := range s.Rules.ColSums() {
			if sum < 1 {
				return fmt.Errorf("%w: symbol %d is never produced", ErrInvalidSolution, c+1)
			}
		}
	}
	if opts.RequireAxiom && s.Axiom.Sum() < 1 {
		return fmt.Errorf("%w: empty axiom", ErrInvalidSolution)
	}
	if got := Derive(s.Axiom, s.Rules, depth); !got.Equal(h) {
		return fmt.Errorf("%w: derives %s, want %s", ErrInvalidSolution, got, h)
	}
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
