package infer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// ErrConfiguration reports input that cannot be assembled: an empty
// alphabet, a depth below one, negative counts or a malformed record.
var ErrConfiguration = errors.New("infer: configuration error")

// Bounds selects the upper bound placed on rule cells and axiom entries.
type Bounds int

const (
	// CanonicalBounds caps every rule cell and axiom entry at max(1, ΣH).
	// The cap never excludes a minimal solution: the length of a derivation
	// never shrinks, so any rule applied before the last round and every
	// axiom entry is at most ΣH, and unused rules are minimal at 0 or 1.
	CanonicalBounds Bounds = iota
	// HistogramBounds caps M[r][c] and v₀[r] at H[r]. This narrower space is
	// a search heuristic: a symbol that is absent from the target cannot
	// have a rule at all, which makes some targets infeasible.
	HistogramBounds
)

func (b Bounds) String() string {
	switch b {
	case CanonicalBounds:
		return "canonical"
	case HistogramBounds:
		return "histogram"
	default:
		return fmt.Sprintf("bounds(%d)", int(b))
	}
}

// ParseBounds maps "canonical" and "histogram" to a Bounds value.
func ParseBounds(s string) (Bounds, error) {
	switch strings.ToLower(s) {
	case "", "canonical":
		return CanonicalBounds, nil
	case "histogram":
		return HistogramBounds, nil
	}
	return 0, fmt.Errorf("%w: unknown bounds policy %q", ErrConfiguration, s)
}

// AssembleOptions selects the structural constraints of an assembly.
type AssembleOptions struct {
	Bounds Bounds
	// ColumnCover requires every symbol to be produced by some rule.
	ColumnCover bool
	// RequireAxiom requires a non-empty axiom.
	RequireAxiom bool
}

// DefaultAssembleOptions returns column cover and a non-empty axiom under
// canonical bounds.
func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{Bounds: CanonicalBounds, ColumnCover: true, RequireAxiom: true}
}

// Assembly is the constraint model of one (histogram, depth) pair.
type Assembly struct {
	Histogram Histogram
	Depth     int
	Options   AssembleOptions
	Builder   *Builder
	// Chain lists the exponents of the power matrices, ascending.
	Chain []int
}

// Problem returns the assembled csp problem.
func (a *Assembly) Problem() *csp.Problem { return a.Builder.Problem() }

// Assemble builds the problem
//
//	minimise Σ M¹ + Σ v₀
//	s.t.     M^p by squaring from M¹
//	         v_p = v₀·M^p,  v_p = H
//	         M¹ ≥ 0, v₀ ≥ 0
//	         every row of M¹ sums to ≥ 1
//	         every column of M¹ sums to ≥ 1     (ColumnCover)
//	         Σ v₀ ≥ 1                           (RequireAxiom)
//
// Assembly is deterministic: equal inputs yield identical problems.
func Assemble(h Histogram, depth int, opts AssembleOptions) (*Assembly, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, fmt.Errorf("%w: depth %d < 1", ErrConfiguration, depth)
	}
	n := h.N()
	b := NewBuilder(n)

	limit := max(1, h.Total())
	if err := b.Declare(AxiomVector(), 0, limit, false); err != nil {
		return nil, err
	}
	if err := b.Declare(BaseMatrix(), 0, limit, false); err != nil {
		return nil, err
	}
	if opts.Bounds == HistogramBounds {
		b.restrictToHistogram(h)
	}

	top, err := b.Power(depth)
	if err != nil {
		return nil, err
	}

	maxCount := 0
	for _, c := range h {
		maxCount = max(maxCount, c)
	}
	final := FinalVector(depth)
	if err := b.Declare(final, 0, maxCount, true); err != nil {
		return nil, err
	}
	if err := b.MulVector(AxiomVector(), top, final); err != nil {
		return nil, err
	}

	p := b.Problem()
	for s, c := range h {
		p.Add(csp.Constraint{
			Label: fmt.Sprintf("%s[%d]=%d", final, s+1, c),
			Expr:  csp.Sum(b.Entry(final, s)).Plus(-c),
			Rel:   csp.Eq,
		})
	}

	base := BaseMatrix()
	for r := 0; r < n; r++ {
		row := make([]csp.VarID, n)
		for c := range row {
			row[c] = b.Cell(base, r, c)
		}
		p.Add(csp.Constraint{
			Label: fmt.Sprintf("row[%d]>=1", r+1),
			Expr:  csp.Sum(row...).Plus(-1),
			Rel:   csp.Ge,
		})
	}
	if opts.ColumnCover {
		for c := 0; c < n; c++ {
			col := make([]csp.VarID, n)
			for r := range col {
				col[r] = b.Cell(base, r, c)
			}
			p.Add(csp.Constraint{
				Label: fmt.Sprintf("col[%d]>=1", c+1),
				Expr:  csp.Sum(col...).Plus(-1),
				Rel:   csp.Ge,
			})
		}
	}
	if opts.RequireAxiom {
		p.Add(csp.Constraint{
			Label: "axiom>=1",
			Expr:  csp.Sum(b.Vars(AxiomVector())...).Plus(-1),
			Rel:   csp.Ge,
		})
	}

	cost := append(append([]csp.VarID{}, b.Vars(base)...), b.Vars(AxiomVector())...)
	p.Minimize(csp.Sum(cost...))

	return &Assembly{
		Histogram: append(Histogram{}, h...),
		Depth:     depth,
		Options:   opts,
		Builder:   b,
		Chain:     PowerChain(depth),
	}, nil
}

// restrictToHistogram tightens v₀[r] and every M[r][c] to H[r] by posting
// upper-bound constraints.
func (b *Builder) restrictToHistogram(h Histogram) {
	p := b.Problem()
	for r, hr := range h {
		p.Add(csp.Constraint{
			Label: fmt.Sprintf("v0[%d]<=%d", r+1, hr),
			Expr:  csp.Sum(b.Entry(AxiomVector(), r)).Plus(-hr),
			Rel:   csp.Le,
		})
		for c := 0; c < b.n; c++ {
			p.Add(csp.Constraint{
				Label: fmt.Sprintf("M[%d][%d]<=%d", r+1, c+1, hr),
				Expr:  csp.Sum(b.Cell(BaseMatrix(), r, c)).Plus(-hr),
				Rel:   csp.Le,
			})
		}
	}
}
