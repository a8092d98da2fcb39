package infer

import "fmt"

// Kind distinguishes the matrices and vectors of one assembly.
type Kind int

const (
	// Base is the rule matrix M¹.
	Base Kind = iota
	// Power is an intermediate power M^e, e ≥ 2.
	Power
	// Axiom is the axiom vector v₀.
	Axiom
	// Final is the derived vector v_p = v₀·M^p.
	Final
)

func (k Kind) String() string {
	switch k {
	case Base:
		return "base"
	case Power:
		return "power"
	case Axiom:
		return "axiom"
	case Final:
		return "final"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handle names a matrix or vector within a Builder. Handles are comparable
// and serve as arena keys.
type Handle struct {
	Kind Kind
	Exp  int
}

// BaseMatrix is the handle of M¹.
func BaseMatrix() Handle { return Handle{Kind: Base, Exp: 1} }

// PowerOf returns the handle of M^e. PowerOf(1) is BaseMatrix().
func PowerOf(e int) Handle {
	if e == 1 {
		return BaseMatrix()
	}
	return Handle{Kind: Power, Exp: e}
}

// AxiomVector is the handle of v₀.
func AxiomVector() Handle { return Handle{Kind: Axiom} }

// FinalVector returns the handle of v_p.
func FinalVector(p int) Handle { return Handle{Kind: Final, Exp: p} }

// IsMatrix reports whether h denotes an N×N matrix.
func (h Handle) IsMatrix() bool { return h.Kind == Base || h.Kind == Power }

func (h Handle) String() string {
	switch h.Kind {
	case Base:
		return "M"
	case Power:
		return fmt.Sprintf("M^%d", h.Exp)
	case Axiom:
		return "v0"
	case Final:
		return fmt.Sprintf("v%d", h.Exp)
	default:
		return h.Kind.String()
	}
}
