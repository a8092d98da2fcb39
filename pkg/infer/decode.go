package infer

import "fmt"

// Decode reads the axiom vector and the rule matrix from an engine
// assignment, in symbol order. Power matrices and the final vector are
// ignored.
func (a *Assembly) Decode(values []int) (Solution, error) {
	b := a.Builder
	if got, want := len(values), b.Problem().NumVars(); got != want {
		return Solution{}, fmt.Errorf("%w: %d values for %d variables", ErrEngine, got, want)
	}
	n := b.N()
	sol := Solution{Axiom: make(Vector, n), Rules: NewMatrix(n)}
	for i := 0; i < n; i++ {
		sol.Axiom[i] = values[b.Entry(AxiomVector(), i)]
		for c := 0; c < n; c++ {
			sol.Rules[i][c] = values[b.Cell(BaseMatrix(), i, c)]
		}
	}
	return sol, nil
}

// Encode returns the assignment of a's problem that corresponds to sol,
// with every power matrix and the final vector computed directly. It is
// the inverse of Decode.
func (a *Assembly) Encode(sol Solution) []int {
	b := a.Builder
	values := make([]int, b.Problem().NumVars())
	for _, h := range b.Handles() {
		switch h.Kind {
		case Axiom:
			for i, id := range b.Vars(h) {
				values[id] = sol.Axiom[i]
			}
		case Base, Power:
			m := sol.Rules.Pow(h.Exp)
			for i, id := range b.Vars(h) {
				values[id] = m[i/b.N()][i%b.N()]
			}
		case Final:
			v := Derive(sol.Axiom, sol.Rules, h.Exp)
			for i, id := range b.Vars(h) {
				values[id] = v[i]
			}
		}
	}
	return values
}
