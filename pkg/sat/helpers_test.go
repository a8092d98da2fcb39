package sat

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// newTestSolver loads the circuit reachable from asserted and from every bit
// of observed, then asserts each literal of asserted.
func newTestSolver(k *circuit, asserted []z.Lit, observed ...word) *gini.Gini {
	g := gini.New()
	roots := append([]z.Lit{}, asserted...)
	for _, w := range observed {
		roots = append(roots, w...)
	}
	k.c.CnfSince(g, nil, roots...)
	for _, m := range asserted {
		g.Add(m)
		g.Add(0)
	}
	return g
}
