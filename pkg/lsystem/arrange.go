package lsystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// ErrNoArrangement is returned when no ordering of the inferred
// productions derives the target word.
var ErrNoArrangement = errors.New("lsystem: no production order derives target")

// arranger orders the symbol counts of an inferred system. Owner n is the
// axiom, treated as a pseudo-symbol rewritten once before the first round.
type arranger struct {
	ctx    context.Context
	n      int
	target Word
	// words[o] is the prefix of owner o's production fixed so far.
	words []Word
	// left[o][s] is how many more s owner o's production still needs.
	left   [][]int
	length []int
	steps  int
	err    error
}

// Arrange searches for productions whose symbol counts equal sol and whose
// derivation at depth reproduces target exactly. The derivation tree is
// walked left to right; each unfixed production position is tried with
// every symbol it still has a count for, and a leaf must match the target
// symbol at its offset.
func Arrange(ctx context.Context, sol infer.Solution, depth int, target Word) (RuleSet, error) {
	n := len(sol.Rules)
	if len(sol.Axiom) != n {
		return RuleSet{}, fmt.Errorf("lsystem: axiom has %d entries for %d symbols", len(sol.Axiom), n)
	}
	if depth < 0 {
		return RuleSet{}, fmt.Errorf("lsystem: negative depth %d", depth)
	}
	if got := infer.Derive(sol.Axiom, sol.Rules, depth); !got.Equal(target.Histogram(n)) {
		return RuleSet{}, fmt.Errorf("%w: counts derive %s, target has %s", ErrNoArrangement, got, target.Histogram(n))
	}

	a := &arranger{
		ctx:    ctx,
		n:      n,
		target: target,
		words:  make([]Word, n+1),
		left:   make([][]int, n+1),
		length: make([]int, n+1),
	}
	for o := 0; o <= n; o++ {
		row := []int(sol.Axiom)
		if o < n {
			row = sol.Rules[o]
		}
		a.left[o] = append([]int{}, row...)
		for _, c := range row {
			a.length[o] += c
		}
	}

	ok := a.walk(n, depth+1, 0, func(off int) bool { return off == len(target) })
	if a.err != nil {
		return RuleSet{}, a.err
	}
	if !ok {
		return RuleSet{}, ErrNoArrangement
	}
	rs := RuleSet{Axiom: a.words[n], Rules: make([]Word, n)}
	copy(rs.Rules, a.words[:n])
	// Productions never reached by the derivation keep their counts in
	// index order.
	for o := 0; o < n; o++ {
		for s, c := range a.left[o] {
			for ; c > 0; c-- {
				rs.Rules[o] = append(rs.Rules[o], s)
			}
		}
	}
	return rs, nil
}

// walk expands sym for depth more rounds starting at target offset off, and
// calls k with the offset after the expansion. It reports whether k
// eventually accepted.
func (a *arranger) walk(sym, depth, off int, k func(int) bool) bool {
	if a.err != nil {
		return false
	}
	if a.steps++; a.steps%4096 == 0 {
		if err := a.ctx.Err(); err != nil {
			a.err = err
			return false
		}
	}
	if depth == 0 {
		return off < len(a.target) && a.target[off] == sym && k(off+1)
	}
	return a.position(sym, 0, depth, off, k)
}

// position continues the production of owner at index i.
func (a *arranger) position(owner, i, depth, off int, k func(int) bool) bool {
	if i == a.length[owner] {
		return k(off)
	}
	rest := func(o int) bool { return a.position(owner, i+1, depth, o, k) }
	if i < len(a.words[owner]) {
		return a.walk(a.words[owner][i], depth-1, off, rest)
	}
	for s := 0; s < a.n; s++ {
		if a.left[owner][s] == 0 {
			continue
		}
		a.words[owner] = append(a.words[owner], s)
		a.left[owner][s]--
		if a.walk(s, depth-1, off, rest) {
			return true
		}
		a.words[owner] = a.words[owner][:len(a.words[owner])-1]
		a.left[owner][s]++
		if a.err != nil {
			return false
		}
	}
	return false
}
