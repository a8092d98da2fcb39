// Package lsystem implements deterministic context-free rewriting systems
// over a small alphabet: derivation, random generation, and recovery of
// production order from an inferred count matrix.
//
// Symbols are 0-based integers below the alphabet size N. Words render as
// lowercase letters when N ≤ 26 ("aab") and as comma-separated 1-based
// numbers otherwise.
package lsystem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// ErrSymbol is returned for a symbol outside the alphabet.
var ErrSymbol = errors.New("lsystem: symbol outside alphabet")

// Word is a sequence of symbols.
type Word []int

// Histogram counts the symbols of w over an alphabet of n symbols.
func (w Word) Histogram(n int) infer.Histogram {
	h := make(infer.Histogram, n)
	for _, s := range w {
		if s >= 0 && s < n {
			h[s]++
		}
	}
	return h
}

// Equal reports whether both words hold the same symbols in order.
func (w Word) Equal(o Word) bool {
	if len(w) != len(o) {
		return false
	}
	for i := range w {
		if w[i] != o[i] {
			return false
		}
	}
	return true
}

// Format renders w for an alphabet of n symbols.
func (w Word) Format(n int) string {
	if n <= 26 {
		var b strings.Builder
		for _, s := range w {
			b.WriteByte(byte('a' + s))
		}
		return b.String()
	}
	parts := make([]string, len(w))
	for i, s := range w {
		parts[i] = strconv.Itoa(s + 1)
	}
	return strings.Join(parts, ",")
}

func (w Word) String() string { return w.Format(26) }

// ParseWord reads a word over n symbols in either rendering accepted by
// Format: lowercase letters, or comma-separated 1-based numbers.
func ParseWord(s string, n int) (Word, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Word{}, nil
	}
	var w Word
	if strings.ContainsAny(s, ",0123456789") {
		for _, f := range strings.Split(s, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("lsystem: parse %q: %w", f, err)
			}
			w = append(w, v-1)
		}
	} else {
		for _, r := range s {
			w = append(w, int(r-'a'))
		}
	}
	for _, sym := range w {
		if sym < 0 || sym >= n {
			return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrSymbol, sym+1, n)
		}
	}
	return w, nil
}

// RuleSet is a deterministic L-system: an axiom word and one production per
// symbol. Rules[s] is the word that replaces s in each round.
type RuleSet struct {
	Axiom Word
	Rules []Word
}

// N returns the alphabet size.
func (rs RuleSet) N() int { return len(rs.Rules) }

// Validate checks that every symbol in the axiom and productions belongs to
// the alphabet.
func (rs RuleSet) Validate() error {
	n := rs.N()
	check := func(w Word) error {
		for _, s := range w {
			if s < 0 || s >= n {
				return fmt.Errorf("%w: %d", ErrSymbol, s)
			}
		}
		return nil
	}
	if err := check(rs.Axiom); err != nil {
		return err
	}
	for _, r := range rs.Rules {
		if err := check(r); err != nil {
			return err
		}
	}
	return nil
}

// Apply rewrites every symbol of w in parallel.
func (rs RuleSet) Apply(w Word) Word {
	size := 0
	for _, s := range w {
		size += len(rs.Rules[s])
	}
	out := make(Word, 0, size)
	for _, s := range w {
		out = append(out, rs.Rules[s]...)
	}
	return out
}

// Derive applies the rules depth times, starting from the axiom.
func (rs RuleSet) Derive(depth int) Word {
	w := append(Word{}, rs.Axiom...)
	for i := 0; i < depth; i++ {
		w = rs.Apply(w)
	}
	return w
}

// Produces reports whether some derivation round yields target, and at
// which depth. Rounds continue while the word is no longer than target;
// once the length stops changing, a repeated word ends the search.
func (rs RuleSet) Produces(target Word) (int, bool) {
	w := append(Word{}, rs.Axiom...)
	seen := make(map[string]bool)
	for depth := 0; len(w) <= len(target); depth++ {
		if w.Equal(target) {
			return depth, true
		}
		next := rs.Apply(w)
		if len(next) == len(w) {
			key := fmt.Sprint([]int(w))
			if seen[key] {
				return 0, false
			}
			seen[key] = true
		}
		if len(next) == 0 {
			return 0, false
		}
		w = next
	}
	return 0, false
}

// Parikh returns the count form of rs: the axiom vector and the rule
// matrix whose cell (r, c) counts c in the production of r.
func (rs RuleSet) Parikh() infer.Solution {
	n := rs.N()
	sol := infer.Solution{Axiom: infer.Vector(rs.Axiom.Histogram(n)), Rules: infer.NewMatrix(n)}
	for r, prod := range rs.Rules {
		copy(sol.Rules[r], prod.Histogram(n))
	}
	return sol
}

// Format renders rs one production per line, axiom first.
func (rs RuleSet) Format() string {
	n := rs.N()
	var b strings.Builder
	fmt.Fprintf(&b, "axiom: %s\n", rs.Axiom.Format(n))
	for s, prod := range rs.Rules {
		fmt.Fprintf(&b, "%s -> %s\n", Word{s}.Format(n), prod.Format(n))
	}
	return b.String()
}
