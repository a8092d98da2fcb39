package lsystem

import (
	"errors"
	"fmt"
	"math/rand"
)

// MaxAttempts bounds the rule sets Generate draws before giving up.
const MaxAttempts = 100

// ErrExhausted is returned when no drawn rule set used every production.
var ErrExhausted = errors.New("lsystem: no sample used every rule")

// Range is an inclusive integer interval.
type Range struct {
	Lo, Hi int
}

func (r Range) draw(rng *rand.Rand) int {
	if r.Hi <= r.Lo {
		return r.Lo
	}
	return r.Lo + rng.Intn(r.Hi-r.Lo+1)
}

// Sample is a generated system together with the word it derives.
type Sample struct {
	RuleSet RuleSet
	Depth   int
	Target  Word
	// Attempts is the number of rule sets drawn to find this one.
	Attempts int
}

// Generator draws random L-systems. Complexity is the number of symbols
// added on top of the minimum of one per production.
type Generator struct {
	Depths     Range
	Alphabet   Range
	Complexity Range
	rng        *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(depths, alphabet, complexity Range, seed int64) *Generator {
	return &Generator{
		Depths:     depths,
		Alphabet:   alphabet,
		Complexity: complexity,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Generate draws rule sets until one uses every production before the last
// round, that is, every symbol occurs in the axiom or one of the first
// depth-1 derived words. It gives up with ErrExhausted after MaxAttempts.
func (g *Generator) Generate() (Sample, error) {
	if g.Alphabet.Lo < 1 || g.Depths.Lo < 1 || g.Complexity.Lo < 0 {
		return Sample{}, fmt.Errorf("lsystem: invalid ranges depth=%v alphabet=%v complexity=%v", g.Depths, g.Alphabet, g.Complexity)
	}
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		depth := g.Depths.draw(g.rng)
		n := g.Alphabet.draw(g.rng)
		rs := g.ruleSet(n, g.Complexity.draw(g.rng))

		seen := make(map[int]bool, n)
		w := rs.Axiom
		for i := 0; i < depth; i++ {
			for _, s := range w {
				seen[s] = true
			}
			w = rs.Apply(w)
		}
		if len(seen) == n {
			return Sample{RuleSet: rs, Depth: depth, Target: w, Attempts: attempt}, nil
		}
	}
	return Sample{}, ErrExhausted
}

// ruleSet deals a shuffled pool of symbols, holding every symbol once plus
// complexity+1 random extras, to the axiom and the n productions: one each,
// then the rest to randomly chosen owners.
func (g *Generator) ruleSet(n, complexity int) RuleSet {
	pool := make([]int, 0, n+complexity+1)
	for s := 0; s < n; s++ {
		pool = append(pool, s)
	}
	for i := 0; i <= complexity; i++ {
		pool = append(pool, g.rng.Intn(n))
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	// owner n is the axiom
	words := make([]Word, n+1)
	next := func() int {
		s := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		return s
	}
	for owner := range words {
		words[owner] = Word{next()}
	}
	for i := 0; i < complexity; i++ {
		owner := g.rng.Intn(n + 1)
		words[owner] = append(words[owner], next())
	}
	return RuleSet{Axiom: words[n], Rules: words[:n]}
}
