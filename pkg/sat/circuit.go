package sat

import (
	"math/bits"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// word is an unsigned integer as a little-endian vector of circuit
// literals. A nil word is the constant 0.
type word []z.Lit

// circuit wraps logic.C with fixed-width unsigned arithmetic. Widths grow
// so that no operation overflows.
type circuit struct {
	c *logic.C
}

func newCircuit() *circuit {
	return &circuit{c: logic.NewCCap(1 << 12)}
}

// input returns a fresh w-bit word.
func (k *circuit) input(w int) word {
	out := make(word, w)
	for i := range out {
		out[i] = k.c.Lit()
	}
	return out
}

// constant returns v as a word of bit length bitLen(v).
func (k *circuit) constant(v uint64) word {
	out := make(word, bits.Len64(v))
	for i := range out {
		if v&(1<<uint(i)) != 0 {
			out[i] = k.c.T
		} else {
			out[i] = k.c.F
		}
	}
	return out
}

func (k *circuit) bit(a word, i int) z.Lit {
	if i < len(a) {
		return a[i]
	}
	return k.c.F
}

// add returns a+b with width max(|a|,|b|)+1.
func (k *circuit) add(a, b word) word {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	n := max(len(a), len(b))
	out := make(word, n+1)
	carry := k.c.F
	for i := 0; i < n; i++ {
		x, y := k.bit(a, i), k.bit(b, i)
		xy := k.c.Xor(x, y)
		out[i] = k.c.Xor(xy, carry)
		carry = k.c.Or(k.c.And(x, y), k.c.And(carry, xy))
	}
	out[n] = carry
	return out
}

// sum adds ws pairwise so widths grow logarithmically.
func (k *circuit) sum(ws []word) word {
	if len(ws) == 0 {
		return nil
	}
	for len(ws) > 1 {
		next := make([]word, 0, (len(ws)+1)/2)
		for i := 0; i+1 < len(ws); i += 2 {
			next = append(next, k.add(ws[i], ws[i+1]))
		}
		if len(ws)%2 == 1 {
			next = append(next, ws[len(ws)-1])
		}
		ws = next
	}
	return ws[0]
}

// shift returns a·2^s.
func (k *circuit) shift(a word, s int) word {
	if len(a) == 0 {
		return nil
	}
	out := make(word, s, s+len(a))
	for i := range out {
		out[i] = k.c.F
	}
	return append(out, a...)
}

// scale returns a·m for a constant m ≥ 0.
func (k *circuit) scale(a word, m uint64) word {
	var parts []word
	for i := 0; m != 0; i, m = i+1, m>>1 {
		if m&1 == 1 {
			parts = append(parts, k.shift(a, i))
		}
	}
	return k.sum(parts)
}

// mul returns a·b with width |a|+|b|.
func (k *circuit) mul(a, b word) word {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if len(b) > len(a) {
		a, b = b, a
	}
	parts := make([]word, len(b))
	for i, bi := range b {
		row := make(word, len(a))
		for j, aj := range a {
			row[j] = k.c.And(aj, bi)
		}
		parts[i] = k.shift(row, i)
	}
	return k.sum(parts)
}

// leq returns a literal equivalent to a ≤ b.
func (k *circuit) leq(a, b word) z.Lit {
	n := max(len(a), len(b))
	le := k.c.T
	for i := 0; i < n; i++ {
		x, y := k.bit(a, i), k.bit(b, i)
		lt := k.c.And(x.Not(), y)
		same := k.c.Xor(x, y).Not()
		le = k.c.Or(lt, k.c.And(same, le))
	}
	return le
}

// eq returns a literal equivalent to a = b.
func (k *circuit) eq(a, b word) z.Lit {
	n := max(len(a), len(b))
	eqs := make([]z.Lit, n)
	for i := 0; i < n; i++ {
		eqs[i] = k.c.Xor(k.bit(a, i), k.bit(b, i)).Not()
	}
	return k.c.Ands(eqs...)
}
