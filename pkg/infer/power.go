package infer

import "fmt"

// PowerChain returns, in ascending order, every exponent that squaring
// defines on the way to p: for p = 1 only 1, otherwise
// PowerChain(p/2) followed by 2·(p/2) and, when p is odd, p.
//
// Each exponent appears once. The chain has at most 2⌊log₂ p⌋+1 entries;
// for example PowerChain(7) is [1 2 3 6 7].
func PowerChain(p int) []int {
	if p < 1 {
		return nil
	}
	if p == 1 {
		return []int{1}
	}
	h := p / 2
	chain := append(PowerChain(h), 2*h)
	if 2*h != p {
		chain = append(chain, p)
	}
	return chain
}

// Power defines M^p from the base matrix, which must already be declared,
// and returns its handle. Every exponent of PowerChain(p) is defined at most
// once per builder: an even exponent e as M^(e/2)·M^(e/2), an odd one as
// M^(e-1)·M¹. Exponents already present are reused.
func (b *Builder) Power(p int) (Handle, error) {
	if p < 1 {
		return Handle{}, fmt.Errorf("%w: exponent %d", ErrConfiguration, p)
	}
	base := BaseMatrix()
	if !b.Defined(base) {
		return Handle{}, fmt.Errorf("%w: base matrix", ErrUndefined)
	}
	for _, e := range PowerChain(p) {
		h := PowerOf(e)
		if b.Defined(h) {
			continue
		}
		var err error
		if e%2 == 0 {
			half := PowerOf(e / 2)
			err = b.MulMatrix(half, half, h)
		} else {
			err = b.MulMatrix(PowerOf(e-1), base, h)
		}
		if err != nil {
			return Handle{}, err
		}
	}
	return PowerOf(p), nil
}
