// Package fd is a finite-domain constraint solver with bounds propagation
// and depth-first branch-and-bound optimisation.
//
// Domains are closed integer intervals. Constraints narrow interval bounds
// until a fixpoint is reached; search then branches on the variable with the
// smallest domain, trying values in ascending order. Every search node owns
// its own copy of the domain store, so backtracking is a matter of dropping
// the node.
//
// The package also adapts csp.Problem instances (see Engine), which is how
// the inference pipeline drives it.
package fd

import (
	"errors"
	"fmt"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// ErrInconsistent is returned by propagation when a domain becomes empty.
var ErrInconsistent = errors.New("fd: inconsistent domain")

// Domain is the closed interval [lo, hi]. Bounds saturate at ±csp.Inf.
// The zero value is the singleton {0}.
type Domain struct {
	lo, hi int
}

// NewDomain returns the interval [lo, hi].
func NewDomain(lo, hi int) Domain {
	return Domain{lo: clampInf(lo), hi: clampInf(hi)}
}

// Singleton returns the domain {v}.
func Singleton(v int) Domain { return NewDomain(v, v) }

// Min returns the lower bound.
func (d Domain) Min() int { return d.lo }

// Max returns the upper bound.
func (d Domain) Max() int { return d.hi }

// Empty reports whether the interval contains no value.
func (d Domain) Empty() bool { return d.lo > d.hi }

// IsSingleton reports whether the domain holds exactly one value.
func (d Domain) IsSingleton() bool { return d.lo == d.hi }

// SingletonValue returns the value of a singleton domain.
func (d Domain) SingletonValue() int { return d.lo }

// Count returns the number of values, saturating at csp.Inf.
func (d Domain) Count() int {
	if d.Empty() {
		return 0
	}
	return csp.SatAdd(csp.SatAdd(d.hi, -d.lo), 1)
}

// Has reports whether v is in the domain.
func (d Domain) Has(v int) bool { return d.lo <= v && v <= d.hi }

// RemoveAtOrAbove drops every value ≥ v.
func (d Domain) RemoveAtOrAbove(v int) Domain {
	if v-1 < d.hi {
		return Domain{lo: d.lo, hi: v - 1}
	}
	return d
}

// RemoveAtOrBelow drops every value ≤ v.
func (d Domain) RemoveAtOrBelow(v int) Domain {
	if v+1 > d.lo {
		return Domain{lo: v + 1, hi: d.hi}
	}
	return d
}

// Intersect returns d ∩ o.
func (d Domain) Intersect(o Domain) Domain {
	return Domain{lo: max(d.lo, o.lo), hi: min(d.hi, o.hi)}
}

// Equal reports whether both intervals hold the same values.
func (d Domain) Equal(o Domain) bool {
	if d.Empty() && o.Empty() {
		return true
	}
	return d == o
}

func (d Domain) String() string {
	if d.Empty() {
		return "{}"
	}
	if d.IsSingleton() {
		return fmt.Sprintf("{%d}", d.lo)
	}
	return fmt.Sprintf("[%s..%s]", bound(d.lo), bound(d.hi))
}

func bound(v int) string {
	switch {
	case v >= csp.Inf:
		return "inf"
	case v <= -csp.Inf:
		return "-inf"
	}
	return fmt.Sprint(v)
}

func clampInf(v int) int {
	if v >= csp.Inf {
		return csp.Inf
	}
	if v <= -csp.Inf {
		return -csp.Inf
	}
	return v
}
