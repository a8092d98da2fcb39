package fd

import "fmt"

// State is the domain store of one search node. Children are created with
// clone, so a State is never shared between two nodes.
type State struct {
	doms    []Domain
	changed []int
	dirty   []bool
}

func newState(m *Model) *State {
	st := &State{
		doms:  make([]Domain, len(m.vars)),
		dirty: make([]bool, len(m.vars)),
	}
	for i, v := range m.vars {
		st.doms[i] = v.domain
	}
	return st
}

func (st *State) clone() *State {
	doms := make([]Domain, len(st.doms))
	copy(doms, st.doms)
	return &State{doms: doms, dirty: make([]bool, len(st.doms))}
}

// Domain returns the current domain of variable id.
func (st *State) Domain(id int) Domain { return st.doms[id] }

// Narrow intersects the domain of id with d.
func (st *State) Narrow(id int, d Domain) error {
	cur := st.doms[id]
	next := cur.Intersect(d)
	if next.Empty() {
		return fmt.Errorf("%w: %s ∩ %s", ErrInconsistent, cur, d)
	}
	if next == cur {
		return nil
	}
	st.doms[id] = next
	if !st.dirty[id] {
		st.dirty[id] = true
		st.changed = append(st.changed, id)
	}
	return nil
}

// SetMin raises the lower bound of id to v.
func (st *State) SetMin(id, v int) error {
	if v <= st.doms[id].lo {
		return nil
	}
	return st.Narrow(id, Domain{lo: v, hi: st.doms[id].hi})
}

// SetMax lowers the upper bound of id to v.
func (st *State) SetMax(id, v int) error {
	if v >= st.doms[id].hi {
		return nil
	}
	return st.Narrow(id, Domain{lo: st.doms[id].lo, hi: v})
}

// Assign fixes id to v.
func (st *State) Assign(id, v int) error {
	return st.Narrow(id, Singleton(v))
}

func (st *State) drainChanged() []int {
	out := st.changed
	for _, id := range out {
		st.dirty[id] = false
	}
	st.changed = nil
	return out
}

func (st *State) values() []int {
	out := make([]int, len(st.doms))
	for i, d := range st.doms {
		out[i] = d.lo
	}
	return out
}
