package fd

import (
	"errors"
	"testing"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

func TestDomain_Basics(t *testing.T) {
	d := NewDomain(2, 6)
	if d.Min() != 2 || d.Max() != 6 || d.Count() != 5 {
		t.Fatalf("unexpected domain %s", d)
	}
	if !d.Has(4) || d.Has(7) {
		t.Fatalf("membership wrong for %s", d)
	}
	if d.IsSingleton() || !Singleton(3).IsSingleton() {
		t.Fatalf("singleton detection wrong")
	}
	if got := d.RemoveAtOrAbove(4); got.Max() != 3 {
		t.Fatalf("RemoveAtOrAbove(4) = %s", got)
	}
	if got := d.RemoveAtOrBelow(4); got.Min() != 5 {
		t.Fatalf("RemoveAtOrBelow(4) = %s", got)
	}
	if !d.Intersect(NewDomain(7, 9)).Empty() {
		t.Fatalf("disjoint intersection should be empty")
	}
	if !NewDomain(3, 1).Equal(NewDomain(9, 2)) {
		t.Fatalf("empty domains should compare equal")
	}
}

func TestDomain_Saturates(t *testing.T) {
	d := NewDomain(0, csp.Inf+5)
	if d.Max() != csp.Inf {
		t.Fatalf("upper bound not clamped: %s", d)
	}
	if d.Count() != csp.Inf {
		t.Fatalf("count should saturate, got %d", d.Count())
	}
	if d.String() != "[0..inf]" {
		t.Fatalf("unexpected rendering %q", d.String())
	}
}

func TestState_NarrowTracksChanges(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 9))
	st := newState(model)

	if err := st.SetMin(x.ID(), 3); err != nil {
		t.Fatalf("SetMin: %v", err)
	}
	if err := st.SetMax(x.ID(), 5); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if changed := st.drainChanged(); len(changed) != 1 || changed[0] != x.ID() {
		t.Fatalf("expected one change for x, got %v", changed)
	}
	if err := st.SetMin(x.ID(), 6); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	child := st.clone()
	if err := child.Assign(x.ID(), 4); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if st.Domain(x.ID()).IsSingleton() {
		t.Fatalf("clone shares domains with parent")
	}
}

func TestModel_AddConstraintRejectsForeignVariables(t *testing.T) {
	a, b := NewModel(), NewModel()
	x := a.NewVariable(NewDomain(0, 1))
	y := b.NewVariable(NewDomain(0, 1))
	b.NewVariable(NewDomain(0, 1))
	lin, _ := NewLinear([]*Variable{x, y}, []int{1, 1}, 0, csp.Eq)
	if err := b.AddConstraint(lin); err == nil {
		t.Fatalf("expected error for variable from another model")
	}
	if err := a.AddConstraint(nil); err == nil {
		t.Fatalf("expected error for nil constraint")
	}
}
