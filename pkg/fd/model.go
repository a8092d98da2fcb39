package fd

import (
	"errors"
	"fmt"
)

// Variable is a model variable. Its Domain is the initial domain; the
// current domain during search lives in a State.
type Variable struct {
	id     int
	name   string
	domain Domain
	branch bool
}

// ID returns the variable's index in its model.
func (v *Variable) ID() int { return v.id }

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Domain returns the initial domain.
func (v *Variable) Domain() Domain { return v.domain }

// Branching reports whether search selects this variable before the
// non-branching ones.
func (v *Variable) Branching() bool { return v.branch }

func (v *Variable) String() string {
	return fmt.Sprintf("%s%s", v.name, v.domain)
}

// Constraint is a propagator over model variables.
//
// Propagate narrows domains in st to a sound over-approximation of the
// constraint's solutions and returns ErrInconsistent (possibly wrapped) when
// no solution remains. It must be monotone: narrowing the input may only
// narrow the output.
type Constraint interface {
	Variables() []*Variable
	Type() string
	String() string
	Propagate(st *State) error
}

// Model holds variables and constraints. Build it single-threaded, then hand
// it to a Solver.
type Model struct {
	vars        []*Variable
	constraints []Constraint
	watchers    [][]int
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewVariable adds a branching variable with the given domain.
func (m *Model) NewVariable(d Domain) *Variable {
	return m.NewVariableWithName(d, fmt.Sprintf("v%d", len(m.vars)))
}

// NewVariableWithName adds a named branching variable.
func (m *Model) NewVariableWithName(d Domain, name string) *Variable {
	v := &Variable{id: len(m.vars), name: name, domain: d, branch: true}
	m.vars = append(m.vars, v)
	m.watchers = append(m.watchers, nil)
	return v
}

// SetBranching marks v as a search decision (true) or as a variable that
// propagation is expected to fix (false). Non-branching variables are still
// labelled when nothing else is left.
func (m *Model) SetBranching(v *Variable, branch bool) {
	v.branch = branch
}

// AddConstraint posts c and subscribes it to its variables.
func (m *Model) AddConstraint(c Constraint) error {
	if c == nil {
		return errors.New("fd: nil constraint")
	}
	vars := c.Variables()
	for _, v := range vars {
		if v == nil || v.id >= len(m.vars) || m.vars[v.id] != v {
			return fmt.Errorf("fd: %s references a variable outside the model", c.Type())
		}
	}
	idx := len(m.constraints)
	m.constraints = append(m.constraints, c)
	seen := make(map[int]bool, len(vars))
	for _, v := range vars {
		if !seen[v.id] {
			seen[v.id] = true
			m.watchers[v.id] = append(m.watchers[v.id], idx)
		}
	}
	return nil
}

// Variables returns the model variables in creation order.
func (m *Model) Variables() []*Variable { return m.vars }

// VariableCount returns the number of variables.
func (m *Model) VariableCount() int { return len(m.vars) }

// Constraints returns the posted constraints.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Validate checks that every initial domain is non-empty.
func (m *Model) Validate() error {
	for _, v := range m.vars {
		if v.domain.Empty() {
			return fmt.Errorf("fd: variable %s has an empty domain", v.name)
		}
	}
	return nil
}

func (m *Model) String() string {
	return fmt.Sprintf("Model{vars: %d, constraints: %d}", len(m.vars), len(m.constraints))
}
