package fd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// Minimize a single variable's value without additional constraints.
func TestSolveOptimal_MinimizeIdentity(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(1, 10))

	solver := NewSolver(model)
	sol, obj, err := solver.SolveOptimal(context.Background(), x, true)
	if err != nil {
		t.Fatalf("SolveOptimal error: %v", err)
	}
	if sol == nil {
		t.Fatalf("expected a solution, got nil")
	}
	if obj != 1 {
		t.Fatalf("expected objective 1, got %d", obj)
	}
}

// Minimize a LinearSum total: x + 2*y = T, minimize T.
func TestSolveOptimal_LinearSumMinimize(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(1, 3))
	y := model.NewVariable(NewDomain(1, 3))
	tvar := model.NewVariable(NewDomain(0, 20))
	model.SetBranching(tvar, false)

	ls, err := NewLinearSum([]*Variable{x, y}, []int{1, 2}, tvar)
	if err != nil {
		t.Fatalf("NewLinearSum error: %v", err)
	}
	model.AddConstraint(ls)

	sol, obj, err := NewSolver(model).SolveOptimal(context.Background(), tvar, true)
	if err != nil {
		t.Fatalf("SolveOptimal error: %v", err)
	}
	if sol == nil {
		t.Fatalf("expected a solution")
	}
	if obj != 3 {
		t.Fatalf("expected objective 3, got %d", obj)
	}
}

func TestSolveOptimal_Maximize(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 5))
	y := model.NewVariable(NewDomain(0, 5))
	tvar := model.NewVariable(NewDomain(0, 100))
	model.SetBranching(tvar, false)
	ls, _ := NewLinearSum([]*Variable{x, y}, []int{2, 3}, tvar)
	model.AddConstraint(ls)
	// x + y <= 6
	limit, _ := NewLinear([]*Variable{x, y}, []int{1, 1}, -6, csp.Le)
	model.AddConstraint(limit)

	_, obj, err := NewSolver(model).SolveOptimal(context.Background(), tvar, false)
	if err != nil {
		t.Fatalf("SolveOptimal error: %v", err)
	}
	// y=5, x=1 → 17
	if obj != 17 {
		t.Fatalf("expected objective 17, got %d", obj)
	}
}

func TestSolveOptimal_Infeasible(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 3))
	y := model.NewVariable(NewDomain(0, 3))
	// x + y >= 7 cannot hold
	c, _ := NewLinear([]*Variable{x, y}, []int{1, 1}, -7, csp.Ge)
	model.AddConstraint(c)

	sol, _, err := NewSolver(model).SolveOptimal(context.Background(), x, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol != nil {
		t.Fatalf("expected nil solution, got %v", sol)
	}
}

// Infeasibility that only shows up during search: x*y = 7 with x,y in 2..6.
func TestSolveOptimal_InfeasibleAfterSearch(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(2, 6))
	y := model.NewVariable(NewDomain(2, 6))
	z := model.NewVariable(NewDomain(7, 7))
	p, _ := NewProduct(x, y, z)
	model.AddConstraint(p)

	sol, _, err := NewSolver(model).SolveOptimal(context.Background(), x, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol != nil {
		t.Fatalf("expected nil solution, got %v", sol)
	}
}

func TestSolveOptimal_NodeLimit(t *testing.T) {
	model := NewModel()
	vars := make([]*Variable, 8)
	for i := range vars {
		vars[i] = model.NewVariable(NewDomain(0, 9))
	}
	total := model.NewVariable(NewDomain(0, 1000))
	model.SetBranching(total, false)
	coeffs := []int{-1, -2, -3, -4, -5, -6, -7, -8}
	ls, _ := NewLinear(append(append([]*Variable{}, vars...), total), append(coeffs, 1), 300, csp.Eq)
	model.AddConstraint(ls)

	_, _, err := NewSolver(model).SolveOptimalWithOptions(context.Background(), total, true, WithNodeLimit(5))
	if !errors.Is(err, ErrSearchLimitReached) {
		t.Fatalf("expected ErrSearchLimitReached, got %v", err)
	}
}

func TestSolveOptimal_TimeLimitReturnsIncumbent(t *testing.T) {
	model := NewModel()
	vars := make([]*Variable, 30)
	for i := range vars {
		vars[i] = model.NewVariable(NewDomain(0, 30))
	}
	// Σ x_i >= 1, minimise Σ (31 - i)·x_i. The first incumbent arrives
	// immediately; proving it optimal takes a sweep over the stack.
	cover, _ := NewLinear(vars, ones(len(vars)), -1, csp.Ge)
	model.AddConstraint(cover)
	obj := model.NewVariable(NewDomain(0, csp.Inf))
	model.SetBranching(obj, false)
	coeffs := make([]int, len(vars))
	for i := range coeffs {
		coeffs[i] = 31 - i
	}
	ls, _ := NewLinearSum(vars, coeffs, obj)
	model.AddConstraint(ls)

	sol, best, err := NewSolver(model).SolveOptimalWithOptions(context.Background(), obj, true,
		WithTimeLimit(time.Second))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol == nil {
		t.Fatalf("expected an incumbent")
	}
	if err == nil && best != 2 {
		t.Fatalf("expected proven optimum 2, got %d", best)
	}
}

func TestSolveOptimal_TargetObjective(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 10))
	y := model.NewVariable(NewDomain(0, 10))
	tvar := model.NewVariable(NewDomain(0, 20))
	model.SetBranching(tvar, false)
	ls, _ := NewLinearSum([]*Variable{x, y}, []int{1, 1}, tvar)
	model.AddConstraint(ls)

	var seen []int
	_, best, err := NewSolver(model).SolveOptimalWithOptions(context.Background(), tvar, false,
		WithTargetObjective(20),
		WithIncumbentCallback(func(_ []int, obj int) { seen = append(seen, obj) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best != 20 {
		t.Fatalf("expected 20, got %d", best)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("incumbents not improving: %v", seen)
		}
	}
}

func TestSolveOptimal_CancelledContext(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 10))
	y := model.NewVariable(NewDomain(0, 10))
	tvar := model.NewVariable(NewDomain(0, 20))
	ls, _ := NewLinearSum([]*Variable{x, y}, []int{1, 1}, tvar)
	model.AddConstraint(ls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewSolver(model).SolveOptimal(ctx, tvar, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSolverMonitor_CountsSearch(t *testing.T) {
	model := NewModel()
	x := model.NewVariable(NewDomain(0, 3))
	y := model.NewVariable(NewDomain(0, 3))
	c, _ := NewLinear([]*Variable{x, y}, []int{1, 1}, -3, csp.Eq)
	model.AddConstraint(c)

	solver := NewSolver(model)
	sols, err := solver.Solve(context.Background(), 0)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if len(sols) != 4 {
		t.Fatalf("expected 4 solutions, got %d", len(sols))
	}
	stats := solver.GetMonitor().GetStats()
	if stats.SolutionsFound != 4 || stats.NodesExplored == 0 || stats.PropagationCount == 0 {
		t.Fatalf("unexpected stats: %s", stats)
	}
}

func ones(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
