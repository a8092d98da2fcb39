package infer

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/lsysinfer/pkg/csp"
	"github.com/gitrdm/lsysinfer/pkg/fd"
	"github.com/gitrdm/lsysinfer/pkg/sat"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestSolver(engine csp.Engine, opts ...Option) *Solver {
	return NewSolver(engine, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []Status
	engines  []string
}

func (o *recordingObserver) ObserveSolve(engine string, _, _ int, status Status, _ time.Duration, _ csp.Stats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
	o.engines = append(o.engines, engine)
}

func TestSolveSingleSymbol(t *testing.T) {
	s := newTestSolver(fd.NewEngine())
	res, err := s.Solve(context.Background(), Histogram{3}, 1, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, OptimalFound, res.Status)
	require.NotNil(t, res.Solution)
	assert.Equal(t, 4, res.Cost)
	assert.Equal(t, 4, res.Solution.Cost())
	require.NoError(t, Verify(Histogram{3}, 1, *res.Solution, s.Options()))
	assert.Nil(t, res.Incumbent)
	assert.Equal(t, "fd", res.Engine)
}

func TestSolveIdentityRule(t *testing.T) {
	s := newTestSolver(fd.NewEngine())
	res, err := s.Solve(context.Background(), Histogram{1}, 2, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, OptimalFound, res.Status)
	assert.Equal(t, Solution{Axiom: Vector{1}, Rules: Matrix{{1}}}, *res.Solution)
	assert.Equal(t, 2, res.Cost)
}

func TestSolveEmptyTargetInfeasible(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSolver(fd.NewEngine(), WithObserver(obs))
	res, err := s.Solve(context.Background(), Histogram{0}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, Infeasible, res.Status)
	assert.Nil(t, res.Solution)
	assert.Equal(t, []Status{Infeasible}, obs.statuses)
}

func TestSolveEmptyTargetWithoutAxiomRequirement(t *testing.T) {
	s := newTestSolver(fd.NewEngine(), WithRequireAxiom(false))
	res, err := s.Solve(context.Background(), Histogram{0}, 1, 0)
	require.NoError(t, err)
	require.Equal(t, OptimalFound, res.Status)
	assert.Equal(t, 1, res.Cost)
}

func TestSolveConfigurationError(t *testing.T) {
	s := newTestSolver(fd.NewEngine())
	_, err := s.Solve(context.Background(), Histogram{}, 1, time.Second)
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = s.Solve(context.Background(), Histogram{1}, 0, time.Second)
	require.ErrorIs(t, err, ErrConfiguration)
}

// randomSystem returns a system whose rows and columns are all active.
func randomSystem(r *rand.Rand, n, maxEntry int) Solution {
	for {
		s := Solution{Axiom: make(Vector, n), Rules: NewMatrix(n)}
		s.Axiom[r.Intn(n)] = 1 + r.Intn(maxEntry)
		for i := range s.Rules {
			for j := range s.Rules[i] {
				if r.Intn(2) == 0 {
					s.Rules[i][j] = r.Intn(maxEntry + 1)
				}
			}
		}
		if Verify(Histogram(Derive(s.Axiom, s.Rules, 1)), 1, s, DefaultAssembleOptions()) == nil {
			return s
		}
	}
}

func TestSolveTimesOut(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	sys := randomSystem(r, 6, 2)
	h := Histogram(Derive(sys.Axiom, sys.Rules, 4))

	s := newTestSolver(fd.NewEngine())
	res, err := s.Solve(context.Background(), h, 4, time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.Status)
	assert.Nil(t, res.Solution)
}

func TestSolveTimesOutOnSAT(t *testing.T) {
	h := Histogram{16, 0, 0, 0, 0, 0}
	s := newTestSolver(sat.NewEngine())
	for _, budget := range []time.Duration{time.Nanosecond, 10 * time.Millisecond} {
		start := time.Now()
		res, err := s.Solve(context.Background(), h, 4, budget)
		wall := time.Since(start)
		require.NoError(t, err, "budget %v", budget)
		assert.Equal(t, TimedOut, res.Status, "budget %v", budget)
		assert.Less(t, wall, 250*time.Millisecond, "budget %v", budget)
	}
}

func TestSolveWrapsEngineErrors(t *testing.T) {
	s := newTestSolver(sat.NewEngine())
	_, err := s.Solve(context.Background(), Histogram{7, 9, 4}, 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorIs(t, err, sat.ErrTooWide)
	assert.NotContains(t, err.Error(), "sat: sat:")
}

func TestSolveReportsIncumbents(t *testing.T) {
	h := Histogram(Derive(fibonacci().Axiom, fibonacci().Rules, 3))
	var incumbents int
	engine := fd.NewEngine(fd.WithNodeLimit(1_000_000), fd.WithIncumbentCallback(func([]int, int) { incumbents++ }))
	s := newTestSolver(engine)
	res, err := s.Solve(context.Background(), h, 3, 0)
	require.NoError(t, err)
	require.Equal(t, OptimalFound, res.Status)
	assert.Positive(t, incumbents)
}

func TestSolveRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("searches several random systems")
	}
	r := rand.New(rand.NewSource(11))
	s := newTestSolver(fd.NewEngine())
	for i := 0; i < 6; i++ {
		sys := randomSystem(r, 2, 2)
		depth := 1 + r.Intn(3)
		h := Histogram(Derive(sys.Axiom, sys.Rules, depth))

		res, err := s.Solve(context.Background(), h, depth, 20*time.Second)
		require.NoError(t, err)
		require.Equal(t, OptimalFound, res.Status, "system %s depth %d", sys, depth)
		assert.LessOrEqual(t, res.Cost, sys.Cost())
		assert.Equal(t, []int(h), []int(Derive(res.Solution.Axiom, res.Solution.Rules, depth)))
	}
}

func TestSolveMinimalAgainstExhaustive(t *testing.T) {
	if testing.Short() {
		t.Skip("brute force reference")
	}
	cases := []struct {
		h     Histogram
		depth int
	}{
		{Histogram{2, 1}, 2},
		{Histogram{3, 2}, 3},
		{Histogram{2, 2}, 1},
		{Histogram{4, 1}, 2},
		{Histogram{1, 1, 1}, 1},
		{Histogram{2}, 2},
	}
	s := newTestSolver(fd.NewEngine())
	for _, tc := range cases {
		res, err := s.Solve(context.Background(), tc.h, tc.depth, 30*time.Second)
		require.NoError(t, err)
		ref, ok, err := Exhaustive(context.Background(), tc.h, tc.depth, s.Options(), max(res.Cost, 12))
		require.NoError(t, err)
		if res.Status == Infeasible {
			assert.False(t, ok, "%v depth %d", tc.h, tc.depth)
			continue
		}
		require.Equal(t, OptimalFound, res.Status)
		require.True(t, ok)
		assert.Equal(t, ref.Cost(), res.Cost, "%v depth %d", tc.h, tc.depth)
	}
}

func TestSolveBoundPolicies(t *testing.T) {
	if testing.Short() {
		t.Skip("solves every case twice")
	}
	cases := []struct {
		h     Histogram
		depth int
	}{
		{Histogram{2, 1}, 2},
		{Histogram{3, 2}, 3},
		{Histogram{2, 2}, 1},
		{Histogram{4, 1}, 2},
	}
	canonical := newTestSolver(fd.NewEngine())
	narrow := newTestSolver(fd.NewEngine(), WithBounds(HistogramBounds))
	for _, tc := range cases {
		a, err := canonical.Solve(context.Background(), tc.h, tc.depth, 30*time.Second)
		require.NoError(t, err)
		b, err := narrow.Solve(context.Background(), tc.h, tc.depth, 30*time.Second)
		require.NoError(t, err)
		if b.Status != OptimalFound {
			continue
		}
		require.Equal(t, OptimalFound, a.Status)
		assert.GreaterOrEqual(t, b.Cost, a.Cost, "%v depth %d", tc.h, tc.depth)
		assert.True(t, withinHistogram(tc.h, *b.Solution))
		if withinHistogram(tc.h, *a.Solution) {
			assert.Equal(t, a.Cost, b.Cost, "%v depth %d", tc.h, tc.depth)
		}
	}
}

func TestSolveEnginesAgree(t *testing.T) {
	cases := []struct {
		h     Histogram
		depth int
	}{
		{Histogram{3}, 1},
		{Histogram{1}, 2},
		{Histogram{0}, 1},
		{Histogram{2, 1}, 2},
	}
	obs := &recordingObserver{}
	fdSolver := newTestSolver(fd.NewEngine(), WithObserver(obs))
	satSolver := newTestSolver(sat.NewEngine(), WithObserver(obs))
	for _, tc := range cases {
		a, err := fdSolver.Solve(context.Background(), tc.h, tc.depth, 20*time.Second)
		require.NoError(t, err)
		b, err := satSolver.Solve(context.Background(), tc.h, tc.depth, 20*time.Second)
		require.NoError(t, err)
		assert.Equal(t, a.Status, b.Status, "%v depth %d", tc.h, tc.depth)
		assert.Equal(t, a.Cost, b.Cost, "%v depth %d", tc.h, tc.depth)
		if b.Solution != nil {
			require.NoError(t, Verify(tc.h, tc.depth, *b.Solution, satSolver.Options()))
		}
	}
	assert.Len(t, obs.engines, 2*len(cases))
}

type failingEngine struct{}

func (failingEngine) Name() string { return "broken" }

func (failingEngine) Minimize(context.Context, *csp.Problem, time.Duration) (csp.Outcome, error) {
	return csp.Outcome{Status: csp.Optimal, Values: []int{}}, nil
}

func TestSolveRejectsBadAssignment(t *testing.T) {
	s := newTestSolver(failingEngine{})
	_, err := s.Solve(context.Background(), Histogram{1}, 1, time.Second)
	require.ErrorIs(t, err, ErrEngine)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "infeasible", Infeasible.String())
	assert.Equal(t, "timed-out", TimedOut.String())
	assert.Equal(t, "optimal", OptimalFound.String())
	assert.Equal(t, 3, int(OptimalFound))
	assert.Equal(t, 2, int(TimedOut))
}
