package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fibonacci is the system a → ab, b → a with axiom a.
func fibonacci() Solution {
	return Solution{
		Axiom: Vector{1, 0},
		Rules: Matrix{{1, 1}, {1, 0}},
	}
}

func TestMatrixPow(t *testing.T) {
	m := fibonacci().Rules
	assert.Equal(t, Identity(2), m.Pow(0))
	assert.Equal(t, m, m.Pow(1))
	assert.Equal(t, Matrix{{2, 1}, {1, 1}}, m.Pow(2))
	assert.Equal(t, Matrix{{8, 5}, {5, 3}}, m.Pow(5))
	assert.Equal(t, m.Mul(m).Mul(m).Mul(m).Mul(m), m.Pow(5))
}

func TestDeriveMatchesPower(t *testing.T) {
	s := fibonacci()
	for depth := 1; depth <= 8; depth++ {
		assert.Equal(t, s.Axiom.Times(s.Rules.Pow(depth)), Derive(s.Axiom, s.Rules, depth), "depth %d", depth)
	}
	assert.Equal(t, Vector{13, 8}, Derive(s.Axiom, s.Rules, 6))
}

func TestSumsAndFlatten(t *testing.T) {
	m := Matrix{{1, 2}, {0, 3}}
	assert.Equal(t, 6, m.Sum())
	assert.Equal(t, []int{3, 3}, m.RowSums())
	assert.Equal(t, []int{1, 5}, m.ColSums())
	assert.Equal(t, []int{1, 2, 0, 3}, m.Flatten())
	assert.Equal(t, "[[1,2] [0,3]]", m.String())
}

func TestHistogramValidate(t *testing.T) {
	require.NoError(t, Histogram{0, 4}.Validate())
	require.ErrorIs(t, Histogram{}.Validate(), ErrConfiguration)
	require.ErrorIs(t, Histogram{1, -1}.Validate(), ErrConfiguration)
	assert.Equal(t, 5, Histogram{2, 3}.Total())
	assert.Equal(t, "2,3", Histogram{2, 3}.String())
}

func TestSolutionCost(t *testing.T) {
	s := fibonacci()
	assert.Equal(t, 4, s.Cost())
	assert.Equal(t, "v0=1,0 M=[[1,1] [1,0]] cost=4", s.String())
}

func TestVerify(t *testing.T) {
	opts := DefaultAssembleOptions()
	s := fibonacci()
	require.NoError(t, Verify(Histogram{2, 1}, 2, s, opts))
	require.NoError(t, Verify(Histogram{5, 3}, 4, s, opts))

	tests := []struct {
		name  string
		h     Histogram
		depth int
		sol   Solution
		opts  AssembleOptions
	}{
		{"wrong histogram", Histogram{2, 2}, 2, s, opts},
		{"wrong shape", Histogram{1}, 1, s, opts},
		{"empty row", Histogram{1, 0}, 1, Solution{Axiom: Vector{1, 0}, Rules: Matrix{{1, 0}, {0, 0}}}, opts},
		{"empty column", Histogram{1, 0}, 1, Solution{Axiom: Vector{1, 0}, Rules: Matrix{{1, 0}, {1, 0}}}, opts},
		{"empty axiom", Histogram{0}, 1, Solution{Axiom: Vector{0}, Rules: Matrix{{1}}}, opts},
		{"negative entry", Histogram{1}, 1, Solution{Axiom: Vector{-1}, Rules: Matrix{{-1}}}, opts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, Verify(tt.h, tt.depth, tt.sol, tt.opts), ErrInvalidSolution)
		})
	}

	loose := AssembleOptions{}
	require.NoError(t, Verify(Histogram{1, 0}, 1, Solution{Axiom: Vector{1, 0}, Rules: Matrix{{1, 0}, {1, 0}}}, loose))
	require.NoError(t, Verify(Histogram{0}, 1, Solution{Axiom: Vector{0}, Rules: Matrix{{1}}}, loose))
}
