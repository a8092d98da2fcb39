package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

func TestHandleString(t *testing.T) {
	assert.Equal(t, "M", BaseMatrix().String())
	assert.Equal(t, BaseMatrix(), PowerOf(1))
	assert.Equal(t, "M^4", PowerOf(4).String())
	assert.Equal(t, "v0", AxiomVector().String())
	assert.Equal(t, "v7", FinalVector(7).String())
	assert.True(t, PowerOf(2).IsMatrix())
	assert.False(t, FinalVector(2).IsMatrix())
}

func TestBuilderDeclare(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Declare(BaseMatrix(), 0, 5, false))
	require.NoError(t, b.Declare(AxiomVector(), 0, 5, false))
	require.Error(t, b.Declare(BaseMatrix(), 0, 5, false))

	assert.Len(t, b.Vars(BaseMatrix()), 4)
	assert.Len(t, b.Vars(AxiomVector()), 2)
	assert.Equal(t, []Handle{BaseMatrix(), AxiomVector()}, b.Handles())

	v := b.Problem().Var(b.Cell(BaseMatrix(), 1, 0))
	assert.Equal(t, "M[2][1]", v.Name)
	assert.Equal(t, 5, v.Hi)
	assert.False(t, v.Derived)
	assert.Equal(t, "v0[2]", b.Problem().Var(b.Entry(AxiomVector(), 1)).Name)
	assert.Nil(t, b.Vars(PowerOf(2)))
}

func TestMulMatrixConstraints(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Declare(BaseMatrix(), 0, 3, false))
	require.NoError(t, b.MulMatrix(BaseMatrix(), BaseMatrix(), PowerOf(2)))

	p := b.Problem()
	assert.Len(t, p.Constraints(), 4)
	assert.Equal(t, 2*3*3, b.Bound(PowerOf(2)))
	assert.True(t, p.Var(b.Cell(PowerOf(2), 0, 0)).Derived)

	// Any assignment where M² is the true square satisfies every cell.
	m := Matrix{{1, 2}, {3, 0}}
	sq := m.Pow(2)
	values := make([]int, p.NumVars())
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			values[b.Cell(BaseMatrix(), r, c)] = m[r][c]
			values[b.Cell(PowerOf(2), r, c)] = sq[r][c]
		}
	}
	require.NoError(t, p.Check(values))
	values[b.Cell(PowerOf(2), 1, 1)]++
	require.ErrorIs(t, p.Check(values), csp.ErrViolated)
}

func TestMulErrors(t *testing.T) {
	b := NewBuilder(2)
	require.ErrorIs(t, b.MulMatrix(BaseMatrix(), BaseMatrix(), PowerOf(2)), ErrUndefined)
	require.NoError(t, b.Declare(BaseMatrix(), 0, 3, false))
	require.ErrorIs(t, b.MulVector(AxiomVector(), BaseMatrix(), FinalVector(1)), ErrUndefined)
	require.NoError(t, b.Declare(AxiomVector(), 0, 3, false))
	require.Error(t, b.MulVector(AxiomVector(), BaseMatrix(), PowerOf(3)))
	require.Error(t, b.MulMatrix(BaseMatrix(), BaseMatrix(), FinalVector(2)))
	require.NoError(t, b.MulVector(AxiomVector(), BaseMatrix(), FinalVector(1)))
	assert.Equal(t, 2*3*3, b.Bound(FinalVector(1)))
}

func TestPowerChain(t *testing.T) {
	tests := []struct {
		p    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{2, []int{1, 2}},
		{3, []int{1, 2, 3}},
		{4, []int{1, 2, 4}},
		{7, []int{1, 2, 3, 6, 7}},
		{8, []int{1, 2, 4, 8}},
		{13, []int{1, 2, 3, 6, 12, 13}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PowerChain(tt.p), "p=%d", tt.p)
	}
}

func TestPowerDefinesEachExponentOnce(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Declare(BaseMatrix(), 0, 2, false))
	top, err := b.Power(7)
	require.NoError(t, err)
	assert.Equal(t, PowerOf(7), top)

	var exps []int
	for _, h := range b.Handles() {
		exps = append(exps, h.Exp)
	}
	assert.Equal(t, []int{1, 2, 3, 6, 7}, exps)
	// four products of N² cells each
	assert.Len(t, b.Problem().Constraints(), 4*4)

	// A second request reuses what is already there.
	before := len(b.Problem().Constraints())
	_, err = b.Power(6)
	require.NoError(t, err)
	assert.Len(t, b.Problem().Constraints(), before)

	_, err = b.Power(14)
	require.NoError(t, err)
	assert.Len(t, b.Problem().Constraints(), before+4)
}

func TestPowerErrors(t *testing.T) {
	b := NewBuilder(1)
	_, err := b.Power(2)
	require.ErrorIs(t, err, ErrUndefined)
	require.NoError(t, b.Declare(BaseMatrix(), 0, 1, false))
	_, err = b.Power(0)
	require.ErrorIs(t, err, ErrConfiguration)
	top, err := b.Power(1)
	require.NoError(t, err)
	assert.Equal(t, BaseMatrix(), top)
	assert.Empty(t, b.Problem().Constraints())
}
