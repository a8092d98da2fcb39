package codec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/lsysinfer/pkg/infer"
)

func TestReadRequest(t *testing.T) {
	req, err := ReadRequest(strings.NewReader("30,3,5, 3\n"), Canonical)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, req.Timeout)
	assert.Equal(t, 3, req.Depth)
	assert.Equal(t, infer.Histogram{5, 3}, req.Histogram)
	assert.Equal(t, "30,3,5,3", req.String())

	req, err = ReadRequest(strings.NewReader("2,1,1,1"), Legacy)
	require.NoError(t, err)
	assert.Zero(t, req.Timeout)
	assert.Equal(t, 2, req.Depth)
	assert.Equal(t, infer.Histogram{1, 1, 1}, req.Histogram)
}

func TestReadRequests(t *testing.T) {
	reqs, err := ReadRequests(strings.NewReader("10,1,3\n\n0,2,2,1\n"), Canonical)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, infer.Histogram{2, 1}, reqs[1].Histogram)

	_, err = ReadRequests(strings.NewReader("10,1,3\n0,0,1\n"), Canonical)
	require.ErrorIs(t, err, infer.ErrConfiguration)
	assert.Contains(t, err.Error(), "record 2")

	_, err = ReadRequests(strings.NewReader(""), Canonical)
	require.ErrorIs(t, err, infer.ErrConfiguration)
}

func TestReadRequestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		record string
		layout Layout
	}{
		{"empty", "", Canonical},
		{"no histogram", "10,2", Canonical},
		{"legacy no histogram", "2", Legacy},
		{"not a number", "10,x,1", Canonical},
		{"depth zero", "10,0,1", Canonical},
		{"negative count", "10,1,1,-1", Canonical},
		{"negative timeout", "-1,1,1", Canonical},
		{"timeout overflows", "9300000000,1,1", Canonical},
		{"bad quoting", "1,\"2,3", Canonical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRequest(strings.NewReader(tt.record), tt.layout)
			require.ErrorIs(t, err, infer.ErrConfiguration)
		})
	}
}

func optimal() infer.Result {
	return infer.Result{
		Status: infer.OptimalFound,
		Solution: &infer.Solution{
			Axiom: infer.Vector{1, 0},
			Rules: infer.Matrix{{1, 1}, {1, 0}},
		},
		Cost: 4,
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "3,1,0,1,1,1,0", Encode(optimal(), Canonical))
	assert.Equal(t, "1,1,0,1,1,1,0", Encode(optimal(), Legacy))
	assert.Equal(t, "0", Encode(infer.Result{Status: infer.Infeasible}, Canonical))

	// An incumbent is never serialised.
	timedOut := infer.Result{Status: infer.TimedOut, Incumbent: optimal().Solution}
	assert.Equal(t, "2", Encode(timedOut, Canonical))
	assert.Equal(t, "0", Encode(timedOut, Legacy))
}

func TestEncodeIdempotent(t *testing.T) {
	h := infer.Histogram{5, 3}
	asm, err := infer.Assemble(h, 4, infer.DefaultAssembleOptions())
	require.NoError(t, err)

	values := asm.Encode(*optimal().Solution)
	sol, err := asm.Decode(values)
	require.NoError(t, err)
	first := Encode(infer.Result{Status: infer.OptimalFound, Solution: &sol}, Canonical)

	again, err := asm.Decode(asm.Encode(sol))
	require.NoError(t, err)
	second := Encode(infer.Result{Status: infer.OptimalFound, Solution: &again}, Canonical)
	assert.Equal(t, first, second)
	assert.Equal(t, Encode(optimal(), Canonical), first)
}

func TestParseResultRoundTrip(t *testing.T) {
	for _, layout := range []Layout{Canonical, Legacy} {
		status, sol, err := ParseResult(Encode(optimal(), layout), 2, layout)
		require.NoError(t, err)
		assert.Equal(t, infer.OptimalFound, status)
		assert.Equal(t, *optimal().Solution, *sol)
	}

	status, sol, err := ParseResult("2", 2, Canonical)
	require.NoError(t, err)
	assert.Equal(t, infer.TimedOut, status)
	assert.Nil(t, sol)

	_, _, err = ParseResult("3,1,0", 2, Canonical)
	require.ErrorIs(t, err, infer.ErrConfiguration)
	_, _, err = ParseResult("2", 2, Legacy)
	require.ErrorIs(t, err, infer.ErrConfiguration)
	_, _, err = ParseResult("0,1", 2, Canonical)
	require.ErrorIs(t, err, infer.ErrConfiguration)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailures(t *testing.T) {
	err := Write(brokenWriter{}, optimal(), Canonical)
	require.ErrorIs(t, err, ErrIO)

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "out"), optimal(), Canonical)
	require.ErrorIs(t, err, ErrIO)

	_, err = ReadRequestFile(filepath.Join(t.TempDir(), "absent"), Canonical)
	require.ErrorIs(t, err, ErrIO)
}

func TestFileExchange(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "inData")
	out := filepath.Join(dir, "outData")
	require.NoError(t, os.WriteFile(in, []byte("5,2,2,1"), 0o644))

	req, err := ReadRequestFile(in, Canonical)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Depth)

	require.NoError(t, WriteFile(out, optimal(), Canonical))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "3,1,0,1,1,1,0", string(data))
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("Legacy")
	require.NoError(t, err)
	assert.Equal(t, Legacy, l)
	_, err = ParseLayout("binary")
	require.ErrorIs(t, err, infer.ErrConfiguration)
}
