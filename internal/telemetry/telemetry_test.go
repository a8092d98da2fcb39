package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/lsysinfer/pkg/fd"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

func TestProviderExportsSolveSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(false, &buf)
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := infer.NewSolver(fd.NewEngine(), infer.WithLogger(log), infer.WithTracer(tp.Tracer("test")))
	res, err := s.Solve(context.Background(), infer.Histogram{3}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, infer.OptimalFound, res.Status)

	require.NoError(t, tp.Shutdown(context.Background()))
	out := buf.String()
	for _, name := range []string{"infer.Solve", "infer.Assemble", "infer.Submit", "infer.Decode"} {
		assert.Contains(t, out, `"Name":"`+name+`"`)
	}
	assert.Contains(t, out, ServiceName)
}

func TestSetupDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(false, false, &buf)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}
