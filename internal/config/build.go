package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/pkg/csp"
	"github.com/gitrdm/lsysinfer/pkg/fd"
	"github.com/gitrdm/lsysinfer/pkg/infer"
	"github.com/gitrdm/lsysinfer/pkg/sat"
)

// NewEngine returns the configured optimisation engine.
func (c Config) NewEngine() (csp.Engine, error) {
	switch c.Engine {
	case "fd":
		var opts []fd.OptimizeOption
		if c.FD.NodeLimit > 0 {
			opts = append(opts, fd.WithNodeLimit(c.FD.NodeLimit))
		}
		return fd.NewEngine(opts...), nil
	case "sat":
		return sat.NewEngine(sat.WithMaxWidth(c.SAT.MaxWidth), sat.WithPollInterval(c.SAT.PollInterval)), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalid, c.Engine)
}

// SolverOptions maps the structural settings onto infer options.
func (c Config) SolverOptions() ([]infer.Option, error) {
	b, err := infer.ParseBounds(c.Bounds)
	if err != nil {
		return nil, err
	}
	return []infer.Option{
		infer.WithAssembleOptions(infer.AssembleOptions{
			Bounds:       b,
			ColumnCover:  c.ColumnCover,
			RequireAxiom: c.RequireAxiom,
		}),
	}, nil
}

// RecordLayout returns the configured codec layout.
func (c Config) RecordLayout() (codec.Layout, error) {
	return codec.ParseLayout(c.Layout)
}

// NewLogger returns a logrus logger writing to w at the configured level
// and format.
func (c LogConfig) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
