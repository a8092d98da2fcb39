package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/internal/config"
	"github.com/gitrdm/lsysinfer/internal/store"
	"github.com/gitrdm/lsysinfer/internal/telemetry"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// app carries the global flags and everything derived from them.
type app struct {
	configPath string
	logLevel   string
	engine     string
	layout     string
	trace      bool

	cfg      config.Config
	log      *logrus.Logger
	shutdown telemetry.Shutdown
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "lsysinfer",
		Short:        "Infer minimal L-systems from symbol histograms",
		Long:         "lsysinfer finds the smallest axiom vector and rule matrix whose derivation\nat a given depth reproduces a symbol histogram.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown != nil {
				return a.shutdown(context.Background())
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	f.StringVar(&a.logLevel, "log-level", "", "log level (overrides the configuration)")
	f.StringVar(&a.engine, "engine", "", "optimisation engine: fd, or sat for small depths (overrides the configuration)")
	f.StringVar(&a.layout, "layout", "", "record layout: canonical or legacy (overrides the configuration)")
	f.BoolVar(&a.trace, "trace", false, "export solve spans to stderr")

	cmd.AddCommand(
		newSolveCmd(a),
		newBatchCmd(a),
		newSweepCmd(a),
		newExplainCmd(a),
		newGenerateCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and builds the
// logger and tracer provider.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.engine != "" {
		cfg.Engine = a.engine
	}
	if a.layout != "" {
		cfg.Layout = a.layout
	}
	if a.trace {
		cfg.Trace.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.shutdown, err = telemetry.Setup(cfg.Trace.Enabled, cfg.Trace.Pretty, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// solver builds a solver on a fresh engine.
func (a *app) solver(extra ...infer.Option) (*infer.Solver, error) {
	engine, err := a.cfg.NewEngine()
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.SolverOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, infer.WithLogger(a.log))
	return infer.NewSolver(engine, append(opts, extra...)...), nil
}

func (a *app) recordLayout() codec.Layout {
	// Validated in setup.
	l, _ := a.cfg.RecordLayout()
	return l
}

// timeout returns the record's budget, or the configured default when the
// record carries none.
func (a *app) timeout(req codec.Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return a.cfg.Timeout
}

// openStore opens the archive when one is configured. The returned store
// is nil otherwise.
func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Store.Path == "" {
		return nil, nil
	}
	return store.Open(a.cfg.Store.Path, a.log)
}

// archive appends records to the configured store, warning on failure.
func (a *app) archive(ctx context.Context, recs ...store.Record) {
	s, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("archive unavailable")
		return
	}
	if s == nil {
		return
	}
	defer s.Close()
	for _, r := range recs {
		if _, err := s.Append(ctx, r); err != nil {
			a.log.WithError(err).Warn("archive failed")
			return
		}
	}
}

// record builds the archive entry of one solve.
func (a *app) record(h infer.Histogram, res infer.Result) store.Record {
	return store.NewRecord(h, res, codec.Encode(res, a.recordLayout()))
}

// emit writes text to w, reporting a failed write as codec.ErrIO.
func emit(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("%w: %v", codec.ErrIO, err)
	}
	return nil
}
