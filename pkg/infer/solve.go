package infer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/lsysinfer/pkg/csp"
)

// Status is the outcome of one solve.
type Status int

const (
	// Infeasible means no system explains the histogram at this depth.
	Infeasible Status = 0
	// TimedOut means the budget ran out before a definitive answer.
	TimedOut Status = 2
	// OptimalFound means a cost-minimal system was found.
	OptimalFound Status = 3
)

func (s Status) String() string {
	switch s {
	case Infeasible:
		return "infeasible"
	case TimedOut:
		return "timed-out"
	case OptimalFound:
		return "optimal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	// ErrInvalidSolution is returned by Verify.
	ErrInvalidSolution = errors.New("infer: solution does not explain histogram")
	// ErrEngine wraps failures of the optimisation engine, including
	// assignments that do not satisfy the assembled problem.
	ErrEngine = errors.New("infer: engine failure")
)

// Result is the outcome of Solver.Solve.
type Result struct {
	Status Status
	// Solution is set only when Status is OptimalFound.
	Solution *Solution
	// Incumbent is the best system found before a timeout, if any. It is
	// not proven minimal.
	Incumbent *Solution
	Cost      int
	Depth     int
	Engine    string
	Elapsed   time.Duration
	Stats     csp.Stats
}

// Observer receives one notification per completed solve.
type Observer interface {
	ObserveSolve(engine string, symbols, depth int, status Status, elapsed time.Duration, stats csp.Stats)
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracer sets the tracer used for solve spans. The default comes from
// the global otel TracerProvider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithObserver registers o to be notified after every solve.
func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observer = o }
}

// WithAssembleOptions replaces the structural constraints.
func WithAssembleOptions(o AssembleOptions) Option {
	return func(s *Solver) { s.opts = o }
}

// WithBounds sets the bound policy.
func WithBounds(b Bounds) Option {
	return func(s *Solver) { s.opts.Bounds = b }
}

// WithColumnCover toggles the column activity constraint.
func WithColumnCover(on bool) Option {
	return func(s *Solver) { s.opts.ColumnCover = on }
}

// WithRequireAxiom toggles the non-empty axiom constraint.
func WithRequireAxiom(on bool) Option {
	return func(s *Solver) { s.opts.RequireAxiom = on }
}

// Solver runs the assemble, submit, decode pipeline against an engine. A
// Solver holds no per-solve state and may be reused; every call to Solve
// builds a fresh assembly.
type Solver struct {
	engine   csp.Engine
	log      logrus.FieldLogger
	tracer   trace.Tracer
	observer Observer
	opts     AssembleOptions
}

// NewSolver returns a solver that submits problems to engine.
func NewSolver(engine csp.Engine, opts ...Option) *Solver {
	s := &Solver{
		engine: engine,
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer("github.com/gitrdm/lsysinfer/pkg/infer"),
		opts:   DefaultAssembleOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Options returns the structural constraints in use.
func (s *Solver) Options() AssembleOptions { return s.opts }

// Engine returns the engine problems are submitted to.
func (s *Solver) Engine() csp.Engine { return s.engine }

// Solve infers a minimal system for h at depth within timeout (0 means
// unbounded). Configuration problems are returned as errors wrapping
// ErrConfiguration; infeasibility and timeouts are statuses.
func (s *Solver) Solve(ctx context.Context, h Histogram, depth int, timeout time.Duration) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "infer.Solve", trace.WithAttributes(
		attribute.Int("symbols", len(h)),
		attribute.Int("depth", depth),
		attribute.String("engine", s.engine.Name()),
	))
	defer span.End()

	log := s.log.WithFields(logrus.Fields{"symbols": len(h), "depth": depth, "engine": s.engine.Name()})
	res := Result{Depth: depth, Engine: s.engine.Name()}

	span.AddEvent("assembling")
	_, asmSpan := s.tracer.Start(ctx, "infer.Assemble")
	asm, err := Assemble(h, depth, s.opts)
	if err != nil {
		asmSpan.RecordError(err)
		asmSpan.SetStatus(codes.Error, "assemble")
		asmSpan.End()
		span.SetStatus(codes.Error, "assemble")
		return res, err
	}
	p := asm.Problem()
	asmSpan.SetAttributes(attribute.Int("variables", p.NumVars()), attribute.Int("constraints", len(p.Constraints())))
	asmSpan.End()
	log.WithFields(logrus.Fields{
		"variables":   p.NumVars(),
		"constraints": len(p.Constraints()),
		"chain":       asm.Chain,
	}).Debug("assembled")

	span.AddEvent("submitted")
	subCtx, subSpan := s.tracer.Start(ctx, "infer.Submit")
	out, err := s.engine.Minimize(subCtx, p, timeout)
	subSpan.SetAttributes(attribute.String("outcome", out.Status.String()), attribute.Int("nodes", out.Stats.Nodes))
	subSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit")
		return res, fmt.Errorf("%w: %w", ErrEngine, err)
	}
	res.Elapsed = out.Elapsed
	res.Stats = out.Stats

	_, decSpan := s.tracer.Start(ctx, "infer.Decode")
	err = s.interpret(asm, out, timeout, &res)
	decSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return res, err
	}

	span.AddEvent(res.Status.String())
	span.SetAttributes(attribute.String("status", res.Status.String()), attribute.Int("cost", res.Cost))
	log.WithFields(logrus.Fields{
		"status":  res.Status,
		"cost":    res.Cost,
		"elapsed": res.Elapsed,
		"nodes":   res.Stats.Nodes,
	}).Info("solve finished")
	if s.observer != nil {
		s.observer.ObserveSolve(res.Engine, len(h), depth, res.Status, res.Elapsed, res.Stats)
	}
	return res, nil
}

// interpret maps an engine outcome onto a status and decodes the
// assignment when there is one.
func (s *Solver) interpret(asm *Assembly, out csp.Outcome, timeout time.Duration, res *Result) error {
	switch out.Status {
	case csp.Optimal:
		sol, err := s.checked(asm, out.Values)
		if err != nil {
			return err
		}
		res.Status = OptimalFound
		res.Solution = &sol
		res.Cost = sol.Cost()
	case csp.Feasible:
		res.Status = TimedOut
		if sol, err := s.checked(asm, out.Values); err == nil {
			res.Incumbent = &sol
			res.Cost = sol.Cost()
		}
	case csp.Infeasible:
		res.Status = Infeasible
		if timeout > 0 && out.Elapsed >= timeout {
			res.Status = TimedOut
		}
	default:
		res.Status = TimedOut
	}
	return nil
}

// checked decodes values after confirming they satisfy the assembly.
func (s *Solver) checked(asm *Assembly, values []int) (Solution, error) {
	if err := asm.Problem().Check(values); err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	sol, err := asm.Decode(values)
	if err != nil {
		return Solution{}, err
	}
	if err := Verify(asm.Histogram, asm.Depth, sol, asm.Options); err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return sol, nil
}
