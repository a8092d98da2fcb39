package csp

import (
	"context"
	"time"
)

// Status is an engine's verdict for one Minimize call.
type Status int

const (
	// Unknown means the engine stopped (time budget, node limit) before
	// finding any assignment or proving infeasibility.
	Unknown Status = iota
	// Infeasible means the engine proved that no assignment exists.
	Infeasible
	// Feasible means an assignment was found but optimality was not proven
	// before the engine stopped.
	Feasible
	// Optimal means the returned assignment is proven cost-optimal.
	Optimal
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Infeasible:
		return "infeasible"
	case Feasible:
		return "feasible"
	case Optimal:
		return "optimal"
	default:
		return "invalid"
	}
}

// Stats are engine counters for one Minimize call. Engines fill the fields
// that make sense for them.
type Stats struct {
	Nodes        int
	Backtracks   int
	Solutions    int
	Propagations int
	Clauses      int
	MaxDepth     int
}

// Outcome is the result of a Minimize call.
type Outcome struct {
	Status Status
	// Values holds one value per problem variable (indexed by VarID) when
	// Status is Feasible or Optimal.
	Values    []int
	Objective int
	// Elapsed is the wall-clock time spent inside the engine.
	Elapsed time.Duration
	Stats   Stats
}

// Engine minimises a Problem's objective.
//
// budget bounds the wall-clock time of the call; zero means unbounded. The
// engine must also honour ctx. Running out of budget is not an error: it is
// reported as Unknown or Feasible. Errors are reserved for problems the
// engine cannot represent and for context cancellation.
type Engine interface {
	Name() string
	Minimize(ctx context.Context, p *Problem, budget time.Duration) (Outcome, error)
}
