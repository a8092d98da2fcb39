package fd

import (
	"fmt"
	"sync"
	"time"
)

// SolverStats holds counters about one solve.
type SolverStats struct {
	NodesExplored    int           // search nodes whose propagation was attempted
	Backtracks       int           // failed propagations and exhausted frames
	SolutionsFound   int           // complete assignments (incumbents for optimisation)
	MaxDepth         int           // deepest stack size reached
	PropagationCount int           // fixpoint computations
	PropagatorRuns   int           // individual Propagate calls
	SearchTime       time.Duration // wall-clock time from StartSearch to FinishSearch
}

func (s *SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d nodes, %d backtracks, %d solutions, %v time, max depth %d\n"+
			"  Propagation: %d fixpoints, %d propagator runs",
		s.NodesExplored, s.Backtracks, s.SolutionsFound, s.SearchTime, s.MaxDepth,
		s.PropagationCount, s.PropagatorRuns,
	)
}

// SolverMonitor collects SolverStats. It may be read from another goroutine
// while a search runs.
type SolverMonitor struct {
	mu        sync.Mutex
	stats     SolverStats
	startTime time.Time
}

// NewSolverMonitor creates a monitor whose clock starts now.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{startTime: time.Now()}
}

// GetStats returns a snapshot of the statistics.
func (m *SolverMonitor) GetStats() *SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	if stats.SearchTime == 0 {
		stats.SearchTime = time.Since(m.startTime)
	}
	return &stats
}

// StartSearch resets the clock.
func (m *SolverMonitor) StartSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
	m.stats.SearchTime = 0
}

// FinishSearch records the elapsed search time.
func (m *SolverMonitor) FinishSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime = time.Since(m.startTime)
}

func (m *SolverMonitor) recordNode() {
	m.mu.Lock()
	m.stats.NodesExplored++
	m.mu.Unlock()
}

func (m *SolverMonitor) recordBacktrack() {
	m.mu.Lock()
	m.stats.Backtracks++
	m.mu.Unlock()
}

func (m *SolverMonitor) recordSolution() {
	m.mu.Lock()
	m.stats.SolutionsFound++
	m.mu.Unlock()
}

func (m *SolverMonitor) recordDepth(depth int) {
	m.mu.Lock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
	m.mu.Unlock()
}

func (m *SolverMonitor) recordPropagation(runs int) {
	m.mu.Lock()
	m.stats.PropagationCount++
	m.stats.PropagatorRuns += runs
	m.mu.Unlock()
}
