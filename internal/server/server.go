// Package server exposes the solver over HTTP.
//
// Routes:
//
//	POST /v1/solve          JSON request, JSON result
//	POST /v1/solve/record   CSV request record, CSV result record
//	GET  /v1/history        archived solves, newest first
//	GET  /healthz           liveness
//	GET  /metrics           Prometheus exposition
//
// Solves run one at a time; concurrent requests wait for the running solve
// or give up when their own context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/internal/store"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// Archive stores and lists completed solves.
type Archive interface {
	Append(ctx context.Context, r store.Record) (store.Record, error)
	List(ctx context.Context, limit int) ([]store.Record, error)
}

// Options configures a Server.
type Options struct {
	Layout codec.Layout
	// Timeout is the budget for requests that ask for none.
	Timeout time.Duration
	// MaxTimeout caps every budget; 0 means no cap.
	MaxTimeout time.Duration
	Archive    Archive
	Metrics    http.Handler
	Log        logrus.FieldLogger
}

// Server routes HTTP requests to a solver.
type Server struct {
	solver *infer.Solver
	opts   Options
	log    logrus.FieldLogger
	sem    *semaphore.Weighted
	router *gin.Engine
}

// SolveRequest is the JSON body of POST /v1/solve.
type SolveRequest struct {
	Histogram []int `json:"histogram" binding:"required,min=1"`
	Depth     int   `json:"depth" binding:"required,min=1"`
	// TimeoutMS is the budget in milliseconds; 0 selects the default.
	TimeoutMS int64 `json:"timeout_ms" binding:"gte=0"`
}

// SolveResponse is the JSON result of POST /v1/solve.
type SolveResponse struct {
	RequestID  string        `json:"request_id"`
	Status     string        `json:"status"`
	StatusCode int           `json:"status_code"`
	Cost       int           `json:"cost,omitempty"`
	Axiom      []int         `json:"axiom,omitempty"`
	Rules      [][]int       `json:"rules,omitempty"`
	Incumbent  *SolutionBody `json:"incumbent,omitempty"`
	Record     string        `json:"record"`
	Engine     string        `json:"engine"`
	ElapsedMS  int64         `json:"elapsed_ms"`
	Nodes      int           `json:"nodes"`
}

// SolutionBody is an unproven system reported alongside a timeout.
type SolutionBody struct {
	Axiom []int   `json:"axiom"`
	Rules [][]int `json:"rules"`
	Cost  int     `json:"cost"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// New returns a server submitting requests to solver.
func New(solver *infer.Solver, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		solver: solver,
		opts:   opts,
		log:    log,
		sem:    semaphore.NewWeighted(1),
	}
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("lsysinfer"), s.requestID, s.accessLog)
	r.GET("/healthz", s.handleHealth)
	r.POST("/v1/solve", s.handleSolve)
	r.POST("/v1/solve/record", s.handleRecord)
	r.GET("/v1/history", s.handleHistory)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler of s.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

const requestIDKey = "request_id"

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-ID", id)
	c.Set(requestIDKey, id)
	c.Next()
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.WithFields(logrus.Fields{
		requestIDKey: c.GetString(requestIDKey),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"status":     c.Writer.Status(),
		"latency":    time.Since(start),
	}).Debug("request")
}

// budget resolves the solve timeout for a request.
func (s *Server) budget(requested time.Duration) time.Duration {
	t := requested
	if t == 0 {
		t = s.opts.Timeout
	}
	if s.opts.MaxTimeout > 0 && (t == 0 || t > s.opts.MaxTimeout) {
		t = s.opts.MaxTimeout
	}
	return t
}

// solve runs one request under the solve semaphore and archives it.
func (s *Server) solve(ctx context.Context, h infer.Histogram, depth int, timeout time.Duration) (infer.Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return infer.Result{}, err
	}
	res, err := s.solver.Solve(ctx, h, depth, s.budget(timeout))
	s.sem.Release(1)
	if err != nil {
		return res, err
	}
	if s.opts.Archive != nil {
		rec := store.NewRecord(h, res, codec.Encode(res, s.opts.Layout))
		if _, err := s.opts.Archive.Append(ctx, rec); err != nil {
			s.log.WithError(err).Warn("archive failed")
		}
	}
	return res, nil
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, infer.ErrConfiguration):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELED"
	default:
		return http.StatusInternalServerError, "SOLVE_FAILED"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code, name := errorStatus(err)
	entry := s.log.WithField(requestIDKey, c.GetString(requestIDKey)).WithError(err)
	if code == http.StatusInternalServerError {
		entry.Error("solve failed")
	} else {
		entry.Warn("request rejected")
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error(), Code: name})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": s.solver.Engine().Name()})
}

func (s *Server) handleSolve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", infer.ErrConfiguration, err))
		return
	}
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	res, err := s.solve(c.Request.Context(), infer.Histogram(req.Histogram), req.Depth, timeout)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := SolveResponse{
		RequestID:  c.GetString(requestIDKey),
		Status:     res.Status.String(),
		StatusCode: int(res.Status),
		Record:     codec.Encode(res, codec.Canonical),
		Engine:     res.Engine,
		ElapsedMS:  res.Elapsed.Milliseconds(),
		Nodes:      res.Stats.Nodes,
	}
	if res.Solution != nil {
		resp.Cost = res.Cost
		resp.Axiom = res.Solution.Axiom
		resp.Rules = res.Solution.Rules
	}
	if res.Incumbent != nil {
		resp.Incumbent = &SolutionBody{
			Axiom: res.Incumbent.Axiom,
			Rules: res.Incumbent.Rules,
			Cost:  res.Incumbent.Cost(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRecord(c *gin.Context) {
	req, err := codec.ReadRequest(c.Request.Body, s.opts.Layout)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.solve(c.Request.Context(), req.Histogram, req.Depth, req.Timeout)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.String(http.StatusOK, codec.Encode(res, s.opts.Layout))
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.opts.Archive == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "no archive configured", Code: "NO_ARCHIVE"})
		return
	}
	limit := 50
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.fail(c, fmt.Errorf("%w: limit %q", infer.ErrConfiguration, q))
			return
		}
		limit = n
	}
	recs, err := s.opts.Archive.List(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	c.JSON(http.StatusOK, recs)
}
