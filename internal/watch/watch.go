// Package watch implements the file-buffer exchange: a request record is
// dropped into an input file, and the result record appears in an output
// file once the solve finishes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/internal/store"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// Archive receives a record for every completed solve.
type Archive interface {
	Append(ctx context.Context, r store.Record) (store.Record, error)
}

// Options configures a Watcher.
type Options struct {
	Input  string
	Output string
	Layout codec.Layout
	// Timeout is used for records that carry no timeout of their own.
	Timeout  time.Duration
	Debounce time.Duration
	Log      logrus.FieldLogger
	Archive  Archive
}

// Watcher solves the request in Input whenever the file changes.
type Watcher struct {
	opts   Options
	solver *infer.Solver
	log    logrus.FieldLogger

	mu     sync.Mutex
	solves int
}

// New returns a watcher that submits requests to solver.
func New(solver *infer.Solver, opts Options) (*Watcher, error) {
	if opts.Input == "" || opts.Output == "" {
		return nil, fmt.Errorf("%w: watcher needs input and output files", infer.ErrConfiguration)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	opts.Input = filepath.Clean(opts.Input)
	opts.Output = filepath.Clean(opts.Output)
	if opts.Input == opts.Output {
		return nil, fmt.Errorf("%w: input and output are the same file", infer.ErrConfiguration)
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		opts:   opts,
		solver: solver,
		log:    log.WithFields(logrus.Fields{"input": opts.Input, "output": opts.Output}),
	}, nil
}

// Solves reports how many requests have been processed.
func (w *Watcher) Solves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.solves
}

// Process solves the current content of the input file and writes the
// result. Malformed requests are returned wrapped in infer.ErrConfiguration
// and nothing is written.
func (w *Watcher) Process(ctx context.Context) (infer.Result, error) {
	req, err := codec.ReadRequestFile(w.opts.Input, w.opts.Layout)
	if err != nil {
		return infer.Result{}, err
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = w.opts.Timeout
	}
	res, err := w.solver.Solve(ctx, req.Histogram, req.Depth, timeout)
	if err != nil {
		return res, err
	}
	w.mu.Lock()
	w.solves++
	w.mu.Unlock()

	if w.opts.Archive != nil {
		rec := store.NewRecord(req.Histogram, res, codec.Encode(res, w.opts.Layout))
		if _, err := w.opts.Archive.Append(ctx, rec); err != nil {
			w.log.WithError(err).Warn("archive failed")
		}
	}
	return res, codec.WriteFile(w.opts.Output, res, w.opts.Layout)
}

// Run watches the input file until ctx is done. Events are coalesced over
// the debounce window; each burst triggers one Process call. An input file
// present at start is processed immediately.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	// Watch the directory: editors replace files by rename, which drops a
	// watch placed on the file itself.
	if err := fw.Add(filepath.Dir(w.opts.Input)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.log.Info("watching")
	w.handle(ctx, true)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.opts.Input || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		case <-timerC:
			timerC = nil
			w.handle(ctx, false)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, initial bool) {
	res, err := w.Process(ctx)
	switch {
	case err == nil:
		w.log.WithFields(logrus.Fields{"status": res.Status, "cost": res.Cost}).Info("request solved")
	case initial && errors.Is(err, codec.ErrIO):
		// No request yet.
	case errors.Is(err, codec.ErrIO):
		w.log.WithError(err).Warn("exchange failed")
	default:
		w.log.WithError(err).Warn("request rejected")
	}
}
