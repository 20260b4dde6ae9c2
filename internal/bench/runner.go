// Package bench times backends over random inputs and reduces the samples.
package bench

import (
	"fmt"
	"time"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/matrix"
	"github.com/23skdu/longbow-matbench/internal/stats"
)

// Result is the outcome of timing one backend at one shape.
type Result struct {
	Backend string
	Shape   backend.Shape
	Repeat  int
	// Samples holds one wall-clock duration in seconds per invocation.
	Samples []float64
	stats.Summary
}

// Stages a Runner reports in StageError.
const (
	StageOpen  = "open"
	StageBind  = "bind"
	StageRun   = "run"
	StageClose = "close"
)

// StageError records which backend failed, at which shape and in which stage.
// Open and bind failures are setup failures; the timed loop never started.
type StageError struct {
	Backend string
	Shape   backend.Shape
	Stage   string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Backend, e.Stage, e.Shape, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Setup reports whether the failure happened before any timed run.
func (e *StageError) Setup() bool {
	return e.Stage == StageOpen || e.Stage == StageBind
}

// Observer is called after every timed invocation.
type Observer func(backend string, shape backend.Shape, d time.Duration)

type Option func(*Runner)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observe = o }
}

type Runner struct {
	gen     *matrix.Generator
	now     func() time.Time
	observe Observer
}

func NewRunner(gen *matrix.Generator, opts ...Option) *Runner {
	r := &Runner{gen: gen, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates one A (M x K) and one B (K x N), binds them to a fresh
// session of be, and times repeat calls of Session.Run. The products are
// discarded. The session is closed before Run returns, on every path.
func (r *Runner) Run(shape backend.Shape, repeat int, be backend.Backend) (res Result, err error) {
	if repeat < 1 {
		return Result{}, fmt.Errorf("%w: repeat %d (must be at least 1)", matrix.ErrInvalidArgument, repeat)
	}
	if err := shape.Validate(); err != nil {
		return Result{}, err
	}

	a, err := r.gen.Generate(shape.M, shape.K)
	if err != nil {
		return Result{}, err
	}
	b, err := r.gen.Generate(shape.K, shape.N)
	if err != nil {
		return Result{}, err
	}

	sess, err := be.Open(shape)
	if err != nil {
		return Result{}, &StageError{Backend: be.Name(), Shape: shape, Stage: StageOpen, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = &StageError{Backend: be.Name(), Shape: shape, Stage: StageClose, Err: cerr}
		}
	}()

	if err := sess.Bind(a, b); err != nil {
		return Result{}, &StageError{Backend: be.Name(), Shape: shape, Stage: StageBind, Err: err}
	}

	samples := make([]float64, 0, repeat)
	for i := 0; i < repeat; i++ {
		start := r.now()
		if _, err := sess.Run(); err != nil {
			err = fmt.Errorf("iteration %d of %d: %w", i+1, repeat, err)
			return Result{}, &StageError{Backend: be.Name(), Shape: shape, Stage: StageRun, Err: err}
		}
		d := r.now().Sub(start)
		samples = append(samples, d.Seconds())
		if r.observe != nil {
			r.observe(be.Name(), shape, d)
		}
	}

	summary, err := stats.Summarize(samples)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Backend: be.Name(),
		Shape:   shape,
		Repeat:  repeat,
		Samples: samples,
		Summary: summary,
	}, nil
}
