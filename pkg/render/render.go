// Package render adapts the external visualization engine to the
// dashboard's containers.
//
// The [Adapter] resolves a container from an ordered candidate-id list,
// refuses to draw when every series is empty, and after a successful draw
// schedules a short-delay check that the engine actually produced drawable
// markup. Both failure paths hand the container to the degraded-mode
// provider instead of leaving a blank region.
package render

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/observability"
	"github.com/panelkit/panelkit/pkg/panel"
)

// DefaultCheckDelay is how long after a draw the post-render check runs.
const DefaultCheckDelay = 150 * time.Millisecond

// Series is one dataset handed to the engine. This is the entire contract
// the core depends on from the visualization side.
type Series struct {
	Name   string    `json:"name"`
	X      []float64 `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
	Z      []float64 `json:"z,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// HasData reports whether the series carries any points.
func (s Series) HasData() bool {
	return len(s.X) > 0 || len(s.Y) > 0 || len(s.Z) > 0 || len(s.Values) > 0
}

// Layout carries the engine's sizing and type options.
type Layout struct {
	ChartType string `json:"chart_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Title     string `json:"title,omitempty"`
}

// Engine draws series into a container. Implementations may draw
// synchronously or kick off asynchronous work; either way the post-render
// check validates the outcome.
type Engine interface {
	Draw(ctx context.Context, containerID string, series []Series, layout Layout) error
}

// Degrader is the slice of the degraded-mode provider the adapter needs.
type Degrader interface {
	ApplyFallback(ctx context.Context, containerID, reason string) bool
}

// Scheduler runs a function after a delay. The production scheduler uses
// time.AfterFunc; tests substitute a synchronous one.
type Scheduler func(d time.Duration, fn func())

// Adapter wires an engine, a document and a degrader together.
type Adapter struct {
	engine   Engine
	doc      *panel.Document
	degrader Degrader
	logger   *log.Logger

	checkDelay time.Duration
	schedule   Scheduler
}

// Option configures an adapter.
type Option func(*Adapter)

// WithCheckDelay overrides the post-render check delay.
func WithCheckDelay(d time.Duration) Option {
	return func(a *Adapter) { a.checkDelay = d }
}

// WithScheduler overrides the delayed-task scheduler.
func WithScheduler(s Scheduler) Option {
	return func(a *Adapter) { a.schedule = s }
}

// New creates an adapter. A nil logger discards logs.
func New(engine Engine, doc *panel.Document, degrader Degrader, logger *log.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	a := &Adapter{
		engine:     engine,
		doc:        doc,
		degrader:   degrader,
		logger:     logger,
		checkDelay: DefaultCheckDelay,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Render draws the series into the first existing container among the
// candidates and reports whether a live draw was issued. Empty series, a
// missing container and engine failures all degrade instead of leaving the
// region blank.
func (a *Adapter) Render(ctx context.Context, candidates []string, series []Series, layout Layout) (bool, error) {
	c, ok := a.doc.Resolve(candidates...)
	if !ok {
		a.logger.Warn("no candidate container exists", "candidates", candidates)
		return false, errors.New(errors.ErrCodeNoContainer,
			"none of the candidate containers exist: %v", candidates)
	}

	start := time.Now()
	observability.Render().OnRenderStart(ctx, c.ID(), len(series))

	if !anyHasData(series) {
		a.logger.Info("all series empty, degrading", "container", c.ID())
		a.degrader.ApplyFallback(ctx, c.ID(), "no data in any series")
		err := errors.New(errors.ErrCodeRenderValidation,
			"refusing to draw %q: every series is empty", c.ID())
		observability.Render().OnRenderComplete(ctx, c.ID(), time.Since(start), err)
		return false, err
	}

	if err := a.engine.Draw(ctx, c.ID(), series, layout); err != nil {
		a.logger.Warn("engine draw failed", "container", c.ID(), "err", err)
		a.degrader.ApplyFallback(ctx, c.ID(), "engine draw failed")
		observability.Render().OnRenderComplete(ctx, c.ID(), time.Since(start), err)
		return false, err
	}

	a.scheduleCheck(ctx, c.ID())
	observability.Render().OnRenderComplete(ctx, c.ID(), time.Since(start), nil)
	return true, nil
}

// scheduleCheck arranges the delayed post-render validation. A container
// removed or replaced before the check runs is a no-op success, not an
// error.
func (a *Adapter) scheduleCheck(ctx context.Context, containerID string) {
	a.schedule(a.checkDelay, func() {
		c, ok := a.doc.Container(containerID)
		if !ok {
			return
		}
		if c.IsFallback() || c.HasDrawablePrimitives() {
			return
		}
		a.logger.Warn("post-render check found no drawable primitives", "container", containerID)
		a.degrader.ApplyFallback(ctx, containerID, "post-render check failed")
	})
}

func anyHasData(series []Series) bool {
	for _, s := range series {
		if s.HasData() {
			return true
		}
	}
	return false
}
