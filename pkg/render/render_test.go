package render

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/panel"
)

// syncScheduler runs delayed tasks immediately.
func syncScheduler(d time.Duration, fn func()) { fn() }

// stubEngine records draw calls and optionally writes markup or fails.
type stubEngine struct {
	calls  int
	markup string
	err    error
	doc    *panel.Document
}

func (e *stubEngine) Draw(ctx context.Context, containerID string, series []Series, layout Layout) error {
	e.calls++
	if e.err != nil {
		return e.err
	}
	if c, ok := e.doc.Container(containerID); ok {
		c.SetContent(e.markup)
	}
	return nil
}

// stubDegrader records fallback applications.
type stubDegrader struct {
	applied []string
}

func (d *stubDegrader) ApplyFallback(ctx context.Context, containerID, reason string) bool {
	d.applied = append(d.applied, containerID)
	return true
}

func newFixture(markup string) (*Adapter, *stubEngine, *stubDegrader, *panel.Document) {
	doc := panel.NewDocument()
	engine := &stubEngine{markup: markup, doc: doc}
	degrader := &stubDegrader{}
	adapter := New(engine, doc, degrader, nil, WithScheduler(syncScheduler))
	return adapter, engine, degrader, doc
}

func someSeries() []Series {
	return []Series{{Name: "fraud", X: []float64{1, 2, 3}, Y: []float64{10, 20, 15}}}
}

func TestRenderSucceedsWithDrawableMarkup(t *testing.T) {
	adapter, engine, degrader, doc := newFixture(`<svg><polyline points="0,0 1,1"/></svg>`)
	doc.Add("chart-overview")

	ok, err := adapter.Render(context.Background(), []string{"chart-overview"}, someSeries(), Layout{})
	if err != nil || !ok {
		t.Fatalf("Render should succeed: ok=%v err=%v", ok, err)
	}
	if engine.calls != 1 {
		t.Errorf("engine should be called once, got %d", engine.calls)
	}
	if len(degrader.applied) != 0 {
		t.Errorf("successful render should not degrade: %v", degrader.applied)
	}
}

func TestRenderResolvesLegacyCandidate(t *testing.T) {
	adapter, _, _, doc := newFixture(`<svg><rect/></svg>`)
	doc.Add("chart-overview-v1")

	ok, err := adapter.Render(context.Background(),
		[]string{"chart-overview-v2", "chart-overview-v1"}, someSeries(), Layout{})
	if err != nil || !ok {
		t.Fatalf("Render should fall back to the legacy id: ok=%v err=%v", ok, err)
	}
}

func TestRenderFailsWithoutAnyContainer(t *testing.T) {
	adapter, engine, _, _ := newFixture("")

	ok, err := adapter.Render(context.Background(), []string{"missing"}, someSeries(), Layout{})
	if ok || !pkgerrors.Is(err, pkgerrors.ErrCodeNoContainer) {
		t.Fatalf("expected no-container error, got ok=%v err=%v", ok, err)
	}
	if engine.calls != 0 {
		t.Error("engine must not be called without a container")
	}
}

func TestRenderSkipsDrawWhenAllSeriesEmpty(t *testing.T) {
	adapter, engine, degrader, doc := newFixture("")
	doc.Add("chart-overview")

	empty := []Series{{Name: "a"}, {Name: "b", X: nil, Y: nil}}
	ok, err := adapter.Render(context.Background(), []string{"chart-overview"}, empty, Layout{})
	if ok || !pkgerrors.Is(err, pkgerrors.ErrCodeRenderValidation) {
		t.Fatalf("expected render-validation error, got ok=%v err=%v", ok, err)
	}
	if engine.calls != 0 {
		t.Error("draw must be skipped entirely when every series is empty")
	}
	if len(degrader.applied) != 1 {
		t.Errorf("empty series should degrade exactly once: %v", degrader.applied)
	}
}

func TestRenderDegradesOnEngineFailure(t *testing.T) {
	adapter, engine, degrader, doc := newFixture("")
	doc.Add("chart-overview")
	engine.err = errors.New("widget crashed")

	ok, err := adapter.Render(context.Background(), []string{"chart-overview"}, someSeries(), Layout{})
	if ok || err == nil {
		t.Fatalf("engine failure should fail the render: ok=%v err=%v", ok, err)
	}
	if len(degrader.applied) != 1 {
		t.Errorf("engine failure should degrade: %v", degrader.applied)
	}
}

func TestPostRenderCheckDegradesEmptyMarkup(t *testing.T) {
	// Engine reports success but leaves only an empty shell.
	adapter, _, degrader, doc := newFixture(`<svg width="400" height="300"></svg>`)
	doc.Add("chart-overview")

	ok, err := adapter.Render(context.Background(), []string{"chart-overview"}, someSeries(), Layout{})
	if err != nil || !ok {
		t.Fatalf("Render itself should report success: ok=%v err=%v", ok, err)
	}
	if len(degrader.applied) != 1 {
		t.Errorf("post-render check should catch the blank chart: %v", degrader.applied)
	}
}

func TestPostRenderCheckToleratesRemovedContainer(t *testing.T) {
	doc := panel.NewDocument()
	engine := &stubEngine{markup: `<svg></svg>`, doc: doc}
	degrader := &stubDegrader{}

	var delayed func()
	adapter := New(engine, doc, degrader, nil, WithScheduler(func(d time.Duration, fn func()) {
		delayed = fn
	}))

	doc.Add("chart-overview")
	ok, err := adapter.Render(context.Background(), []string{"chart-overview"}, someSeries(), Layout{})
	if err != nil || !ok {
		t.Fatalf("Render failed: ok=%v err=%v", ok, err)
	}

	// The container disappears before the delayed check runs.
	doc.Remove("chart-overview")
	delayed()

	if len(degrader.applied) != 0 {
		t.Errorf("check against a removed container must be a no-op: %v", degrader.applied)
	}
}

func TestPostRenderCheckSkipsFallbackContent(t *testing.T) {
	adapter, _, degrader, doc := newFixture(`<svg></svg>`)
	c := doc.Add("chart-overview")

	// Simulate a fallback landing between draw and check.
	adapter.schedule = func(d time.Duration, fn func()) {
		c.SetFallbackContent(`<img src="x.png"/>`)
		fn()
	}

	adapter.Render(context.Background(), []string{"chart-overview"}, someSeries(), Layout{})
	if len(degrader.applied) != 0 {
		t.Errorf("fallback content should pass the check: %v", degrader.applied)
	}
}

func TestSeriesHasData(t *testing.T) {
	if (Series{}).HasData() {
		t.Error("zero series should have no data")
	}
	if !(Series{Values: []float64{1}}).HasData() {
		t.Error("series with values should have data")
	}
	if !(Series{Z: []float64{1}}).HasData() {
		t.Error("series with z data should have data")
	}
}
