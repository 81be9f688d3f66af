package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panelkit/panelkit/pkg/panel"
)

// stubDegrader records fallback applications.
type stubDegrader struct {
	mu      sync.Mutex
	single  []string
	batched [][]string
}

func (d *stubDegrader) ApplyFallback(ctx context.Context, containerID, reason string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.single = append(d.single, containerID)
	return true
}

func (d *stubDegrader) BatchApplyFallbacks(ctx context.Context, ids []string, reason string) map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batched = append(d.batched, ids)
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func (d *stubDegrader) singleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.single)
}

func (d *stubDegrader) batchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.batched)
}

// stubRecoverer fails a fixed number of times, then succeeds.
type stubRecoverer struct {
	failures int32
	calls    atomic.Int32
}

func (r *stubRecoverer) Recover(ctx context.Context, containerID string) bool {
	return r.calls.Add(1) > r.failures
}

func fastConfig() Config {
	return Config{
		Interval:          time.Hour, // ticks driven manually in tests
		RecoveryBaseDelay: time.Millisecond,
		DebounceDelay:     10 * time.Millisecond,
	}
}

func newFixture() (*Monitor, *panel.Document, *stubDegrader) {
	doc := panel.NewDocument()
	degrader := &stubDegrader{}
	m := New(fastConfig(), doc, degrader, NewMemorySink(16), nil)
	return m, doc, degrader
}

func TestRegisterChartReplacesRecord(t *testing.T) {
	m, _, _ := newFixture()
	m.RegisterChart("chart-a", "line")

	first, _ := m.Record("chart-a")
	m.ReportError("chart-a", errors.New("boom"))

	m.RegisterChart("chart-a", "bar")
	rec, ok := m.Record("chart-a")
	if !ok {
		t.Fatal("record should exist")
	}
	if rec.State != Pending || rec.Kind != "bar" || len(rec.ErrorLog) != 0 {
		t.Errorf("re-registration should replace, not merge: %+v", rec)
	}
	if rec.ID == first.ID {
		t.Error("replaced record should carry a fresh registration id")
	}
}

func TestTickClassification(t *testing.T) {
	m, doc, _ := newFixture()
	ctx := context.Background()

	hidden := doc.Add("chart-hidden")
	hidden.SetVisible(false)

	fallback := doc.Add("chart-fallback")
	fallback.SetFallbackContent(`<img src="x.png"/>`)

	drawn := doc.Add("chart-drawn")
	drawn.SetContent(`<svg><rect/></svg>`)

	doc.Add("chart-empty")

	for _, id := range []string{"chart-hidden", "chart-fallback", "chart-drawn", "chart-empty", "chart-missing"} {
		m.RegisterChart(id, "line")
	}

	m.Tick(ctx)

	want := map[string]State{
		"chart-hidden":   Loading,
		"chart-fallback": Rendered,
		"chart-drawn":    Rendered,
		"chart-empty":    Empty,
		"chart-missing":  Loading,
	}
	for id, state := range want {
		rec, _ := m.Record(id)
		if rec.State != state {
			t.Errorf("%s: got %s, want %s", id, rec.State, state)
		}
	}
}

func TestRenderedIsReaudited(t *testing.T) {
	m, doc, _ := newFixture()
	ctx := context.Background()

	c := doc.Add("chart-a")
	c.SetContent(`<svg><rect/></svg>`)
	m.RegisterChart("chart-a", "line")

	m.Tick(ctx)
	if rec, _ := m.Record("chart-a"); rec.State != Rendered {
		t.Fatalf("expected Rendered, got %s", rec.State)
	}

	// The container is later emptied; Rendered is not terminal.
	c.SetContent("")
	m.Tick(ctx)
	if rec, _ := m.Record("chart-a"); rec.State != Empty {
		t.Errorf("emptied container should reclassify, got %s", rec.State)
	}
}

func TestBulkDegradeAboveThreshold(t *testing.T) {
	m, doc, degrader := newFixture()
	ctx := context.Background()

	// EmptyThreshold defaults to 5; six empty containers tip it.
	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6"}
	for _, id := range ids {
		doc.Add(id)
		m.RegisterChart(id, "line")
	}

	m.Tick(ctx)

	if degrader.batchCount() != 1 {
		t.Fatalf("expected one bulk application, got %d", degrader.batchCount())
	}
	for _, id := range ids {
		rec, _ := m.Record(id)
		if rec.State != StaticFallback {
			t.Errorf("%s should be degraded, got %s", id, rec.State)
		}
	}
}

func TestNoBulkDegradeAtOrBelowThreshold(t *testing.T) {
	m, doc, degrader := newFixture()
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		doc.Add(id)
		m.RegisterChart(id, "line")
	}

	m.Tick(ctx)

	if degrader.batchCount() != 0 {
		t.Error("five empty containers should not trigger bulk degradation")
	}
	rec, _ := m.Record("c1")
	if rec.State != Empty {
		t.Errorf("below threshold records stay Empty, got %s", rec.State)
	}
}

func TestAutoRecoverSucceedsAndResetsCounter(t *testing.T) {
	m, doc, _ := newFixture()
	ctx := context.Background()

	doc.Add("chart-a")
	m.RegisterChart("chart-a", "line")
	m.ReportError("chart-a", errors.New("draw failed"))

	rec := &stubRecoverer{failures: 1}
	m.AddRecoverer(rec)

	m.AutoRecover(ctx, "chart-a")

	got, _ := m.Record("chart-a")
	if got.State != Rendered {
		t.Errorf("successful recovery should return to Rendered, got %s", got.State)
	}
	if got.RecoveryAttempts != 0 {
		t.Errorf("success should reset the recovery counter, got %d", got.RecoveryAttempts)
	}
	if rec.calls.Load() != 2 {
		t.Errorf("expected 2 recovery calls, got %d", rec.calls.Load())
	}
}

func TestAutoRecoverExhaustsAfterMaxAttempts(t *testing.T) {
	m, doc, degrader := newFixture()
	ctx := context.Background()

	doc.Add("chart-a")
	m.RegisterChart("chart-a", "line")
	m.ReportError("chart-a", errors.New("draw failed"))

	rec := &stubRecoverer{failures: 1000}
	m.AddRecoverer(rec)

	start := time.Now()
	m.AutoRecover(ctx, "chart-a")
	elapsed := time.Since(start)

	if rec.calls.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", rec.calls.Load())
	}
	// Delays are 1x, 2x and 3x the base: at least 6x in total.
	if elapsed < 6*time.Millisecond {
		t.Errorf("recovery delays should increase per attempt, finished in %v", elapsed)
	}

	got, _ := m.Record("chart-a")
	if got.State != StaticFallback {
		t.Errorf("exhausted recovery should degrade, got %s", got.State)
	}
	if len(got.ErrorLog) == 0 {
		t.Error("terminal failure should be logged on the record")
	}
	if degrader.singleCount() != 1 {
		t.Errorf("exhaustion should apply one fallback, got %d", degrader.singleCount())
	}

	// Exhausted containers are never retried.
	m.AutoRecover(ctx, "chart-a")
	if rec.calls.Load() != 3 {
		t.Errorf("degraded container must not be retried, got %d calls", rec.calls.Load())
	}
}

func TestRecoverersConsultedInPriorityOrder(t *testing.T) {
	m, doc, _ := newFixture()
	ctx := context.Background()

	doc.Add("chart-a")
	m.RegisterChart("chart-a", "line")
	m.ReportError("chart-a", errors.New("draw failed"))

	primary := &stubRecoverer{failures: 1000}
	secondary := &stubRecoverer{}
	m.AddRecoverer(primary)
	m.AddRecoverer(secondary)

	m.AutoRecover(ctx, "chart-a")

	if primary.calls.Load() != 1 {
		t.Errorf("primary should be asked first, got %d calls", primary.calls.Load())
	}
	if secondary.calls.Load() != 1 {
		t.Errorf("secondary should be asked after primary fails, got %d calls", secondary.calls.Load())
	}
	if got, _ := m.Record("chart-a"); got.State != Rendered {
		t.Errorf("secondary success should recover the chart, got %s", got.State)
	}
}

func TestTickSpawnsRecoveryForErrorRecords(t *testing.T) {
	m, doc, _ := newFixture()
	ctx := context.Background()

	doc.Add("chart-a")
	m.RegisterChart("chart-a", "line")
	m.ReportError("chart-a", errors.New("draw failed"))

	rec := &stubRecoverer{}
	m.AddRecoverer(rec)

	m.Tick(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, _ := m.Record("chart-a"); got.State == Rendered {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := m.Record("chart-a")
	t.Errorf("tick-spawned recovery should render the chart, got %s", got.State)
}

func TestDebounceCoalescesTriggers(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { runs.Add(1) })
	}

	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 1 {
		t.Errorf("burst of triggers should run once, got %d", runs.Load())
	}
}

func TestHistorySinkReceivesSummaries(t *testing.T) {
	doc := panel.NewDocument()
	sink := NewMemorySink(4)
	m := New(fastConfig(), doc, &stubDegrader{}, sink, nil)

	c := doc.Add("chart-a")
	c.SetContent(`<svg><rect/></svg>`)
	m.RegisterChart("chart-a", "line")
	doc.Add("chart-b")
	m.RegisterChart("chart-b", "bar")

	m.Tick(context.Background())

	recent, err := sink.Recent(context.Background(), 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected one summary: %v %v", recent, err)
	}
	sum := recent[0]
	if sum.Total != 2 || sum.Rendered != 1 || sum.Empty != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestMemorySinkBounded(t *testing.T) {
	sink := NewMemorySink(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sink.Append(ctx, Summary{Total: i})
	}
	recent, _ := sink.Recent(ctx, 10)
	if len(recent) != 2 {
		t.Fatalf("sink should hold at most 2 entries, got %d", len(recent))
	}
	if recent[0].Total != 3 || recent[1].Total != 4 {
		t.Errorf("sink should keep the newest entries: %+v", recent)
	}
}

func TestStateString(t *testing.T) {
	if Pending.String() != "Pending" || StaticFallback.String() != "StaticFallback" {
		t.Error("state names should match their identifiers")
	}
	if State(99).String() != "Unknown" {
		t.Error("out-of-range states should be Unknown")
	}
}
