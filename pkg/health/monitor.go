// Package health audits every registered chart on a fixed interval, drives
// per-chart auto-recovery and applies bulk degradation when the rendering
// engine itself appears to be down.
//
// Each chart has a [Record] tracking its [State]. A tick classifies every
// record from its container's actual condition, then applies two policies:
// when more containers are simultaneously empty than the configured
// threshold, all of them are degraded in bulk rather than retried one by
// one; charts with reported render errors each get an individual recovery
// task with capped, increasing backoff.
package health

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/observability"
	"github.com/panelkit/panelkit/pkg/panel"
)

// Defaults for the monitor's policies.
const (
	DefaultInterval          = 5 * time.Second
	DefaultEmptyThreshold    = 5
	DefaultMaxRecovery       = 3
	DefaultRecoveryBaseDelay = time.Second
	DefaultDebounceDelay     = time.Second
)

// Record is the audit state of one chart. Re-registering a container
// replaces its record entirely.
type Record struct {
	ID               string
	ContainerID      string
	Kind             string
	State            State
	LastChecked      time.Time
	TotalAttempts    int
	RecoveryAttempts int
	ErrorLog         []string
}

// Recoverer re-renders a chart during auto-recovery. Collaborators are
// consulted in the order they were added.
type Recoverer interface {
	Recover(ctx context.Context, containerID string) bool
}

// Degrader is the slice of the degraded-mode provider the monitor needs.
type Degrader interface {
	ApplyFallback(ctx context.Context, containerID, reason string) bool
	BatchApplyFallbacks(ctx context.Context, containerIDs []string, reason string) map[string]bool
}

// Config tunes the monitor. Zero values fall back to the defaults.
type Config struct {
	// Interval between periodic ticks. Default 5s.
	Interval time.Duration

	// EmptyThreshold is the number of simultaneously empty containers
	// above which degradation goes bulk. Default 5.
	EmptyThreshold int

	// MaxRecovery caps recovery attempts per container. Default 3.
	MaxRecovery int

	// RecoveryBaseDelay is the unit for the increasing wait before each
	// recovery attempt: attempt n waits n times this. Default 1s.
	RecoveryBaseDelay time.Duration

	// DebounceDelay is how long after a structural document change the
	// out-of-band recheck fires. Default 1s.
	DebounceDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.EmptyThreshold <= 0 {
		c.EmptyThreshold = DefaultEmptyThreshold
	}
	if c.MaxRecovery <= 0 {
		c.MaxRecovery = DefaultMaxRecovery
	}
	if c.RecoveryBaseDelay <= 0 {
		c.RecoveryBaseDelay = DefaultRecoveryBaseDelay
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = DefaultDebounceDelay
	}
	return c
}

// Monitor audits chart containers. Safe for concurrent use; ticks are
// serialized against each other while recovery tasks run freely alongside.
type Monitor struct {
	cfg      Config
	doc      *panel.Document
	degrader Degrader
	logger   *log.Logger
	sink     HistorySink

	tickMu sync.Mutex

	mu         sync.Mutex
	records    map[string]*Record
	recoverers []Recoverer
	recovering map[string]bool

	debounce *debouncer
}

// New creates a monitor. A nil sink keeps no history, a nil logger
// discards logs.
func New(cfg Config, doc *panel.Document, degrader Degrader, sink HistorySink, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if sink == nil {
		sink = NullSink{}
	}
	m := &Monitor{
		cfg:        cfg.withDefaults(),
		doc:        doc,
		degrader:   degrader,
		logger:     logger,
		sink:       sink,
		records:    make(map[string]*Record),
		recovering: make(map[string]bool),
	}
	m.debounce = newDebouncer(m.cfg.DebounceDelay)
	return m
}

// AddRecoverer appends a render-capable collaborator consulted during
// auto-recovery. Order of addition is priority order.
func (m *Monitor) AddRecoverer(r Recoverer) {
	m.mu.Lock()
	m.recoverers = append(m.recoverers, r)
	m.mu.Unlock()
}

// RegisterChart inserts a Pending record for the container. An existing
// record is replaced, not merged, so a re-registered chart starts clean.
func (m *Monitor) RegisterChart(containerID, kind string) {
	m.mu.Lock()
	m.records[containerID] = &Record{
		ID:          uuid.NewString(),
		ContainerID: containerID,
		Kind:        kind,
		State:       Pending,
	}
	m.mu.Unlock()
}

// ReportError records a render failure against a container, moving it to
// the Error state so the next tick schedules recovery.
func (m *Monitor) ReportError(containerID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[containerID]
	if !ok || rec.State == StaticFallback {
		return
	}
	m.transitionLocked(rec, Error)
	if err != nil {
		rec.ErrorLog = append(rec.ErrorLog, err.Error())
	}
}

// Record returns a copy of the container's record.
func (m *Monitor) Record(containerID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[containerID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Snapshot returns copies of every record.
func (m *Monitor) Snapshot() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out
}

// Tick audits every registered chart once. Ticks are serialized; a new
// tick blocks until the previous synchronous scan finished. The recovery
// tasks a tick spawns are fire-and-forget and may span several ticks.
func (m *Monitor) Tick(ctx context.Context) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	start := time.Now()

	// Snapshot ids first; recovery callbacks mutate records concurrently
	// with this scan.
	m.mu.Lock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var empty, errored []string
	for _, id := range ids {
		switch m.classify(id) {
		case Empty:
			empty = append(empty, id)
		case Error:
			errored = append(errored, id)
		}
	}

	if len(empty) > m.cfg.EmptyThreshold {
		m.bulkDegrade(ctx, empty)
	}
	for _, id := range errored {
		m.spawnRecovery(ctx, id)
	}

	observability.Health().OnTick(ctx, len(ids), len(empty), len(errored), time.Since(start))
	m.appendHistory(ctx)
}

// classify audits one container and updates its record, returning the new
// state.
func (m *Monitor) classify(containerID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[containerID]
	if !ok {
		return Pending
	}
	rec.LastChecked = time.Now()
	rec.TotalAttempts++

	// Terminal and error states are owned by their policies, not by
	// container inspection.
	if rec.State == StaticFallback || rec.State == Error {
		return rec.State
	}

	c, exists := m.doc.Container(containerID)
	switch {
	case !exists || !c.Visible():
		m.transitionLocked(rec, Loading)
	case c.IsFallback():
		m.transitionLocked(rec, Rendered)
	case c.HasDrawablePrimitives():
		m.transitionLocked(rec, Rendered)
	default:
		m.transitionLocked(rec, Empty)
	}
	return rec.State
}

// bulkDegrade treats widespread emptiness as a systemic failure and swaps
// every affected container for its fallback in one pass.
func (m *Monitor) bulkDegrade(ctx context.Context, ids []string) {
	m.logger.Warn("bulk degradation triggered", "empty", len(ids), "threshold", m.cfg.EmptyThreshold)
	m.degrader.BatchApplyFallbacks(ctx, ids, "systemic render failure")

	m.mu.Lock()
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			m.transitionLocked(rec, StaticFallback)
		}
	}
	m.mu.Unlock()
}

// spawnRecovery starts one auto-recovery task for the container unless one
// is already in flight or its attempts are exhausted.
func (m *Monitor) spawnRecovery(ctx context.Context, containerID string) {
	m.mu.Lock()
	rec, ok := m.records[containerID]
	if !ok || m.recovering[containerID] || rec.State != Error {
		m.mu.Unlock()
		return
	}
	m.recovering[containerID] = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.recovering, containerID)
			m.mu.Unlock()
		}()
		m.AutoRecover(ctx, containerID)
	}()
}

// AutoRecover retries rendering the container with an increasing wait
// before each attempt (base, 2x base, 3x base). On success the recovery
// counter resets to zero and the record returns to Rendered. After the
// configured number of failed attempts the failure is terminal: the
// container is degraded and never retried again this session.
func (m *Monitor) AutoRecover(ctx context.Context, containerID string) {
	m.mu.Lock()
	recoverers := make([]Recoverer, len(m.recoverers))
	copy(recoverers, m.recoverers)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		rec, ok := m.records[containerID]
		if !ok || rec.State != Error {
			m.mu.Unlock()
			return
		}
		if rec.RecoveryAttempts >= m.cfg.MaxRecovery {
			m.mu.Unlock()
			m.exhaust(ctx, containerID)
			return
		}
		rec.RecoveryAttempts++
		attempt := rec.RecoveryAttempts
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * m.cfg.RecoveryBaseDelay):
		}

		m.logger.Info("recovery attempt", "container", containerID, "attempt", attempt)
		observability.Health().OnRecoveryAttempt(ctx, containerID, attempt)

		for _, r := range recoverers {
			if r.Recover(ctx, containerID) {
				m.mu.Lock()
				if rec, ok := m.records[containerID]; ok {
					rec.RecoveryAttempts = 0
					m.transitionLocked(rec, Rendered)
				}
				m.mu.Unlock()
				observability.Health().OnRecoveryComplete(ctx, containerID, true)
				return
			}
		}
	}
}

// exhaust logs the terminal per-container failure and degrades it. Sibling
// containers are unaffected.
func (m *Monitor) exhaust(ctx context.Context, containerID string) {
	err := errors.New(errors.ErrCodeRecoveryExhausted,
		"recovery exhausted for %q after %d attempts", containerID, m.cfg.MaxRecovery)
	m.logger.Error("recovery exhausted", "container", containerID, "err", err)
	observability.Health().OnRecoveryComplete(ctx, containerID, false)

	m.degrader.ApplyFallback(ctx, containerID, "recovery exhausted")

	m.mu.Lock()
	if rec, ok := m.records[containerID]; ok {
		rec.ErrorLog = append(rec.ErrorLog, err.Error())
		m.transitionLocked(rec, StaticFallback)
	}
	m.mu.Unlock()
}

// transitionLocked updates a record's state and fires the hook. Callers
// hold m.mu.
func (m *Monitor) transitionLocked(rec *Record, to State) {
	if rec.State == to {
		return
	}
	from := rec.State
	rec.State = to
	observability.Health().OnStateChange(context.Background(), rec.ContainerID, from.String(), to.String())
}

// Run ticks on the configured interval until the context is cancelled.
// Structural document changes additionally schedule a debounced
// out-of-band tick; only the most recent trigger actually fires.
func (m *Monitor) Run(ctx context.Context) {
	m.doc.Subscribe(func() {
		m.debounce.trigger(func() { m.Tick(ctx) })
	})

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// appendHistory pushes a summary of the current records to the sink.
func (m *Monitor) appendHistory(ctx context.Context) {
	snap := Summary{Time: time.Now()}
	m.mu.Lock()
	for _, rec := range m.records {
		snap.Total++
		switch rec.State {
		case Rendered:
			snap.Rendered++
		case Empty:
			snap.Empty++
		case Error:
			snap.Errored++
		case StaticFallback:
			snap.Degraded++
		}
	}
	m.mu.Unlock()

	if err := m.sink.Append(ctx, snap); err != nil {
		m.logger.Warn("history append failed", "err", err)
	}
}
