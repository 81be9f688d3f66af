package health

import (
	"context"
	"sync"
	"time"
)

// Summary is one point of monitor history: the state distribution across
// all registered charts at the end of a tick.
type Summary struct {
	Time     time.Time `json:"time" bson:"time"`
	Total    int       `json:"total" bson:"total"`
	Rendered int       `json:"rendered" bson:"rendered"`
	Empty    int       `json:"empty" bson:"empty"`
	Errored  int       `json:"errored" bson:"errored"`
	Degraded int       `json:"degraded" bson:"degraded"`
}

// HistorySink receives a Summary after every tick.
type HistorySink interface {
	Append(ctx context.Context, s Summary) error
	Recent(ctx context.Context, n int) ([]Summary, error)
}

// NullSink keeps no history.
type NullSink struct{}

func (NullSink) Append(ctx context.Context, s Summary) error          { return nil }
func (NullSink) Recent(ctx context.Context, n int) ([]Summary, error) { return nil, nil }

// MemorySink keeps the most recent summaries in a bounded ring.
type MemorySink struct {
	mu      sync.Mutex
	limit   int
	entries []Summary
}

// NewMemorySink creates a sink holding at most limit summaries.
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 256
	}
	return &MemorySink{limit: limit}
}

// Append records a summary, evicting the oldest entry at capacity.
func (s *MemorySink) Append(ctx context.Context, sum Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, sum)
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
	return nil
}

// Recent returns up to n summaries, newest last.
func (s *MemorySink) Recent(ctx context.Context, n int) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Summary, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out, nil
}
