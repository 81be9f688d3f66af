package cache

// Keyer generates cache keys for the payload classes the dashboard stores.
// Fetch options are hashed into the key so that the same resource requested
// with different options never shares an entry.
type Keyer interface {
	// ResourceKey generates a key for a fetched resource payload.
	ResourceKey(resource string, opts ResourceKeyOpts) string

	// SnapshotKey generates a key for a rendered chart snapshot, derived
	// from the hash of the series data it was drawn from.
	SnapshotKey(seriesHash string, opts SnapshotKeyOpts) string
}

// ResourceKeyOpts are the fetch options that affect a resource payload.
type ResourceKeyOpts struct {
	Endpoint string `json:"endpoint"`
	Query    string `json:"query,omitempty"`
}

// SnapshotKeyOpts are the render options that affect a chart snapshot.
type SnapshotKeyOpts struct {
	ChartType string `json:"chart_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ResourceKey generates a key for a fetched resource payload.
func (k *DefaultKeyer) ResourceKey(resource string, opts ResourceKeyOpts) string {
	return hashKey("resource", resource, opts)
}

// SnapshotKey generates a key for a rendered chart snapshot.
func (k *DefaultKeyer) SnapshotKey(seriesHash string, opts SnapshotKeyOpts) string {
	return hashKey("snapshot", seriesHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix so that several dashboards can
// share one backend without key collisions.
//
// Example usage:
//
//	// Dashboard-specific keys on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "fraud-ops:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResourceKey generates a prefixed key for a fetched resource payload.
func (k *ScopedKeyer) ResourceKey(resource string, opts ResourceKeyOpts) string {
	return k.prefix + k.inner.ResourceKey(resource, opts)
}

// SnapshotKey generates a prefixed key for a rendered chart snapshot.
func (k *ScopedKeyer) SnapshotKey(seriesHash string, opts SnapshotKeyOpts) string {
	return k.prefix + k.inner.SnapshotKey(seriesHash, opts)
}
