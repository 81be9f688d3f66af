// Package panel models the dashboard surface the rendering pipeline draws
// into.
//
// A [Document] holds the chart-bearing [Container] regions of one dashboard
// page. The core never touches page layout; it only needs to resolve a
// container by id, read and replace its markup, and observe structural
// changes (new containers appearing). Both types are safe for concurrent
// use, so recovery tasks may repaint containers while the health monitor
// scans them.
package panel

import (
	"strings"
	"sync"
)

// Container is a single chart-bearing region identified by id. Its content
// is the markup most recently drawn into it.
type Container struct {
	id string

	mu       sync.RWMutex
	visible  bool
	content  string
	fallback bool
}

// NewContainer creates a visible, empty container.
func NewContainer(id string) *Container {
	return &Container{id: id, visible: true}
}

// ID returns the container's identifier.
func (c *Container) ID() string { return c.id }

// Visible reports whether the container is currently shown on the page.
func (c *Container) Visible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible
}

// SetVisible updates the container's visibility.
func (c *Container) SetVisible(v bool) {
	c.mu.Lock()
	c.visible = v
	c.mu.Unlock()
}

// Content returns the container's current markup.
func (c *Container) Content() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content
}

// SetContent replaces the container's markup. Drawing live content clears
// any fallback marker.
func (c *Container) SetContent(markup string) {
	c.mu.Lock()
	c.content = markup
	c.fallback = false
	c.mu.Unlock()
}

// SetFallbackContent replaces the container's markup with a static
// substitute and marks it so the health monitor classifies it as degraded
// rather than empty.
func (c *Container) SetFallbackContent(markup string) {
	c.mu.Lock()
	c.content = markup
	c.fallback = true
	c.mu.Unlock()
}

// IsFallback reports whether the container currently shows a static
// substitute.
func (c *Container) IsFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallback
}

// drawables are the markup elements that count as actual visual content.
// A bare <svg> or <canvas> shell does not qualify.
var drawables = []string{
	"<path", "<rect", "<circle", "<ellipse",
	"<line", "<polyline", "<polygon", "<image", "<text",
}

// HasDrawablePrimitives reports whether the container's markup contains at
// least one drawable element, as opposed to an empty shell left behind by a
// render call that silently produced nothing.
func (c *Container) HasDrawablePrimitives() bool {
	content := c.Content()
	for _, tag := range drawables {
		if strings.Contains(content, tag) {
			return true
		}
	}
	return false
}

// Document is the set of containers on one dashboard page.
type Document struct {
	mu          sync.RWMutex
	containers  map[string]*Container
	subscribers []func()
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{containers: make(map[string]*Container)}
}

// Add creates and registers a container, notifying structural-change
// subscribers. Adding an existing id returns the existing container without
// a notification.
func (d *Document) Add(id string) *Container {
	d.mu.Lock()
	if c, ok := d.containers[id]; ok {
		d.mu.Unlock()
		return c
	}
	c := NewContainer(id)
	d.containers[id] = c
	subs := make([]func(), len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.Unlock()

	for _, notify := range subs {
		notify()
	}
	return c
}

// Container looks up a container by id.
func (d *Document) Container(id string) (*Container, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.containers[id]
	return c, ok
}

// Remove deletes a container from the document.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	delete(d.containers, id)
	d.mu.Unlock()
}

// Resolve returns the first candidate id that names an existing container.
// Candidate lists let callers keep working across renamed or legacy ids.
func (d *Document) Resolve(candidates ...string) (*Container, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, id := range candidates {
		if c, ok := d.containers[id]; ok {
			return c, true
		}
	}
	return nil, false
}

// IDs returns a snapshot of all container ids.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.containers))
	for id := range d.containers {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers a callback invoked whenever a new container is added.
func (d *Document) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.subscribers = append(d.subscribers, fn)
	d.mu.Unlock()
}
