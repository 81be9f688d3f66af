// Package registry provides the dependency-injection container that wires
// the dashboard services together.
//
// # Overview
//
// Services are registered under a name with a creation strategy (literal
// value, factory function, or constructor with injected dependencies), a
// lifecycle (singleton or transient) and an ordered list of dependency
// names. Resolution walks the declared dependencies depth-first and
// instantiates each service via its strategy.
//
//	reg := registry.New(nil)
//	reg.Register("config", registry.Value(cfg))
//	reg.Register("fetcher", registry.Factory(func(deps ...any) (any, error) {
//	    return fetch.New(deps[0].(*config.Config)), nil
//	}, "config"))
//
//	svc, err := reg.Resolve("fetcher")
//
// Cycles in the declared graph are detected during resolution and by
// [Registry.ValidateDependencies], which reports every participant rather
// than the first one encountered. Child registries created with
// [Registry.NewChild] copy all descriptors and share already-built
// singletons by reference, so request- or view-scoped overrides never
// mutate the parent.
package registry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/panelkit/panelkit/pkg/errors"
)

// ReservedSeparator cannot appear in service names. It is reserved for
// derived keys such as child-scope prefixes.
const ReservedSeparator = ":"

// Lifecycle controls how often a service is instantiated.
type Lifecycle int

const (
	// Singleton services are built once and cached for the registry's
	// lifetime.
	Singleton Lifecycle = iota

	// Transient services are rebuilt on every Resolve call.
	Transient
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	if l == Transient {
		return "transient"
	}
	return "singleton"
}

// Constructor builds a service instance from its resolved dependencies,
// passed in declaration order.
type Constructor func(deps ...any) (any, error)

// Descriptor describes one registered service.
type Descriptor struct {
	Name         string
	Lifecycle    Lifecycle
	Dependencies []string
	Lazy         bool
	RegisteredAt time.Time

	value       any
	constructor Constructor
}

// Option configures a service registration.
type Option func(*Descriptor)

// Value registers a literal instance. The instance is returned as-is on
// every Resolve.
func Value(v any) Option {
	return func(d *Descriptor) { d.value = v; d.constructor = nil }
}

// Factory registers a constructor invoked with the resolved dependencies in
// declaration order.
func Factory(fn Constructor, deps ...string) Option {
	return func(d *Descriptor) {
		d.constructor = fn
		d.Dependencies = deps
	}
}

// WithLifecycle sets the service lifecycle. The default is Singleton.
func WithLifecycle(l Lifecycle) Option {
	return func(d *Descriptor) { d.Lifecycle = l }
}

// WithLazy defers instantiation of a singleton to the first Resolve call.
// Non-lazy singletons are built eagerly at registration time.
func WithLazy(lazy bool) Option {
	return func(d *Descriptor) { d.Lazy = lazy }
}

// Registry is the dependency-injection container. All methods are safe for
// concurrent use.
type Registry struct {
	logger *log.Logger

	mu          sync.Mutex
	descriptors map[string]*Descriptor
	singletons  map[string]any
	resolving   map[string]bool
	order       []string
}

// New creates an empty registry. A nil logger discards registry logs.
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Registry{
		logger:      logger,
		descriptors: make(map[string]*Descriptor),
		singletons:  make(map[string]any),
		resolving:   make(map[string]bool),
	}
}

// Register adds a service under the given name. Registering an existing
// name overwrites the previous descriptor and drops its cached singleton;
// this is logged as a warning, not an error. Non-lazy singletons are built
// immediately so wiring mistakes surface at startup rather than at first
// use.
func (r *Registry) Register(name string, opts ...Option) error {
	if name == "" {
		return errors.New(errors.ErrCodeConfiguration, "service name must not be empty")
	}
	if strings.Contains(name, ReservedSeparator) {
		return errors.New(errors.ErrCodeConfiguration,
			"service name %q contains reserved separator %q", name, ReservedSeparator)
	}

	d := &Descriptor{
		Name:         name,
		Lifecycle:    Singleton,
		Lazy:         true,
		RegisteredAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	r.mu.Lock()
	if _, exists := r.descriptors[name]; exists {
		r.logger.Warn("overwriting service registration", "service", name)
		delete(r.singletons, name)
	} else {
		r.order = append(r.order, name)
	}
	r.descriptors[name] = d
	r.mu.Unlock()

	if d.Lifecycle == Singleton && !d.Lazy {
		if _, err := r.Resolve(name); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns an instance of the named service, building it and its
// dependencies depth-first in declaration order. Singleton instances are
// cached; transient services are rebuilt on every call.
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(name)
}

func (r *Registry) resolveLocked(name string) (any, error) {
	if instance, ok := r.singletons[name]; ok {
		return instance, nil
	}

	if r.resolving[name] {
		return nil, errors.New(errors.ErrCodeCircularDependency,
			"circular dependency detected: %s", strings.Join(r.resolvingChain(name), " -> "))
	}

	d, ok := r.descriptors[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotRegistered, "service %q is not registered", name)
	}

	if d.constructor == nil {
		if d.Lifecycle == Singleton {
			r.singletons[name] = d.value
		}
		return d.value, nil
	}

	r.resolving[name] = true
	defer delete(r.resolving, name)

	deps := make([]any, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		instance, err := r.resolveLocked(dep)
		if err != nil {
			return nil, err
		}
		deps[i] = instance
	}

	instance, err := d.constructor(deps...)
	if err != nil {
		return nil, fmt.Errorf("build service %q: %w", name, err)
	}

	if d.Lifecycle == Singleton {
		r.singletons[name] = instance
	}
	return instance, nil
}

// resolvingChain returns the services currently being resolved, ending at
// the one that closed the cycle. Order follows registration order so the
// message is stable.
func (r *Registry) resolvingChain(last string) []string {
	var chain []string
	for _, name := range r.order {
		if r.resolving[name] {
			chain = append(chain, name)
		}
	}
	return append(chain, last)
}

// Has reports whether a service is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.descriptors[name]
	return ok
}

// Remove deletes a service and its cached singleton. Removing an unknown
// name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descriptors[name]; !ok {
		return
	}
	delete(r.descriptors, name)
	delete(r.singletons, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear removes every service and cached instance.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = make(map[string]*Descriptor)
	r.singletons = make(map[string]any)
	r.order = nil
}

// Names returns the registered service names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// DependencyGraph returns a snapshot adjacency from each service to its
// declared dependency names. Mutating the result does not affect the
// registry.
func (r *Registry) DependencyGraph() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	graph := make(map[string][]string, len(r.descriptors))
	for name, d := range r.descriptors {
		deps := make([]string, len(d.Dependencies))
		copy(deps, d.Dependencies)
		graph[name] = deps
	}
	return graph
}

// NewChild creates a registry pre-seeded with copies of all descriptors.
// Singletons already built in the parent are shared by reference; services
// not yet instantiated are built independently in the child. Registrations
// on the child never mutate the parent.
func (r *Registry) NewChild() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	child := New(r.logger)
	for _, name := range r.order {
		d := r.descriptors[name]
		cp := *d
		cp.Dependencies = make([]string, len(d.Dependencies))
		copy(cp.Dependencies, d.Dependencies)
		child.descriptors[name] = &cp
		child.order = append(child.order, name)
	}
	for name, instance := range r.singletons {
		child.singletons[name] = instance
	}
	return child
}

// sortedNames returns all registered names sorted, for deterministic
// traversal in validation and export.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
