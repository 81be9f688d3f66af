package registry

import (
	"sort"
	"strings"

	"github.com/panelkit/panelkit/pkg/errors"
)

// ValidateDependencies checks the full declared graph and returns nil when
// it is acyclic and every declared dependency is registered.
//
// Unlike the cycle check inside Resolve, which stops at the first cycle it
// runs into, validation reports every service participating in any cycle.
// Cycle detection uses Tarjan's strongly connected components in O(N+E);
// a component with more than one member, or a self-loop, is a cycle.
func (r *Registry) ValidateDependencies() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []string
	for _, name := range r.sortedNames() {
		for _, dep := range r.descriptors[name].Dependencies {
			if _, ok := r.descriptors[dep]; !ok {
				missing = append(missing, name+" requires "+dep)
			}
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeNotRegistered,
			"unresolved dependencies: %s", strings.Join(missing, "; "))
	}

	if cyclic := r.cycleParticipants(); len(cyclic) > 0 {
		return errors.New(errors.ErrCodeCircularDependency,
			"services participating in cycles: %s", strings.Join(cyclic, ", "))
	}
	return nil
}

// cycleParticipants returns the sorted names of all services on any cycle.
func (r *Registry) cycleParticipants() []string {
	index := make(map[string]int, len(r.descriptors))
	lowlink := make(map[string]int, len(r.descriptors))
	onStack := make(map[string]bool, len(r.descriptors))
	var stack []string
	next := 0

	var cyclic []string

	var connect func(name string)
	connect = func(name string) {
		index[name] = next
		lowlink[name] = next
		next++
		stack = append(stack, name)
		onStack[name] = true

		for _, dep := range r.descriptors[name].Dependencies {
			if _, ok := r.descriptors[dep]; !ok {
				// Missing deps are reported separately; skip them here.
				continue
			}
			if _, seen := index[dep]; !seen {
				connect(dep)
				lowlink[name] = min(lowlink[name], lowlink[dep])
			} else if onStack[dep] {
				lowlink[name] = min(lowlink[name], index[dep])
			}
		}

		if lowlink[name] == index[name] {
			var component []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				component = append(component, top)
				if top == name {
					break
				}
			}
			if len(component) > 1 || r.selfLoop(name) {
				cyclic = append(cyclic, component...)
			}
		}
	}

	for _, name := range r.sortedNames() {
		if _, seen := index[name]; !seen {
			connect(name)
		}
	}

	sort.Strings(cyclic)
	return cyclic
}

func (r *Registry) selfLoop(name string) bool {
	for _, dep := range r.descriptors[name].Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}
