package app

import (
	"sort"

	"github.com/perpwatch/funding-radar/internal/apperror"
)

// Registry holds the set of named connectors. It performs no I/O; it only
// resolves names to instances and enumerates what is available.
type Registry struct {
	connectors map[string]Connector
	order      []string
}

// NewRegistry creates a registry pre-populated with the given connectors.
// Registration order is preserved for enumeration.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a connector under its own name.
func (r *Registry) Register(c Connector) {
	name := c.Name()
	if _, exists := r.connectors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.connectors[name] = c
}

// Resolve returns the connector registered under name.
func (r *Registry) Resolve(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownSource, apperror.WithContext(name))
	}
	return c, nil
}

// AllNames returns every registered connector name in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NamesExcept returns registered names minus the disabled set, preserving
// registration order.
func (r *Registry) NamesExcept(disabled []string) []string {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}

	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}

// SortedNames returns every registered name in lexical order, for display.
func (r *Registry) SortedNames() []string {
	out := r.AllNames()
	sort.Strings(out)
	return out
}
