package core

import (
	"maps"
	"slices"
)

// Registry is a named asset table (components, directives, filters) with
// prototypal overlay: entries set on a registry shadow same-named entries of
// its parent, and unshadowed parent entries stay visible.
type Registry struct {
	parent *Registry
	own    map[string]any
}

// NewRegistry creates a registry layered over parent (which may be nil).
func NewRegistry(parent *Registry) *Registry {
	return &Registry{parent: parent, own: make(map[string]any)}
}

// Parent returns the registry this one overlays.
func (r *Registry) Parent() *Registry {
	return r.parent
}

// Set registers value under name on this registry.
func (r *Registry) Set(name string, value any) {
	r.own[name] = value
}

// Get looks name up on this registry and then its parents.
func (r *Registry) Get(name string) (any, bool) {
	for cur := r; cur != nil; cur = cur.parent {
		if v, ok := cur.own[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Own looks name up on this registry only.
func (r *Registry) Own(name string) (any, bool) {
	v, ok := r.own[name]
	return v, ok
}

// Names returns every visible name, sorted.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	for cur := r; cur != nil; cur = cur.parent {
		for k := range cur.own {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// OwnNames returns the names set on this registry, sorted.
func (r *Registry) OwnNames() []string {
	return slices.Sorted(maps.Keys(r.own))
}

// Resolve finds an asset by id, trying the id as written, camelized and
// PascalCased, first on this registry and then through its parents.
func (r *Registry) Resolve(id string) (any, bool) {
	if r == nil {
		return nil, false
	}
	camel := camelize(id)
	pascal := capitalize(camel)
	for _, name := range []string{id, camel, pascal} {
		if v, ok := r.own[name]; ok {
			return v, true
		}
	}
	for _, name := range []string{id, camel, pascal} {
		if v, ok := r.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Filter transforms a value in a template expression.
type Filter func(value any, args ...any) any

// DirectiveHook is invoked for one directive lifecycle step.
type DirectiveHook func(el any, value any)

// Directive groups the hooks of a custom directive.
type Directive struct {
	Bind             DirectiveHook
	Inserted         DirectiveHook
	Update           DirectiveHook
	ComponentUpdated DirectiveHook
	Unbind           DirectiveHook
}

// normalizeDirective expands a bare hook into a directive bound on bind and update.
func normalizeDirective(def any) any {
	switch d := def.(type) {
	case DirectiveHook:
		return &Directive{Bind: d, Update: d}
	case func(el any, value any):
		return &Directive{Bind: d, Update: d}
	}
	return def
}
