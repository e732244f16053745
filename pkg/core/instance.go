package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-drift/loom/pkg/errors"
)

// Status is the completion state of an instance.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusCreated
	StatusMounted
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusCreated:
		return "created"
	case StatusMounted:
		return "mounted"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "uninitialized"
	}
}

// Scope is what a render function sees. In development builds it reports
// reads of undeclared keys; in production it is the instance itself.
type Scope interface {
	Get(key string) any
	Call(method string, args ...any) any
	Instance() *Instance
}

// Instance is one live component.
type Instance struct {
	uid         uint64
	typ         *Type
	env         *Env
	options     *Options
	status      Status
	renderProxy Scope

	parent           *Instance
	root             *Instance
	children         []*Instance
	refs             map[string]any
	isMounted        bool
	isBeingDestroyed bool
	isDestroyed      bool
	mountTarget      string
	disposers        []func()

	events       map[string][]*listenerEntry
	hasHookEvent bool

	vnode       *VNode
	parentVnode *VNode
	slots       map[string][]*VNode
	attrs       map[string]any
	listeners   map[string]Listener

	props    map[string]any
	data     map[string]any
	methods  map[string]Method
	computed map[string]Computed
	watchers map[string][]*Watcher
	injected map[string]any
	provided map[string]any
}

// New creates and fully initializes an instance of t, merging opts over
// the type's resolved options. A nil type is reported and replaced with a
// fresh root type.
func New(t *Type, opts *Options) *Instance {
	if t == nil {
		errors.Report(&errors.LoomError{
			Op:   "core.New",
			Kind: errors.KindUsage,
			Err:  fmt.Errorf("a component type is required; using a fresh root type"),
		})
		t = NewRootType(nil)
	}
	if opts == nil {
		opts = NewOptions()
	}
	vm := &Instance{typ: t, env: t.env}
	vm.init(opts)
	return vm
}

// UID returns the instance's unique, monotonically increasing identity.
func (vm *Instance) UID() uint64 { return vm.uid }

// Type returns the type the instance was created from.
func (vm *Instance) Type() *Type { return vm.typ }

// Env returns the instance-creation context.
func (vm *Instance) Env() *Env { return vm.env }

// Options returns the instance's resolved options.
func (vm *Instance) Options() *Options { return vm.options }

// Status returns the completion state.
func (vm *Instance) Status() Status { return vm.status }

// Instance returns vm, satisfying Scope.
func (vm *Instance) Instance() *Instance { return vm }

// Scope returns the render scope installed during initialization.
func (vm *Instance) Scope() Scope { return vm.renderProxy }

// Parent returns the nearest non-abstract parent instance.
func (vm *Instance) Parent() *Instance { return vm.parent }

// Root returns the root of the instance tree.
func (vm *Instance) Root() *Instance { return vm.root }

// Children returns the direct child instances.
func (vm *Instance) Children() []*Instance { return slices.Clone(vm.children) }

// Refs returns the ref table.
func (vm *Instance) Refs() map[string]any { return vm.refs }

// IsMounted reports whether the instance has been mounted.
func (vm *Instance) IsMounted() bool { return vm.isMounted }

// IsDestroyed reports whether the instance has been destroyed.
func (vm *Instance) IsDestroyed() bool { return vm.isDestroyed }

// MountTarget returns the target passed to Mount, if any.
func (vm *Instance) MountTarget() string { return vm.mountTarget }

// VNode returns the last rendered tree.
func (vm *Instance) VNode() *VNode { return vm.vnode }

// ParentVnode returns the placeholder node the instance was created for.
func (vm *Instance) ParentVnode() *VNode { return vm.parentVnode }

// Slots returns the resolved slot content.
func (vm *Instance) Slots() map[string][]*VNode { return vm.slots }

// Attrs returns the call-site attributes not consumed as props.
func (vm *Instance) Attrs() map[string]any { return vm.attrs }

// Listeners returns the call-site listeners.
func (vm *Instance) Listeners() map[string]Listener { return vm.listeners }

// Props returns a copy of the resolved prop values.
func (vm *Instance) Props() map[string]any { return maps.Clone(vm.props) }

// Data returns a copy of the instance data.
func (vm *Instance) Data() map[string]any { return maps.Clone(vm.data) }

// Injected returns a copy of the injected values.
func (vm *Instance) Injected() map[string]any { return maps.Clone(vm.injected) }

// Provided returns a copy of the values this instance provides.
func (vm *Instance) Provided() map[string]any { return maps.Clone(vm.provided) }

// Lookup resolves key against props, data, computed, injections and
// methods, in that order.
func (vm *Instance) Lookup(key string) (any, bool) {
	if v, ok := vm.props[key]; ok {
		return v, true
	}
	if v, ok := vm.data[key]; ok {
		return v, true
	}
	if c, ok := vm.computed[key]; ok {
		return c.Get(vm), true
	}
	if v, ok := vm.injected[key]; ok {
		return v, true
	}
	if m, ok := vm.methods[key]; ok {
		return m, true
	}
	return nil, false
}

// Get returns the value of key, or nil.
func (vm *Instance) Get(key string) any {
	v, _ := vm.Lookup(key)
	return v
}

// Has reports whether key is declared on the instance.
func (vm *Instance) Has(key string) bool {
	_, ok := vm.Lookup(key)
	return ok
}

// Set assigns key and notifies its watchers when the value changed.
// Computed properties route through their setter. Undeclared keys are
// added to data.
func (vm *Instance) Set(key string, value any) {
	var old any
	switch {
	case hasKey(vm.props, key):
		vm.warnf("avoid mutating a prop directly since the value will be overwritten whenever the parent re-renders; prop being mutated: %q", key)
		old = vm.props[key]
		vm.props[key] = value
	case hasKey(vm.computed, key):
		c := vm.computed[key]
		if c.Set == nil {
			vm.warnf("computed property %q was assigned to but it has no setter", key)
			return
		}
		c.Set(vm, value)
		return
	default:
		if vm.data == nil {
			vm.data = make(map[string]any)
		}
		old = vm.data[key]
		vm.data[key] = value
	}
	if !identical(old, value) {
		vm.notify(key, value, old)
	}
}

// Call invokes the named method.
func (vm *Instance) Call(method string, args ...any) any {
	m, ok := vm.methods[method]
	if !ok {
		vm.warnf("method %q is not defined on the instance", method)
		return nil
	}
	return m(vm, args...)
}

func (vm *Instance) notify(key string, newVal, oldVal any) {
	for _, w := range slices.Clone(vm.watchers[key]) {
		handler := w.Handler
		invokeWithErrorHandling(func() error {
			handler(vm, newVal, oldVal)
			return nil
		}, vm, "callback for watcher \""+key+"\"")
	}
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

// devScope reports reads of undeclared keys during render.
type devScope struct {
	vm *Instance
}

func (s devScope) Get(key string) any {
	v, ok := s.vm.Lookup(key)
	if !ok && !isReserved(key) {
		s.vm.warnf("property or method %q is not defined on the instance but referenced during render", key)
	}
	return v
}

func (s devScope) Call(method string, args ...any) any {
	return s.vm.Call(method, args...)
}

func (s devScope) Instance() *Instance {
	return s.vm
}

// initProxy installs the render scope appropriate to the build mode.
func initProxy(vm *Instance) {
	if vm.env.config().DevMode() {
		vm.renderProxy = devScope{vm: vm}
	} else {
		vm.renderProxy = vm
	}
}
