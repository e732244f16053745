package core

import (
	"maps"
	"reflect"
	"slices"
	"sync/atomic"
)

// Option keys recognised by the merge policy table.
const (
	KeyName            = "name"
	KeyEl              = "el"
	KeyData            = "data"
	KeyProps           = "props"
	KeyPropsData       = "propsData"
	KeyMethods         = "methods"
	KeyComputed        = "computed"
	KeyWatch           = "watch"
	KeyComponents      = "components"
	KeyDirectives      = "directives"
	KeyFilters         = "filters"
	KeyProvide         = "provide"
	KeyInject          = "inject"
	KeyMixins          = "mixins"
	KeyExtends         = "extends"
	KeyParent          = "parent"
	KeyAbstract        = "abstract"
	KeyRender          = "render"
	KeyStaticRenderFns = "staticRenderFns"
	KeyErrorCaptured   = "errorCaptured"

	keyParentVnode     = "_parentVnode"
	keyParentListeners = "_parentListeners"
	keyRenderChildren  = "_renderChildren"
	keyComponentTag    = "_componentTag"
)

// LifecycleHook names a hook slot whose values are concatenated across the
// inheritance chain.
type LifecycleHook string

const (
	BeforeCreate   LifecycleHook = "beforeCreate"
	Created        LifecycleHook = "created"
	BeforeMount    LifecycleHook = "beforeMount"
	Mounted        LifecycleHook = "mounted"
	BeforeUpdate   LifecycleHook = "beforeUpdate"
	Updated        LifecycleHook = "updated"
	BeforeDestroy  LifecycleHook = "beforeDestroy"
	Destroyed      LifecycleHook = "destroyed"
	Activated      LifecycleHook = "activated"
	Deactivated    LifecycleHook = "deactivated"
	ServerPrefetch LifecycleHook = "serverPrefetch"
)

// LifecycleHooks lists every hook slot in invocation order.
var LifecycleHooks = []LifecycleHook{
	BeforeCreate, Created, BeforeMount, Mounted, BeforeUpdate, Updated,
	BeforeDestroy, Destroyed, Activated, Deactivated, ServerPrefetch,
}

// HookFunc is a lifecycle callback. A returned error (or a panic) is routed
// through errorCaptured hooks and then to the global error handler.
type HookFunc func(vm *Instance) error

// Hook wraps a HookFunc with a stable identity so merged hook lists can be
// deduplicated.
type Hook struct {
	fn HookFunc
}

// NewHook allocates a hook for fn.
func NewHook(fn HookFunc) *Hook {
	return &Hook{fn: fn}
}

// ErrorCapturedFunc observes an error raised by a descendant. Returning
// false stops further propagation.
type ErrorCapturedFunc func(err error, vm *Instance, info string) bool

// ErrorHook wraps an ErrorCapturedFunc with a stable identity.
type ErrorHook struct {
	fn ErrorCapturedFunc
}

// DataFunc produces per-instance data (also used for provide).
type DataFunc func(vm *Instance) map[string]any

// Prop declares one component property.
type Prop struct {
	// Type restricts the value kind. reflect.Invalid accepts any value.
	Type reflect.Kind
	// Default is used when the call site omits the prop. A
	// func(*Instance) any is called to produce the value.
	Default any
	// Required warns when the call site omits the prop.
	Required bool
	// Validator warns when it returns false for the resolved value.
	Validator func(value any) bool
}

// Method is a component method.
type Method func(vm *Instance, args ...any) any

// Computed is a derived property.
type Computed struct {
	Get func(vm *Instance) any
	Set func(vm *Instance, value any)
}

// Watcher observes assignments to a key.
type Watcher struct {
	Handler   func(vm *Instance, newVal, oldVal any)
	Immediate bool
}

// Inject declares one injected value.
type Inject struct {
	// From is the provide key to look up. Defaults to the inject key.
	From string
	// Default is used when no ancestor provides From. A func(*Instance) any
	// is called to produce the value.
	Default any
}

// RenderFunc produces the instance's virtual node tree.
type RenderFunc func(scope Scope, h CreateElementFunc) *VNode

// CreateElementFunc creates a virtual node for a tag or component.
type CreateElementFunc func(tag any, data *VNodeData, children ...*VNode) *VNode

var revision atomic.Uint64

func nextRevision() uint64 {
	return revision.Add(1)
}

type entry struct {
	value any
	rev   uint64
}

// Options is a component configuration: a mapping from option key to
// value. Lookup consults the own mapping first and then the optional base,
// which lets the internal instantiation path layer call-site fields over a
// type's resolved configuration without copying it.
//
// Options produced by merging are marked merged; raw declarations are not.
// Only raw declarations have their extends and mixins expanded.
//
// Options are not safe for concurrent mutation.
type Options struct {
	base   *Options
	own    map[string]entry
	merged bool
	ctors  map[*Type]*Type
}

// NewOptions returns an empty raw declaration.
func NewOptions() *Options {
	return &Options{own: make(map[string]entry)}
}

func newMergedOptions() *Options {
	return &Options{own: make(map[string]entry), merged: true}
}

// Derive returns a layered configuration whose unset keys resolve through o.
func (o *Options) Derive() *Options {
	return &Options{base: o, own: make(map[string]entry), merged: true}
}

// Base returns the configuration unset keys fall through to, if any.
func (o *Options) Base() *Options {
	return o.base
}

// Merged reports whether o was produced by merging.
func (o *Options) Merged() bool {
	return o.merged
}

// Lookup returns the value for key from the own mapping or the base chain.
func (o *Options) Lookup(key string) (any, bool) {
	for cur := o; cur != nil; cur = cur.base {
		if e, ok := cur.own[key]; ok {
			return e.value, true
		}
	}
	return nil, false
}

// Get returns the value for key, or nil.
func (o *Options) Get(key string) any {
	if o == nil {
		return nil
	}
	v, _ := o.Lookup(key)
	return v
}

// Has reports whether key is set on o or its base chain.
func (o *Options) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// HasOwn reports whether key is set directly on o.
func (o *Options) HasOwn(key string) bool {
	_, ok := o.own[key]
	return ok
}

// Set assigns key on the own mapping.
func (o *Options) Set(key string, value any) *Options {
	o.own[key] = entry{value: value, rev: nextRevision()}
	return o
}

// Delete removes key from the own mapping.
func (o *Options) Delete(key string) {
	delete(o.own, key)
}

// Keys returns every key visible through o, sorted.
func (o *Options) Keys() []string {
	seen := make(map[string]struct{})
	for cur := o; cur != nil; cur = cur.base {
		for k := range cur.own {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// OwnKeys returns the keys set directly on o, sorted.
func (o *Options) OwnKeys() []string {
	return slices.Sorted(maps.Keys(o.own))
}

func (o *Options) snapshot() map[string]entry {
	return maps.Clone(o.own)
}

func (o *Options) cachedCtor(super *Type) *Type {
	return o.ctors[super]
}

func (o *Options) cacheCtor(super, t *Type) {
	if o.ctors == nil {
		o.ctors = make(map[*Type]*Type)
	}
	o.ctors[super] = t
}

// Declaration helpers. Each returns o for chaining.

// WithName sets the component name.
func (o *Options) WithName(name string) *Options { return o.Set(KeyName, name) }

// WithEl sets the mount target.
func (o *Options) WithEl(target string) *Options { return o.Set(KeyEl, target) }

// WithData sets the data function.
func (o *Options) WithData(fn DataFunc) *Options { return o.Set(KeyData, fn) }

// WithProvide sets the provide function.
func (o *Options) WithProvide(fn DataFunc) *Options { return o.Set(KeyProvide, fn) }

// WithProps declares props.
func (o *Options) WithProps(props map[string]Prop) *Options { return o.Set(KeyProps, props) }

// WithPropNames declares untyped props by name.
func (o *Options) WithPropNames(names ...string) *Options { return o.Set(KeyProps, names) }

// WithPropsData supplies prop values for explicit instantiation.
func (o *Options) WithPropsData(values map[string]any) *Options { return o.Set(KeyPropsData, values) }

// WithMethods declares methods.
func (o *Options) WithMethods(methods map[string]Method) *Options { return o.Set(KeyMethods, methods) }

// WithComputed declares computed properties.
func (o *Options) WithComputed(computed map[string]Computed) *Options {
	return o.Set(KeyComputed, computed)
}

// WithInject declares injections.
func (o *Options) WithInject(inject map[string]Inject) *Options { return o.Set(KeyInject, inject) }

// WithInjectNames declares injections by provide key.
func (o *Options) WithInjectNames(names ...string) *Options { return o.Set(KeyInject, names) }

// WithParent sets the parent instance for explicit instantiation.
func (o *Options) WithParent(parent *Instance) *Options { return o.Set(KeyParent, parent) }

// WithAbstract marks the component abstract: it is skipped in parent/child bookkeeping.
func (o *Options) WithAbstract(abstract bool) *Options { return o.Set(KeyAbstract, abstract) }

// WithRender sets the render function.
func (o *Options) WithRender(fn RenderFunc) *Options { return o.Set(KeyRender, fn) }

// WithExtends sets a single *Options or *Type to inherit from before mixins.
func (o *Options) WithExtends(def any) *Options { return o.Set(KeyExtends, def) }

// WithMixins sets mixins (*Options or *Type), applied in order.
func (o *Options) WithMixins(mixins ...any) *Options { return o.Set(KeyMixins, mixins) }

// WithWatch appends a watcher for key.
func (o *Options) WithWatch(key string, w Watcher) *Options {
	watch, _ := o.Get(KeyWatch).(map[string][]Watcher)
	next := make(map[string][]Watcher, len(watch)+1)
	for k, ws := range watch {
		next[k] = slices.Clone(ws)
	}
	next[key] = append(next[key], w)
	return o.Set(KeyWatch, next)
}

// WithComponent registers a nested component (*Type or *Options).
func (o *Options) WithComponent(name string, def any) *Options {
	return o.withAsset(KeyComponents, name, def)
}

// WithDirective registers a directive.
func (o *Options) WithDirective(name string, def any) *Options {
	return o.withAsset(KeyDirectives, name, normalizeDirective(def))
}

// WithFilter registers a filter.
func (o *Options) WithFilter(name string, f Filter) *Options {
	return o.withAsset(KeyFilters, name, f)
}

func (o *Options) withAsset(key, name string, def any) *Options {
	assets, _ := o.Get(key).(map[string]any)
	next := maps.Clone(assets)
	if next == nil {
		next = make(map[string]any)
	}
	next[name] = def
	return o.Set(key, next)
}

// On appends a lifecycle hook.
func (o *Options) On(hook LifecycleHook, fn HookFunc) *Options {
	hooks, _ := o.Get(string(hook)).([]*Hook)
	return o.Set(string(hook), append(slices.Clone(hooks), NewHook(fn)))
}

// OnErrorCaptured appends an errorCaptured hook.
func (o *Options) OnErrorCaptured(fn ErrorCapturedFunc) *Options {
	hooks, _ := o.Get(KeyErrorCaptured).([]*ErrorHook)
	return o.Set(KeyErrorCaptured, append(slices.Clone(hooks), &ErrorHook{fn: fn}))
}

// Typed accessors.

// Name returns the declared component name.
func (o *Options) Name() string {
	s, _ := o.Get(KeyName).(string)
	return s
}

// El returns the mount target.
func (o *Options) El() string {
	s, _ := o.Get(KeyEl).(string)
	return s
}

// Hooks returns the hook list for hook.
func (o *Options) Hooks(hook LifecycleHook) []*Hook {
	hooks, _ := o.Get(string(hook)).([]*Hook)
	return hooks
}

// ErrorCapturedHooks returns the errorCaptured hook list.
func (o *Options) ErrorCapturedHooks() []*ErrorHook {
	hooks, _ := o.Get(KeyErrorCaptured).([]*ErrorHook)
	return hooks
}

// Components returns the nested component registry.
func (o *Options) Components() *Registry {
	r, _ := o.Get(KeyComponents).(*Registry)
	return r
}

// Directives returns the directive registry.
func (o *Options) Directives() *Registry {
	r, _ := o.Get(KeyDirectives).(*Registry)
	return r
}

// Filters returns the filter registry.
func (o *Options) Filters() *Registry {
	r, _ := o.Get(KeyFilters).(*Registry)
	return r
}

// Props returns the normalized prop declarations.
func (o *Options) Props() map[string]Prop {
	p, _ := o.Get(KeyProps).(map[string]Prop)
	return p
}

// PropsData returns the prop values supplied for this instantiation.
func (o *Options) PropsData() map[string]any {
	p, _ := o.Get(KeyPropsData).(map[string]any)
	return p
}

// Methods returns the method declarations.
func (o *Options) Methods() map[string]Method {
	m, _ := o.Get(KeyMethods).(map[string]Method)
	return m
}

// Computed returns the computed declarations.
func (o *Options) Computed() map[string]Computed {
	c, _ := o.Get(KeyComputed).(map[string]Computed)
	return c
}

// Watchers returns the watcher declarations.
func (o *Options) Watchers() map[string][]Watcher {
	w, _ := o.Get(KeyWatch).(map[string][]Watcher)
	return w
}

// Inject returns the normalized injection declarations.
func (o *Options) Inject() map[string]Inject {
	i, _ := o.Get(KeyInject).(map[string]Inject)
	return i
}

// RenderFn returns the render function.
func (o *Options) RenderFn() RenderFunc {
	r, _ := o.Get(KeyRender).(RenderFunc)
	return r
}

// StaticRenderFns returns the static render functions.
func (o *Options) StaticRenderFns() []RenderFunc {
	r, _ := o.Get(KeyStaticRenderFns).([]RenderFunc)
	return r
}

// Parent returns the parent instance, if any.
func (o *Options) Parent() *Instance {
	p, _ := o.Get(KeyParent).(*Instance)
	return p
}

// Abstract reports whether the component is abstract.
func (o *Options) Abstract() bool {
	a, _ := o.Get(KeyAbstract).(bool)
	return a
}

// ParentVnode returns the placeholder node of an internally created instance.
func (o *Options) ParentVnode() *VNode {
	v, _ := o.Get(keyParentVnode).(*VNode)
	return v
}

// ParentListeners returns the listeners registered at the call site.
func (o *Options) ParentListeners() map[string]Listener {
	l, _ := o.Get(keyParentListeners).(map[string]Listener)
	return l
}

// RenderChildren returns the slot content passed at the call site.
func (o *Options) RenderChildren() []*VNode {
	c, _ := o.Get(keyRenderChildren).([]*VNode)
	return c
}

// ComponentTag returns the tag used at the call site.
func (o *Options) ComponentTag() string {
	s, _ := o.Get(keyComponentTag).(string)
	return s
}
