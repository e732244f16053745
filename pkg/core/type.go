package core

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/go-drift/loom/pkg/config"
	"github.com/go-drift/loom/pkg/perf"
)

// Env is one instance-creation context: the runtime configuration, the
// collaborators the initializer delegates to, and the identity counters.
// Every type declared from a root shares its root's Env.
type Env struct {
	// Config holds the runtime switches. Nil behaves like config.Default().
	Config *config.Config
	// State initializes injections, reactive state and provide.
	State StateInitializer
	// Renderer initializes render contexts and mounts instances.
	Renderer Renderer
	// Perf receives init performance marks when Config.Performance is set.
	Perf perf.Marker

	uid atomic.Uint64
	cid atomic.Int64
}

// NewEnv returns an Env with the default collaborators.
func NewEnv() *Env {
	return &Env{
		Config:   config.Default(),
		State:    DefaultState{},
		Renderer: &BasicRenderer{},
	}
}

func (e *Env) config() *config.Config {
	if e == nil {
		return nil
	}
	return e.Config
}

func (e *Env) nextUID() uint64 {
	return e.uid.Add(1) - 1
}

func (e *Env) nextCID() int {
	return int(e.cid.Add(1))
}

// Type is a component type descriptor: a declared configuration, an
// optional super type, and the cached resolution of the two.
//
// The resolved options are valid as long as the super type's resolved
// options are the same object that was recorded when they were computed.
type Type struct {
	cid   int
	env   *Env
	super *Type

	mu            sync.Mutex
	options       *Options
	superOptions  *Options
	extendOptions *Options
	sealed        map[string]entry
	plugins       []any
}

// NewRootType declares a root type with empty asset registries. A nil env
// uses NewEnv().
func NewRootType(env *Env) *Type {
	if env == nil {
		env = NewEnv()
	}
	opts := newMergedOptions()
	opts.Set(KeyComponents, NewRegistry(nil))
	opts.Set(KeyDirectives, NewRegistry(nil))
	opts.Set(KeyFilters, NewRegistry(nil))
	return &Type{env: env, options: opts}
}

// CID returns the type's identity within its Env. Roots have CID 0.
func (t *Type) CID() int { return t.cid }

// Env returns the instance-creation context of the type.
func (t *Type) Env() *Env { return t.env }

// Super returns the super type, or nil for a root.
func (t *Type) Super() *Type { return t.super }

// Root walks the super chain to the root type.
func (t *Type) Root() *Type {
	cur := t
	for cur.super != nil {
		cur = cur.super
	}
	return cur
}

// Options returns the type's current options without re-resolving. Use
// ResolveOptions to pick up changes to ancestors.
func (t *Type) Options() *Options {
	return t.currentOptions()
}

// ExtendOptions returns the raw declaration the type was created from.
func (t *Type) ExtendOptions() *Options {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extendOptions
}

func (t *Type) currentOptions() *Options {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.options
}

// Extend declares a subtype of super from a raw declaration. Extending the
// same declaration from the same super twice returns the same type.
func Extend(super *Type, ext *Options) *Type {
	if ext == nil {
		ext = NewOptions()
	}
	if cached := ext.cachedCtor(super); cached != nil {
		return cached
	}
	superOptions := super.currentOptions()

	name := ext.Name()
	if name == "" {
		name = superOptions.Name()
	}
	if name != "" && super.env.config().DevMode() {
		validateComponentName(name, super.env)
	}

	sub := &Type{
		cid:   super.env.nextCID(),
		env:   super.env,
		super: super,
	}
	sub.options = mergeOptions(superOptions, ext, nil, super.env)
	sub.superOptions = superOptions
	sub.extendOptions = ext
	if name != "" {
		registerSelf(sub.options, name, sub)
	}
	sub.sealed = sub.options.snapshot()

	ext.cacheCtor(super, sub)
	Logger().Debug("type declared", zap.Int("cid", sub.cid), zap.Int("super", super.cid), zap.String("name", name))
	return sub
}

// Extend declares a subtype of t.
func (t *Type) Extend(ext *Options) *Type {
	return Extend(t, ext)
}

// Mixin merges m into t's options. The new options object invalidates the
// cached resolution of every subtype.
//
// The merge runs outside t's lock, so m may name t among its mixins.
func Mixin(t *Type, m *Options) *Type {
	for {
		base := t.currentOptions()
		merged := mergeOptions(base, m, nil, t.env)

		t.mu.Lock()
		if t.options == base {
			t.options = merged
			t.mu.Unlock()
			return t
		}
		// A concurrent Mixin replaced the options; merge again on top of it.
		t.mu.Unlock()
	}
}

// Mixin merges m into t's options.
func (t *Type) Mixin(m *Options) *Type {
	return Mixin(t, m)
}

// ResolveOptions returns the effective options of t. Roots return their own
// options. Subtypes recompute only when the super type's resolved options
// changed identity since the last computation; otherwise the same cached
// object is returned.
func (t *Type) ResolveOptions() *Options {
	if t.super == nil {
		return t.currentOptions()
	}
	superOptions := t.super.ResolveOptions()

	t.mu.Lock()
	defer t.mu.Unlock()
	if superOptions == t.superOptions {
		return t.options
	}

	t.superOptions = superOptions
	if modified := t.modifiedOptions(); len(modified) > 0 {
		for _, key := range sortedKeys(modified) {
			t.extendOptions.Set(key, modified[key])
		}
	}
	t.options = mergeOptions(superOptions, t.extendOptions, nil, t.env)
	if name := t.options.Name(); name != "" {
		registerSelf(t.options, name, t)
	}
	Logger().Debug("type options re-resolved", zap.Int("cid", t.cid), zap.String("name", t.options.Name()))
	return t.options
}

// registerSelf makes a named type resolvable by its own name from inside
// its templates.
func registerSelf(opts *Options, name string, t *Type) {
	components := opts.Components()
	if components == nil {
		components = NewRegistry(nil)
		opts.Set(KeyComponents, components)
	}
	components.Set(name, t)
}

// modifiedOptions returns the entries of t.options reassigned since the
// type was declared. An entry counts as reassigned when it was set again
// and the new value is not identical to the sealed one.
func (t *Type) modifiedOptions() map[string]any {
	var modified map[string]any
	for key, latest := range t.options.own {
		sealed, ok := t.sealed[key]
		if ok && (sealed.rev == latest.rev || identical(sealed.value, latest.value)) {
			continue
		}
		if modified == nil {
			modified = make(map[string]any)
		}
		modified[key] = latest.value
	}
	return modified
}

// RegisterComponent registers a global component on t. A raw *Options
// definition is extended from the root type first, named id if unnamed.
// It returns the registered type.
func (t *Type) RegisterComponent(id string, def any) *Type {
	if t.env.config().DevMode() {
		validateComponentName(id, t.env)
	}
	var ctor *Type
	switch d := def.(type) {
	case *Type:
		ctor = d
	case *Options:
		if d.Name() == "" {
			d.WithName(id)
		}
		ctor = Extend(t.Root(), d)
	default:
		warn(t.env, nil, "invalid component definition for "+id)
		return nil
	}
	t.currentOptions().Components().Set(id, ctor)
	return ctor
}

// RegisterDirective registers a global directive on t. A bare DirectiveHook
// is bound on bind and update.
func (t *Type) RegisterDirective(id string, def any) {
	t.currentOptions().Directives().Set(id, normalizeDirective(def))
}

// RegisterFilter registers a global filter on t.
func (t *Type) RegisterFilter(id string, f Filter) {
	t.currentOptions().Filters().Set(id, f)
}

// Component looks up a registered component by id.
func (t *Type) Component(id string) (any, bool) {
	return t.currentOptions().Components().Resolve(id)
}

// Directive looks up a registered directive by id.
func (t *Type) Directive(id string) (any, bool) {
	return t.currentOptions().Directives().Resolve(id)
}

// Filter looks up a registered filter by id.
func (t *Type) Filter(id string) (Filter, bool) {
	v, ok := t.currentOptions().Filters().Resolve(id)
	if !ok {
		return nil, false
	}
	f, ok := v.(Filter)
	return f, ok
}
