// Package definition builds component types from loom.yaml declarations.
package definition

import (
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/go-drift/loom/cmd/loom/internal/config"
	"github.com/go-drift/loom/pkg/core"
)

// Set is the type hierarchy built from one project's declarations.
type Set struct {
	Root  *core.Type
	types map[string]*core.Type
}

// Lookup returns the type declared as name.
func (s *Set) Lookup(name string) (*core.Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Names returns the declared component names, sorted.
func (s *Set) Names() []string {
	return slices.Sorted(maps.Keys(s.types))
}

type builder struct {
	root     *core.Type
	decls    map[string]config.ComponentConfig
	types    map[string]*core.Type
	visiting []string
	logger   *zap.Logger
}

// Build declares a type for every component, extending its declared
// parent (or the root type) and applying its mixins. A nil env uses
// core.NewEnv().
func Build(env *core.Env, components []config.ComponentConfig, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &builder{
		root:   core.NewRootType(env),
		decls:  make(map[string]config.ComponentConfig, len(components)),
		types:  make(map[string]*core.Type, len(components)),
		logger: logger,
	}
	for _, c := range components {
		if _, dup := b.decls[c.Name]; dup {
			return nil, fmt.Errorf("component %q is declared more than once", c.Name)
		}
		b.decls[c.Name] = c
	}

	for _, c := range components {
		if _, err := b.build(c.Name); err != nil {
			return nil, err
		}
	}

	// Local and global registrations reference built types, so they are
	// wired once every type exists. Mutual references are allowed.
	for _, c := range components {
		t := b.types[c.Name]
		for _, name := range c.Components {
			dep, ok := b.types[name]
			if !ok {
				return nil, fmt.Errorf("component %q uses unknown component %q", c.Name, name)
			}
			// The declaration keeps the entry across re-resolution.
			t.ExtendOptions().WithComponent(name, dep)
			t.Options().Components().Set(name, dep)
		}
		if c.Global {
			b.root.RegisterComponent(c.Name, t)
		}
	}

	return &Set{Root: b.root, types: b.types}, nil
}

func (b *builder) build(name string) (*core.Type, error) {
	if t, ok := b.types[name]; ok {
		return t, nil
	}
	decl, ok := b.decls[name]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	if slices.Contains(b.visiting, name) {
		return nil, fmt.Errorf("component inheritance cycle: %s -> %s", strings.Join(b.visiting, " -> "), name)
	}
	b.visiting = append(b.visiting, name)
	defer func() { b.visiting = b.visiting[:len(b.visiting)-1] }()

	super := b.root
	if decl.Extends != "" {
		parent, err := b.build(decl.Extends)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", name, err)
		}
		super = parent
	}

	opts, err := b.options(decl)
	if err != nil {
		return nil, err
	}
	t := super.Extend(opts)
	b.types[name] = t
	b.logger.Debug("component declared",
		zap.String("name", name),
		zap.Int("cid", t.CID()),
		zap.String("extends", decl.Extends))
	return t, nil
}

func (b *builder) options(decl config.ComponentConfig) (*core.Options, error) {
	opts := core.NewOptions().WithName(decl.Name)

	if len(decl.Mixins) > 0 {
		mixins := make([]any, 0, len(decl.Mixins))
		for _, m := range decl.Mixins {
			t, err := b.build(m)
			if err != nil {
				return nil, fmt.Errorf("component %q mixin: %w", decl.Name, err)
			}
			mixins = append(mixins, t)
		}
		opts.WithMixins(mixins...)
	}

	if len(decl.Props) > 0 {
		props := make(map[string]core.Prop, len(decl.Props))
		for _, p := range decl.Props {
			prop := core.Prop{Type: kinds[p.Type], Required: p.Required, Default: p.Default}
			if def := p.Default; def != nil && isCollection(def) {
				prop.Default = func(*core.Instance) any { return deepCopy(def) }
			}
			props[p.Name] = prop
		}
		opts.WithProps(props)
	}
	if decl.Data != nil {
		opts.WithData(staticData(decl.Data))
	}
	if decl.Provide != nil {
		opts.WithProvide(staticData(decl.Provide))
	}
	if len(decl.Inject) > 0 {
		opts.WithInjectNames(decl.Inject...)
	}
	for _, hook := range slices.Sorted(maps.Keys(decl.Hooks)) {
		if !slices.Contains(core.LifecycleHooks, core.LifecycleHook(hook)) {
			return nil, fmt.Errorf("component %q: unknown hook %q", decl.Name, hook)
		}
		for _, action := range decl.Hooks[hook] {
			opts.On(core.LifecycleHook(hook), actionHook(action))
		}
	}
	if decl.Render != nil {
		opts.WithRender(renderFunc(*decl.Render))
	}
	return opts, nil
}

var kinds = map[string]reflect.Kind{
	"":       reflect.Invalid,
	"any":    reflect.Invalid,
	"string": reflect.String,
	"int":    reflect.Int,
	"float":  reflect.Float64,
	"bool":   reflect.Bool,
	"map":    reflect.Map,
	"list":   reflect.Slice,
}

// staticData returns a data function producing a fresh deep copy of values
// for every instance.
func staticData(values map[string]any) core.DataFunc {
	return func(*core.Instance) map[string]any {
		return deepCopy(values).(map[string]any)
	}
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[k] = deepCopy(item)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = deepCopy(item)
		}
		return res
	default:
		return v
	}
}

func actionHook(action config.ActionConfig) core.HookFunc {
	return func(vm *core.Instance) error {
		for _, key := range slices.Sorted(maps.Keys(action.Set)) {
			vm.Set(key, deepCopy(action.Set[key]))
		}
		if key := action.Increment; key != "" {
			switch n := vm.Get(key).(type) {
			case nil:
				vm.Set(key, 1)
			case int:
				vm.Set(key, n+1)
			case float64:
				vm.Set(key, n+1)
			default:
				return fmt.Errorf("cannot increment %q holding %T", key, n)
			}
		}
		if action.Emit != "" {
			vm.Emit(action.Emit)
		}
		return nil
	}
}

var interpolation = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// renderFunc compiles a declarative node into a render function.
func renderFunc(node config.NodeConfig) core.RenderFunc {
	return func(scope core.Scope, h core.CreateElementFunc) *core.VNode {
		return renderNode(node, scope, h)
	}
}

func renderNode(node config.NodeConfig, scope core.Scope, h core.CreateElementFunc) *core.VNode {
	if node.Outlet != "" {
		slot := scope.Instance().Slots()[node.Outlet]
		if len(slot) == 1 {
			return slot[0]
		}
		return h("template", nil, slot...)
	}
	if node.Tag == "" {
		return core.TextVNode(interpolate(node.Text, scope))
	}

	var data *core.VNodeData
	if len(node.Attrs) > 0 || len(node.Props) > 0 || node.Slot != "" {
		data = &core.VNodeData{
			Attrs: bind(node.Attrs, scope),
			Props: bind(node.Props, scope),
			Slot:  node.Slot,
		}
	}
	children := make([]*core.VNode, 0, len(node.Children)+1)
	if node.Text != "" {
		children = append(children, core.TextVNode(interpolate(node.Text, scope)))
	}
	for _, child := range node.Children {
		children = append(children, renderNode(child, scope, h))
	}
	return h(node.Tag, data, children...)
}

func interpolate(text string, scope core.Scope) string {
	return interpolation.ReplaceAllStringFunc(text, func(m string) string {
		key := interpolation.FindStringSubmatch(m)[1]
		return fmt.Sprint(scope.Get(key))
	})
}

func bind(values map[string]any, scope core.Scope) map[string]any {
	if values == nil {
		return nil
	}
	res := make(map[string]any, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok && strings.HasPrefix(s, ":") {
			res[k] = scope.Get(strings.TrimPrefix(s, ":"))
			continue
		}
		res[k] = deepCopy(v)
	}
	return res
}
