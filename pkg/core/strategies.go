package core

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sync"
)

// MergeContext carries what a strategy needs besides the two values.
type MergeContext struct {
	// Key is the option being merged.
	Key string
	// VM is the instance being created, or nil when merging type
	// declarations (Extend, Mixin).
	VM *Instance
	// Env supplies configuration for diagnostics.
	Env *Env
}

func (c MergeContext) warnf(format string, args ...any) {
	warn(c.Env, c.VM, fmt.Sprintf(format, args...))
}

// MergeStrategy combines a parent and a child option value. A nil child
// means the child did not declare the key. Returning nil leaves the key
// unset on the merged options.
type MergeStrategy func(parentVal, childVal any, ctx MergeContext) any

var builtinStrategies = map[string]MergeStrategy{
	KeyEl:            creationOnlyStrategy,
	KeyPropsData:     creationOnlyStrategy,
	KeyData:          dataStrategy,
	KeyProvide:       provideStrategy,
	KeyWatch:         watchStrategy,
	KeyProps:         extendStrategy[Prop],
	KeyMethods:       extendStrategy[Method],
	KeyInject:        extendStrategy[Inject],
	KeyComputed:      extendStrategy[Computed],
	KeyComponents:    assetStrategy,
	KeyDirectives:    assetStrategy,
	KeyFilters:       assetStrategy,
	KeyErrorCaptured: errorHookStrategy,
}

func init() {
	for _, hook := range LifecycleHooks {
		builtinStrategies[string(hook)] = hookStrategy
	}
}

var (
	customStrategies   = make(map[string]MergeStrategy)
	customStrategiesMu sync.RWMutex
)

// SetMergeStrategy installs a strategy for key, overriding the built-in
// policy. A nil strategy removes the override.
func SetMergeStrategy(key string, s MergeStrategy) {
	customStrategiesMu.Lock()
	defer customStrategiesMu.Unlock()
	if s == nil {
		delete(customStrategies, key)
		return
	}
	customStrategies[key] = s
}

func strategyFor(key string) MergeStrategy {
	customStrategiesMu.RLock()
	s, ok := customStrategies[key]
	customStrategiesMu.RUnlock()
	if ok {
		return s
	}
	if s, ok := builtinStrategies[key]; ok {
		return s
	}
	return defaultStrategy
}

// defaultStrategy takes the child's value when declared, else the parent's.
func defaultStrategy(parentVal, childVal any, _ MergeContext) any {
	if childVal == nil {
		return parentVal
	}
	return childVal
}

// creationOnlyStrategy is the default policy for keys that only make sense
// on an explicit instantiation.
func creationOnlyStrategy(parentVal, childVal any, ctx MergeContext) any {
	if ctx.VM == nil && childVal != nil {
		ctx.warnf("option %q can only be used during instance creation with core.New", ctx.Key)
	}
	return defaultStrategy(parentVal, childVal, ctx)
}

func toHooks(v any) []*Hook {
	switch h := v.(type) {
	case []*Hook:
		return h
	case *Hook:
		return []*Hook{h}
	case HookFunc:
		return []*Hook{NewHook(h)}
	case func(*Instance) error:
		return []*Hook{NewHook(h)}
	}
	return nil
}

func toErrorHooks(v any) []*ErrorHook {
	switch h := v.(type) {
	case []*ErrorHook:
		return h
	case *ErrorHook:
		return []*ErrorHook{h}
	case ErrorCapturedFunc:
		return []*ErrorHook{{fn: h}}
	case func(error, *Instance, string) bool:
		return []*ErrorHook{{fn: h}}
	}
	return nil
}

// concatHooks appends child after parent and drops repeated references,
// keeping the first occurrence.
func concatHooks[T comparable](parent, child []T) []T {
	if len(child) == 0 {
		return parent
	}
	res := make([]T, 0, len(parent)+len(child))
	for _, h := range slices.Concat(parent, child) {
		if !slices.Contains(res, h) {
			res = append(res, h)
		}
	}
	return res
}

func hookStrategy(parentVal, childVal any, ctx MergeContext) any {
	if childVal != nil && toHooks(childVal) == nil {
		ctx.warnf("invalid value for hook %q: expected a hook list, got %T", ctx.Key, childVal)
	}
	res := concatHooks(toHooks(parentVal), toHooks(childVal))
	if len(res) == 0 {
		return nil
	}
	return res
}

func errorHookStrategy(parentVal, childVal any, _ MergeContext) any {
	res := concatHooks(toErrorHooks(parentVal), toErrorHooks(childVal))
	if len(res) == 0 {
		return nil
	}
	return res
}

// assetStrategy overlays the child's entries on a new registry whose parent
// is the parent's registry.
func assetStrategy(parentVal, childVal any, ctx MergeContext) any {
	parent, _ := parentVal.(*Registry)
	res := NewRegistry(parent)
	switch c := childVal.(type) {
	case nil:
	case *Registry:
		maps.Copy(res.own, c.own)
	case map[string]any:
		maps.Copy(res.own, c)
	default:
		ctx.warnf("invalid value for option %q: expected a name map, got %T", ctx.Key, childVal)
	}
	return res
}

// extendStrategy merges keyed declarations; child entries replace parent
// entries of the same name.
func extendStrategy[V any](parentVal, childVal any, ctx MergeContext) any {
	parent, _ := parentVal.(map[string]V)
	child, ok := childVal.(map[string]V)
	if childVal != nil && !ok {
		ctx.warnf("invalid value for option %q: expected %T, got %T", ctx.Key, child, childVal)
	}
	if parent == nil {
		if child == nil {
			return nil
		}
		return child
	}
	res := maps.Clone(parent)
	maps.Copy(res, child)
	return res
}

func watchStrategy(parentVal, childVal any, ctx MergeContext) any {
	parent, _ := parentVal.(map[string][]Watcher)
	child, ok := childVal.(map[string][]Watcher)
	if childVal != nil && !ok {
		ctx.warnf("invalid value for option %q: expected %T, got %T", ctx.Key, child, childVal)
	}
	if child == nil {
		if parent == nil {
			return nil
		}
		return parent
	}
	res := make(map[string][]Watcher, len(parent)+len(child))
	for k, ws := range parent {
		res[k] = ws
	}
	for k, ws := range child {
		res[k] = slices.Concat(res[k], ws)
	}
	return res
}

func isDataValue(v any) bool {
	switch v.(type) {
	case DataFunc, func(*Instance) map[string]any, map[string]any:
		return true
	}
	return false
}

func dataStrategy(parentVal, childVal any, ctx MergeContext) any {
	if ctx.VM == nil && childVal != nil {
		switch childVal.(type) {
		case DataFunc, func(*Instance) map[string]any:
		default:
			ctx.warnf("the %q option should be a function that returns a per-instance value in component definitions", ctx.Key)
			return parentVal
		}
	}
	return mergeDataOrFn(parentVal, childVal, ctx)
}

func provideStrategy(parentVal, childVal any, ctx MergeContext) any {
	return mergeDataOrFn(parentVal, childVal, ctx)
}

// mergeDataOrFn composes two data-like values into one DataFunc which
// invokes the parent and then the child and merges their results, the
// child winning on conflicts.
func mergeDataOrFn(parentVal, childVal any, ctx MergeContext) any {
	if childVal != nil && !isDataValue(childVal) {
		ctx.warnf("invalid value for option %q: expected a data function, got %T", ctx.Key, childVal)
		return parentVal
	}
	if childVal == nil {
		return parentVal
	}
	if parentVal == nil {
		return childVal
	}
	key := ctx.Key
	return DataFunc(func(vm *Instance) map[string]any {
		parentData := callData(parentVal, vm, key)
		childData := callData(childVal, vm, key)
		if childData == nil {
			return parentData
		}
		return mergeData(childData, parentData, vm, key)
	})
}

// callData evaluates a data value. Panics are reported through the error
// handling chain and yield an empty map.
func callData(v any, vm *Instance, key string) (data map[string]any) {
	var fn func(*Instance) map[string]any
	switch d := v.(type) {
	case map[string]any:
		return d
	case DataFunc:
		fn = d
	case func(*Instance) map[string]any:
		fn = d
	default:
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			handleError(nil, r, vm, key+"()")
			data = map[string]any{}
		}
	}()
	return fn(vm)
}

// mergeData returns a new map holding to's entries plus from's entries for
// keys to lacks. Nested maps merge recursively; a map on one side and a
// non-map on the other is reported and to's value kept.
func mergeData(to, from map[string]any, vm *Instance, path string) map[string]any {
	res := maps.Clone(to)
	for key, fromVal := range from {
		toVal, ok := res[key]
		if !ok {
			res[key] = fromVal
			continue
		}
		if identical(toVal, fromVal) {
			continue
		}
		toMap, toIsMap := toVal.(map[string]any)
		fromMap, fromIsMap := fromVal.(map[string]any)
		switch {
		case toIsMap && fromIsMap:
			res[key] = mergeData(toMap, fromMap, vm, path+"."+key)
		case toIsMap != fromIsMap && toVal != nil && fromVal != nil:
			var env *Env
			if vm != nil {
				env = vm.env
			}
			warn(env, vm, fmt.Sprintf("incompatible values for %s.%s: cannot merge %T into %T, keeping the component's own value", path, key, fromVal, toVal))
		}
	}
	return res
}

var componentNamePattern = regexp.MustCompile(`^[a-zA-Z][\-\.0-9_a-zA-Z\x{00B7}\x{00C0}-\x{00D6}\x{00D8}-\x{00F6}\x{00F8}-\x{037D}\x{037F}-\x{1FFF}\x{200C}-\x{200D}\x{203F}-\x{2040}\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}\x{FDF0}-\x{FFFD}]*$`)

func isBuiltInTag(tag string) bool {
	return tag == "slot" || tag == "component"
}

func validateComponentName(name string, env *Env) {
	if !componentNamePattern.MatchString(name) {
		warn(env, nil, fmt.Sprintf("invalid component name: %q. Component names should conform to valid custom element name in html5 specification", name))
	}
	if isBuiltInTag(name) || env.config().IsReservedTag(name) {
		warn(env, nil, "do not use built-in or reserved HTML elements as component id: "+name)
	}
}

func checkComponents(options *Options, env *Env) {
	switch c := options.Get(KeyComponents).(type) {
	case map[string]any:
		for _, name := range sortedKeys(c) {
			validateComponentName(name, env)
		}
	case *Registry:
		for _, name := range c.OwnNames() {
			validateComponentName(name, env)
		}
	}
}

// normalizeProps converts name-list props into a prop map and camelizes
// hyphenated prop names.
func normalizeProps(options *Options, env *Env, vm *Instance) {
	raw := options.Get(KeyProps)
	switch p := raw.(type) {
	case nil:
	case []string:
		res := make(map[string]Prop, len(p))
		for _, name := range p {
			res[camelize(name)] = Prop{}
		}
		options.Set(KeyProps, res)
	case map[string]Prop:
		changed := false
		for name := range p {
			if camelize(name) != name {
				changed = true
				break
			}
		}
		if !changed {
			return
		}
		res := make(map[string]Prop, len(p))
		for name, prop := range p {
			res[camelize(name)] = prop
		}
		options.Set(KeyProps, res)
	default:
		warn(env, vm, fmt.Sprintf("invalid value for option \"props\": expected a name list or a prop map, but got %T", raw))
		options.Delete(KeyProps)
	}
}

// normalizeInject converts name-list injections into a map and fills in
// missing From keys.
func normalizeInject(options *Options, env *Env, vm *Instance) {
	raw := options.Get(KeyInject)
	switch in := raw.(type) {
	case nil:
	case []string:
		res := make(map[string]Inject, len(in))
		for _, name := range in {
			res[name] = Inject{From: name}
		}
		options.Set(KeyInject, res)
	case map[string]Inject:
		changed := false
		for _, inj := range in {
			if inj.From == "" {
				changed = true
				break
			}
		}
		if !changed {
			return
		}
		res := make(map[string]Inject, len(in))
		for name, inj := range in {
			if inj.From == "" {
				inj.From = name
			}
			res[name] = inj
		}
		options.Set(KeyInject, res)
	default:
		warn(env, vm, fmt.Sprintf("invalid value for option \"inject\": expected a name list or an inject map, but got %T", raw))
		options.Delete(KeyInject)
	}
}

func optionsOf(def any) *Options {
	switch d := def.(type) {
	case *Options:
		return d
	case *Type:
		return d.currentOptions()
	}
	return nil
}

// MergeOptions merges child over parent using the merge policy table. vm is
// the instance being created, or nil when merging type declarations.
func MergeOptions(parent, child *Options, vm *Instance) *Options {
	var env *Env
	if vm != nil {
		env = vm.env
	}
	return mergeOptions(parent, child, vm, env)
}

func mergeOptions(parent, child *Options, vm *Instance, env *Env) *Options {
	if parent == nil {
		parent = newMergedOptions()
	}
	if child == nil {
		child = NewOptions()
	}

	if !child.merged {
		if env.config().DevMode() {
			checkComponents(child, env)
		}
		normalizeProps(child, env, vm)
		normalizeInject(child, env, vm)

		if ext := optionsOf(child.Get(KeyExtends)); ext != nil {
			parent = mergeOptions(parent, ext, vm, env)
		}
		if mixins, ok := child.Get(KeyMixins).([]any); ok {
			for _, m := range mixins {
				if opts := optionsOf(m); opts != nil {
					parent = mergeOptions(parent, opts, vm, env)
				}
			}
		}
	}

	res := newMergedOptions()
	mergeField := func(key string) {
		ctx := MergeContext{Key: key, VM: vm, Env: env}
		if v := strategyFor(key)(parent.Get(key), child.Get(key), ctx); v != nil {
			res.Set(key, v)
		}
	}
	for _, key := range parent.Keys() {
		mergeField(key)
	}
	for _, key := range child.Keys() {
		if !parent.Has(key) {
			mergeField(key)
		}
	}
	return res
}
