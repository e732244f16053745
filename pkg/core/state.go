package core

import (
	"fmt"
	"reflect"
	"slices"
)

// DefaultState is the built-in StateInitializer. It resolves injections,
// props, methods, data, computed properties, watchers and provide onto the
// instance, reporting declaration conflicts as warnings.
type DefaultState struct{}

var _ StateInitializer = DefaultState{}

// InitInjections implements StateInitializer.
func (DefaultState) InitInjections(vm *Instance) {
	vm.injected = resolveInject(vm.options.Inject(), vm)
}

// InitState implements StateInitializer.
func (DefaultState) InitState(vm *Instance) {
	opts := vm.options
	if props := opts.Props(); props != nil {
		initProps(vm, props)
	}
	if methods := opts.Methods(); methods != nil {
		initMethods(vm, methods)
	}
	if data := opts.Get(KeyData); data != nil {
		initData(vm, data)
	} else {
		vm.data = make(map[string]any)
	}
	if computed := opts.Computed(); computed != nil {
		initComputed(vm, computed)
	}
	if watch := opts.Watchers(); watch != nil {
		initWatch(vm, watch)
	}
}

// InitProvide implements StateInitializer.
func (DefaultState) InitProvide(vm *Instance) {
	if provide := vm.options.Get(KeyProvide); provide != nil {
		vm.provided = callData(provide, vm, KeyProvide)
	}
}

// resolveInject looks every injection up in the provided values of vm and
// its ancestors, nearest first.
func resolveInject(inject map[string]Inject, vm *Instance) map[string]any {
	if len(inject) == 0 {
		return nil
	}
	result := make(map[string]any, len(inject))
	for _, key := range sortedKeys(inject) {
		in := inject[key]
		from := in.From
		if from == "" {
			from = key
		}
		found := false
		for source := vm; source != nil; source = source.parent {
			if v, ok := source.provided[from]; ok {
				result[key] = v
				found = true
				break
			}
		}
		if found {
			continue
		}
		switch def := in.Default.(type) {
		case nil:
			vm.warnf("injection %q not found", key)
		case func(*Instance) any:
			result[key] = def(vm)
		default:
			result[key] = def
		}
	}
	return result
}

var reservedAttributes = []string{"key", "ref", "slot", "slot-scope", "is"}

func initProps(vm *Instance, props map[string]Prop) {
	propsData := vm.options.PropsData()
	vm.props = make(map[string]any, len(props))
	for _, key := range sortedKeys(props) {
		value := validateProp(key, props[key], propsData, vm)
		if hyphenated := hyphenate(key); slices.Contains(reservedAttributes, hyphenated) {
			vm.warnf("%q is a reserved attribute and cannot be used as component prop", hyphenated)
		}
		vm.props[key] = value
	}
}

func validateProp(key string, prop Prop, propsData map[string]any, vm *Instance) any {
	value, present := propsData[key]
	if prop.Type == reflect.Bool {
		if !present && prop.Default == nil {
			value = false
		} else if s, ok := value.(string); ok && (s == "" || s == hyphenate(key)) {
			value = true
		}
	}
	if value == nil {
		value = propDefaultValue(vm, prop, key)
	}
	assertProp(prop, key, value, vm, !present)
	return value
}

func propDefaultValue(vm *Instance, prop Prop, key string) any {
	switch def := prop.Default.(type) {
	case nil:
		return nil
	case func(*Instance) any:
		return def(vm)
	default:
		if k := reflect.TypeOf(def).Kind(); k == reflect.Map || k == reflect.Slice {
			vm.warnf("invalid default value for prop %q: props with map or slice type must use a factory function to return the default value", key)
		}
		return def
	}
}

func assertProp(prop Prop, key string, value any, vm *Instance, absent bool) {
	if prop.Required && absent {
		vm.warnf("missing required prop: %q", key)
		return
	}
	if value == nil && !prop.Required {
		return
	}
	if prop.Type != reflect.Invalid {
		if got := kindOf(value); got != prop.Type {
			vm.warnf("invalid prop: type check failed for prop %q. Expected %s, got %s", key, prop.Type, got)
			return
		}
	}
	if prop.Validator != nil && !prop.Validator(value) {
		vm.warnf("invalid prop: custom validator check failed for prop %q", key)
	}
}

func kindOf(v any) reflect.Kind {
	if v == nil {
		return reflect.Invalid
	}
	return reflect.TypeOf(v).Kind()
}

func initMethods(vm *Instance, methods map[string]Method) {
	props := vm.options.Props()
	vm.methods = make(map[string]Method, len(methods))
	for _, key := range sortedKeys(methods) {
		m := methods[key]
		if m == nil {
			vm.warnf("method %q is nil in the component definition. Did you reference the function correctly?", key)
			m = func(*Instance, ...any) any { return nil }
		}
		if hasKey(props, key) {
			vm.warnf("method %q has already been defined as a prop", key)
		}
		if isReserved(key) {
			vm.warnf("method %q conflicts with an existing instance method. Avoid defining component methods that start with _ or $", key)
		}
		vm.methods[key] = m
	}
}

func initData(vm *Instance, raw any) {
	data := callData(raw, vm, KeyData)
	if data == nil {
		if !isDataValue(raw) {
			vm.warnf("data should be a function returning a map, got %T", raw)
		} else {
			vm.warnf("data functions should return an object")
		}
		data = make(map[string]any)
	}
	vm.data = data
	props := vm.options.Props()
	for _, key := range sortedKeys(data) {
		if hasKey(vm.methods, key) {
			vm.warnf("method %q has already been defined as a data property", key)
		}
		if hasKey(props, key) {
			vm.warnf("the data property %q is already declared as a prop. Use prop default value instead", key)
		}
	}
}

func initComputed(vm *Instance, computed map[string]Computed) {
	vm.computed = make(map[string]Computed, len(computed))
	for _, key := range sortedKeys(computed) {
		c := computed[key]
		if c.Get == nil {
			vm.warnf("getter is missing for computed property %q", key)
			continue
		}
		switch {
		case hasKey(vm.data, key):
			vm.warnf("the computed property %q is already defined in data", key)
		case hasKey(vm.props, key):
			vm.warnf("the computed property %q is already defined as a prop", key)
		case hasKey(vm.methods, key):
			vm.warnf("the computed property %q is already defined as a method", key)
		default:
			vm.computed[key] = c
		}
	}
}

func initWatch(vm *Instance, watch map[string][]Watcher) {
	if vm.watchers == nil {
		vm.watchers = make(map[string][]*Watcher, len(watch))
	}
	for _, key := range sortedKeys(watch) {
		for _, w := range watch[key] {
			if w.Handler == nil {
				vm.warnf("watcher for %q has no handler", key)
				continue
			}
			vm.watchers[key] = append(vm.watchers[key], &w)
			if w.Immediate {
				handler := w.Handler
				value := vm.Get(key)
				invokeWithErrorHandling(func() error {
					handler(vm, value, nil)
					return nil
				}, vm, fmt.Sprintf("callback for immediate watcher %q", key))
			}
		}
	}
}
