package core

import (
	"slices"
	"strings"
)

// Listener handles an emitted event.
type Listener func(args ...any)

type listenerEntry struct {
	fn   Listener
	once bool
}

// onceModifier marks a call-site listener that fires at most once.
const onceModifier = "~"

// initEvents creates the listener table and registers the listeners passed
// at the call site.
func initEvents(vm *Instance) {
	vm.events = make(map[string][]*listenerEntry)
	vm.hasHookEvent = false
	if listeners := vm.options.ParentListeners(); len(listeners) > 0 {
		updateComponentListeners(vm, listeners)
	}
}

func updateComponentListeners(vm *Instance, listeners map[string]Listener) {
	for _, name := range sortedKeys(listeners) {
		fn := listeners[name]
		if fn == nil {
			vm.warnf("invalid handler for event %q: got nil", strings.TrimPrefix(name, onceModifier))
			continue
		}
		if event, ok := strings.CutPrefix(name, onceModifier); ok {
			vm.Once(event, fn)
		} else {
			vm.On(name, fn)
		}
	}
}

// On registers fn for event and returns a function that removes it.
// Listening to "hook:<name>" observes the lifecycle hook of that name.
func (vm *Instance) On(event string, fn Listener) func() {
	return vm.addListener(event, &listenerEntry{fn: fn})
}

// Once registers fn for the next emission of event only.
func (vm *Instance) Once(event string, fn Listener) func() {
	return vm.addListener(event, &listenerEntry{fn: fn, once: true})
}

func (vm *Instance) addListener(event string, le *listenerEntry) func() {
	if vm.events == nil {
		vm.events = make(map[string][]*listenerEntry)
	}
	vm.events[event] = append(vm.events[event], le)
	if strings.HasPrefix(event, "hook:") {
		vm.hasHookEvent = true
	}
	return func() { vm.removeListener(event, le) }
}

func (vm *Instance) removeListener(event string, le *listenerEntry) {
	entries := slices.DeleteFunc(slices.Clone(vm.events[event]), func(e *listenerEntry) bool { return e == le })
	if len(entries) == 0 {
		delete(vm.events, event)
		return
	}
	vm.events[event] = entries
}

// Off removes every listener of the named events, or of all events when
// none are named.
func (vm *Instance) Off(events ...string) {
	if len(events) == 0 {
		vm.events = make(map[string][]*listenerEntry)
		return
	}
	for _, event := range events {
		delete(vm.events, event)
	}
}

// Emit invokes the listeners of event with args, in registration order.
// Listener panics are routed through the error handling chain.
func (vm *Instance) Emit(event string, args ...any) {
	entries := slices.Clone(vm.events[event])
	info := "event handler for \"" + event + "\""
	for _, le := range entries {
		if le.once {
			vm.removeListener(event, le)
		}
		fn := le.fn
		invokeWithErrorHandling(func() error {
			fn(args...)
			return nil
		}, vm, info)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (vm *Instance) ListenerCount(event string) int {
	return len(vm.events[event])
}
