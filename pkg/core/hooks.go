package core

// OnDestroy registers a cleanup function to be called when vm is destroyed.
// Returns an unregister function that can be called to remove it.
// Cleanups run once, in reverse registration order.
func (vm *Instance) OnDestroy(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}
	if vm.isDestroyed {
		// Already destroyed, run cleanup immediately
		cleanup()
		return func() {}
	}

	index := len(vm.disposers)
	vm.disposers = append(vm.disposers, cleanup)
	return func() {
		if index < len(vm.disposers) {
			vm.disposers[index] = nil
		}
	}
}

func (vm *Instance) runDisposers() {
	for i := len(vm.disposers) - 1; i >= 0; i-- {
		if fn := vm.disposers[i]; fn != nil {
			invokeWithErrorHandling(func() error {
				fn()
				return nil
			}, vm, "destroy cleanup")
		}
	}
	vm.disposers = nil
}

// Watch observes assignments to key made through Set. The returned
// function stops watching; the watcher is also removed when vm is
// destroyed.
//
// Example:
//
//	created := func(vm *core.Instance) error {
//	    vm.Watch("count", func(vm *core.Instance, newVal, oldVal any) {
//	        log.Printf("count: %v -> %v", oldVal, newVal)
//	    })
//	    return nil
//	}
func (vm *Instance) Watch(key string, handler func(vm *Instance, newVal, oldVal any)) func() {
	if handler == nil {
		return func() {}
	}
	w := &Watcher{Handler: handler}
	if vm.watchers == nil {
		vm.watchers = make(map[string][]*Watcher)
	}
	vm.watchers[key] = append(vm.watchers[key], w)

	removed := false
	unwatch := func() {
		if removed {
			return
		}
		removed = true
		ws := vm.watchers[key]
		for i, cur := range ws {
			if cur == w {
				vm.watchers[key] = append(ws[:i:i], ws[i+1:]...)
				break
			}
		}
	}
	vm.OnDestroy(unwatch)
	return unwatch
}

// Managed is a typed view of one instance key. Reads go through the
// instance lookup and writes through Set, so watchers fire as usual.
//
// Example:
//
//	count := core.NewManaged(vm, "count", 0)
//	count.Update(func(n int) int { return n + 1 })
type Managed[T any] struct {
	vm  *Instance
	key string
}

// NewManaged binds key on vm, initializing it to initial when the
// instance does not declare it yet.
func NewManaged[T any](vm *Instance, key string, initial T) *Managed[T] {
	if !vm.Has(key) {
		vm.Set(key, initial)
	}
	return &Managed[T]{vm: vm, key: key}
}

// Value returns the current value, or the zero value when the key holds
// a value of another type.
func (m *Managed[T]) Value() T {
	v, _ := m.vm.Get(m.key).(T)
	return v
}

// Set assigns the value.
func (m *Managed[T]) Set(value T) {
	m.vm.Set(m.key, value)
}

// Update applies a transformation to the current value.
func (m *Managed[T]) Update(transform func(T) T) {
	m.Set(transform(m.Value()))
}
