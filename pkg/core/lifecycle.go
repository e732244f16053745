package core

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/go-drift/loom/pkg/errors"
)

// initLifecycle links vm into the instance tree. Abstract instances are
// not listed as children, and abstract parents are skipped over.
func initLifecycle(vm *Instance) {
	options := vm.options
	parent := options.Parent()
	if parent != nil && !options.Abstract() {
		for parent.options.Abstract() && parent.parent != nil {
			parent = parent.parent
		}
		parent.children = append(parent.children, vm)
	}
	vm.parent = parent
	if parent != nil {
		vm.root = parent.root
	} else {
		vm.root = vm
	}
	vm.children = nil
	vm.refs = make(map[string]any)
	vm.isMounted = false
	vm.isDestroyed = false
	vm.isBeingDestroyed = false
}

// callHook runs every handler of hook in merged order and then emits
// "hook:<name>" to listeners registered through the events table.
func callHook(vm *Instance, hook LifecycleHook) {
	info := string(hook) + " hook"
	for _, h := range vm.options.Hooks(hook) {
		fn := h.fn
		invokeWithErrorHandling(func() error { return fn(vm) }, vm, info)
	}
	if vm.hasHookEvent {
		vm.Emit("hook:" + string(hook))
	}
}

// CallHook runs the handlers of hook on vm.
func (vm *Instance) CallHook(hook LifecycleHook) {
	callHook(vm, hook)
}

// invokeWithErrorHandling calls fn, routing a returned error or a panic
// through handleError.
func invokeWithErrorHandling(fn func() error, vm *Instance, info string) {
	defer func() {
		if r := recover(); r != nil {
			handleError(nil, r, vm, info)
		}
	}()
	if err := fn(); err != nil {
		handleError(err, nil, vm, info)
	}
}

// handleError offers a failure to the errorCaptured hooks of vm's
// ancestors, nearest first. A hook returning false stops propagation;
// otherwise the failure reaches the global error handler.
func handleError(err error, recovered any, vm *Instance, info string) {
	if captureByAncestors(asError(err, recovered), vm, info) {
		return
	}
	reportHookError(err, recovered, vm, info)
}

func asError(err error, recovered any) error {
	if err != nil || recovered == nil {
		return err
	}
	if e, ok := recovered.(error); ok {
		return e
	}
	return fmt.Errorf("%v", recovered)
}

// captureByAncestors runs the errorCaptured hooks of vm's ancestors and
// reports whether one of them stopped propagation.
func captureByAncestors(err error, vm *Instance, info string) bool {
	if vm == nil {
		return false
	}
	for cur := vm.parent; cur != nil; cur = cur.parent {
		for _, h := range cur.options.ErrorCapturedHooks() {
			if !captureError(h, cur, err, vm, info) {
				return true
			}
		}
	}
	return false
}

// captureError runs one errorCaptured hook and reports whether propagation
// continues. A failing hook is reported on its own.
func captureError(h *ErrorHook, owner *Instance, err error, vm *Instance, info string) (propagate bool) {
	propagate = true
	defer func() {
		if r := recover(); r != nil {
			reportHookError(nil, r, owner, "errorCaptured hook")
		}
	}()
	return h.fn(err, vm, info)
}

func reportHookError(err error, recovered any, vm *Instance, info string) {
	he := &errors.HookError{
		Component: FormatComponentName(vm),
		Info:      info,
		Recovered: recovered,
		Err:       err,
	}
	if recovered != nil {
		he.StackTrace = errors.CaptureStack()
	}
	errors.ReportHookError(he)
}

// Mount renders vm into target through the Env's renderer.
func (vm *Instance) Mount(target string) *Instance {
	vm.mountTarget = target
	Logger().Debug("mounting instance", zap.Uint64("uid", vm.uid), zap.String("target", target))
	vm.env.renderer().Mount(vm, target)
	return vm
}

// Destroy tears vm and its subtree down. It is a no-op on an instance that
// is already being destroyed.
func (vm *Instance) Destroy() {
	if vm.isBeingDestroyed {
		return
	}
	callHook(vm, BeforeDestroy)
	vm.isBeingDestroyed = true

	if parent := vm.parent; parent != nil && !parent.isBeingDestroyed && !vm.options.Abstract() {
		parent.children = slices.DeleteFunc(parent.children, func(c *Instance) bool { return c == vm })
	}
	for _, child := range slices.Clone(vm.children) {
		child.Destroy()
	}
	vm.runDisposers()
	vm.isDestroyed = true
	vm.status = StatusDestroyed
	callHook(vm, Destroyed)
	vm.Off()
	vm.vnode = nil
}
