package core

import (
	"fmt"

	"go.uber.org/zap"
)

// StateInitializer is the reactive-state collaborator. The initializer
// calls InitInjections, InitState and InitProvide in that order, between
// the beforeCreate and created hooks.
type StateInitializer interface {
	InitInjections(vm *Instance)
	InitState(vm *Instance)
	InitProvide(vm *Instance)
}

// Renderer is the rendering collaborator.
type Renderer interface {
	// InitRender prepares the render context of a new instance.
	InitRender(vm *Instance)
	// CreateElement builds a virtual node in the context of vm.
	CreateElement(vm *Instance, tag any, data *VNodeData, children []*VNode) *VNode
	// Mount renders vm into target.
	Mount(vm *Instance, target string)
}

// constructionOptions is either a raw *Options for an explicit
// instantiation or an *InternalOptions for one driven by a parent's render.
type constructionOptions interface {
	internal() bool
}

func (o *Options) internal() bool { return false }

// init runs the initialization stages in their fixed order. It must be
// called exactly once per instance.
func (vm *Instance) init(opts constructionOptions) {
	env := vm.env
	vm.status = StatusInitializing
	vm.uid = env.nextUID()

	var startTag, endTag string
	measure := env.config().MeasurePerformance() && env.Perf != nil
	if measure {
		startTag = fmt.Sprintf("loom-perf-start:%d", vm.uid)
		endTag = fmt.Sprintf("loom-perf-end:%d", vm.uid)
		env.Perf.Mark(startTag)
	}

	if opts.internal() {
		initInternalComponent(vm, opts.(*InternalOptions))
	} else {
		vm.options = mergeOptions(vm.typ.ResolveOptions(), opts.(*Options), vm, env)
	}

	initProxy(vm)
	initLifecycle(vm)
	initEvents(vm)
	initRender(vm)
	callHook(vm, BeforeCreate)
	env.state().InitInjections(vm)
	env.state().InitState(vm)
	env.state().InitProvide(vm)
	callHook(vm, Created)
	vm.status = StatusCreated

	if measure {
		env.Perf.Mark(endTag)
		env.Perf.Measure("loom "+FormatComponentName(vm)+" init", startTag, endTag)
	}
	Logger().Debug("instance created", zap.Uint64("uid", vm.uid), zap.String("component", FormatComponentName(vm)))

	if el := vm.options.El(); el != "" {
		vm.Mount(el)
	}
}

func (e *Env) state() StateInitializer {
	if e == nil || e.State == nil {
		return DefaultState{}
	}
	return e.State
}

func (e *Env) renderer() Renderer {
	if e == nil || e.Renderer == nil {
		return defaultRenderer
	}
	return e.Renderer
}
