package core

// InternalOptions requests an instantiation driven by a parent's render
// output. Only CreateComponentInstanceForVnode produces them.
type InternalOptions struct {
	Parent          *Instance
	ParentVnode     *VNode
	Render          RenderFunc
	StaticRenderFns []RenderFunc
}

func (o *InternalOptions) internal() bool { return true }

// initInternalComponent builds the instance options by layering the
// call-site fields over the type's options. No merge is performed.
func initInternalComponent(vm *Instance, in *InternalOptions) {
	opts := vm.typ.currentOptions().Derive()
	vm.options = opts

	parentVnode := in.ParentVnode
	opts.Set(KeyParent, in.Parent)
	opts.Set(keyParentVnode, parentVnode)

	if co := parentVnode.componentOptions(); co != nil {
		opts.Set(KeyPropsData, co.PropsData)
		opts.Set(keyParentListeners, co.Listeners)
		opts.Set(keyRenderChildren, co.Children)
		opts.Set(keyComponentTag, co.Tag)
	}

	if in.Render != nil {
		opts.Set(KeyRender, in.Render)
		opts.Set(KeyStaticRenderFns, in.StaticRenderFns)
	}
}

func (v *VNode) componentOptions() *ComponentOptions {
	if v == nil {
		return nil
	}
	return v.ComponentOptions
}

// CreateComponentInstanceForVnode instantiates the component a placeholder
// node stands for, as a child of parent.
func CreateComponentInstanceForVnode(vnode *VNode, parent *Instance) *Instance {
	in := &InternalOptions{
		Parent:      parent,
		ParentVnode: vnode,
	}
	if vnode.Data != nil && vnode.Data.InlineTemplate != nil {
		in.Render = vnode.Data.InlineTemplate.Render
		in.StaticRenderFns = vnode.Data.InlineTemplate.StaticRenderFns
	}
	ctor := vnode.ComponentOptions.Ctor
	vm := &Instance{typ: ctor, env: ctor.env}
	vm.init(in)
	vnode.ComponentInstance = vm
	return vm
}
