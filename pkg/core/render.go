package core

import (
	"fmt"
	"maps"

	"github.com/go-drift/loom/pkg/errors"
)

// initRender snapshots the call-site context (slot content, attributes,
// listeners) and hands the instance to the renderer.
func initRender(vm *Instance) {
	vm.vnode = nil
	options := vm.options
	parentVnode := options.ParentVnode()
	vm.parentVnode = parentVnode

	var renderContext *Instance
	if parentVnode != nil {
		renderContext = parentVnode.Context
	}
	vm.slots = resolveSlots(options.RenderChildren(), renderContext)

	vm.attrs = map[string]any{}
	if parentVnode != nil && parentVnode.Data != nil && parentVnode.Data.Attrs != nil {
		vm.attrs = maps.Clone(parentVnode.Data.Attrs)
	}
	vm.listeners = map[string]Listener{}
	if l := options.ParentListeners(); l != nil {
		vm.listeners = maps.Clone(l)
	}
	vm.env.renderer().InitRender(vm)
}

// resolveSlots groups children into named slots. Only children produced
// by the same render context may target a named slot; everything else
// lands in "default". Slots holding only whitespace are dropped.
func resolveSlots(children []*VNode, context *Instance) map[string][]*VNode {
	slots := make(map[string][]*VNode)
	for _, child := range children {
		if child == nil {
			continue
		}
		data := child.Data
		if data != nil {
			delete(data.Attrs, "slot")
		}
		if data != nil && data.Slot != "" && child.Context == context {
			if child.Tag == "template" {
				slots[data.Slot] = append(slots[data.Slot], child.Children...)
			} else {
				slots[data.Slot] = append(slots[data.Slot], child)
			}
			continue
		}
		slots["default"] = append(slots["default"], child)
	}
	for name, nodes := range slots {
		whitespace := true
		for _, n := range nodes {
			if !n.isWhitespace() {
				whitespace = false
				break
			}
		}
		if whitespace {
			delete(slots, name)
		}
	}
	return slots
}

// CreateElement builds a virtual node in the context of vm.
func (vm *Instance) CreateElement(tag any, data *VNodeData, children ...*VNode) *VNode {
	return vm.env.renderer().CreateElement(vm, tag, data, children)
}

// Render runs the render function against the instance scope. A failing
// render is reported and yields the previous tree.
func (vm *Instance) Render() (vnode *VNode) {
	render := vm.options.RenderFn()
	if render == nil {
		vm.warnf("failed to mount component: render function not defined")
		return emptyVNode()
	}
	defer func() {
		if r := recover(); r != nil {
			reportRenderError(vm, r)
			vnode = vm.vnode
			if vnode == nil {
				vnode = emptyVNode()
			}
		}
	}()
	vnode = render(vm.renderProxy, vm.CreateElement)
	if vnode == nil {
		vnode = emptyVNode()
	}
	return vnode
}

// reportRenderError offers a render panic to errorCaptured hooks and
// reports it as a render error when none stops it.
func reportRenderError(vm *Instance, recovered any) {
	err := asError(nil, recovered)
	if captureByAncestors(err, vm, "render") {
		return
	}
	errors.Report(&errors.LoomError{
		Op:         "core.Render",
		Kind:       errors.KindRender,
		Component:  FormatComponentName(vm),
		Err:        err,
		StackTrace: errors.CaptureStack(),
	})
}

// CreateComponent builds the placeholder node for a component. ctor may be
// a *Type or a raw *Options declaration, which is extended from the root
// type of context.
func CreateComponent(ctor any, data *VNodeData, context *Instance, children []*VNode, tag string) *VNode {
	var t *Type
	switch c := ctor.(type) {
	case nil:
		return nil
	case *Type:
		t = c
	case *Options:
		t = Extend(context.typ.Root(), c)
	default:
		context.warnf("invalid component definition: %T", ctor)
		return nil
	}
	if data == nil {
		data = &VNodeData{}
	}

	// Picks up global mixins applied after the constructor was created.
	opts := t.ResolveOptions()

	name := opts.Name()
	if name == "" {
		name = tag
	}
	return &VNode{
		Tag:     fmt.Sprintf("loom-component-%d-%s", t.cid, name),
		Data:    data,
		Context: context,
		ComponentOptions: &ComponentOptions{
			Ctor:      t,
			PropsData: extractProps(data, opts.Props()),
			Listeners: data.On,
			Tag:       tag,
			Children:  children,
		},
	}
}

// extractProps collects declared prop values from the node data, looking
// in Props and then Attrs under the camelCase and hyphenated names. Values
// found in Attrs are consumed.
func extractProps(data *VNodeData, props map[string]Prop) map[string]any {
	if len(props) == 0 {
		return nil
	}
	res := make(map[string]any)
	for key := range props {
		alt := hyphenate(key)
		if checkProp(res, data.Props, key, alt, true) {
			continue
		}
		checkProp(res, data.Attrs, key, alt, false)
	}
	return res
}

func checkProp(res, hash map[string]any, key, alt string, preserve bool) bool {
	for _, k := range []string{key, alt} {
		if v, ok := hash[k]; ok {
			res[key] = v
			if !preserve {
				delete(hash, k)
			}
			return true
		}
	}
	return false
}

// BasicRenderer is the default renderer. It builds virtual node trees,
// instantiates child components found in them and runs the mount hooks.
// It does not diff or patch any real output.
type BasicRenderer struct{}

var defaultRenderer Renderer = &BasicRenderer{}

// InitRender implements Renderer.
func (r *BasicRenderer) InitRender(*Instance) {}

// CreateElement implements Renderer. String tags registered as components
// on vm resolve to component placeholders.
func (r *BasicRenderer) CreateElement(vm *Instance, tag any, data *VNodeData, children []*VNode) *VNode {
	switch t := tag.(type) {
	case nil:
		return emptyVNode()
	case string:
		if t == "" {
			return emptyVNode()
		}
		if !vm.env.config().IsReservedTag(t) {
			if ctor, ok := vm.options.Components().Resolve(t); ok {
				return CreateComponent(ctor, data, vm, children, t)
			}
		}
		return &VNode{Tag: t, Data: data, Children: children, Context: vm}
	default:
		return CreateComponent(tag, data, vm, children, "")
	}
}

// Mount implements Renderer.
func (r *BasicRenderer) Mount(vm *Instance, _ string) {
	callHook(vm, BeforeMount)
	vnode := vm.Render()
	vm.vnode = vnode
	r.patch(vm, vnode)
	vm.isMounted = true
	vm.status = StatusMounted
	callHook(vm, Mounted)
}

// patch instantiates and mounts the components of a freshly rendered tree.
func (r *BasicRenderer) patch(vm *Instance, vnode *VNode) {
	if vnode == nil {
		return
	}
	if vnode.IsComponent() {
		if vnode.ComponentInstance == nil {
			CreateComponentInstanceForVnode(vnode, vm).Mount("")
		}
		return
	}
	for _, child := range vnode.Children {
		r.patch(vm, child)
	}
}
