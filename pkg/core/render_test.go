package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	loomerrors "github.com/go-drift/loom/pkg/errors"
)

func TestResolveSlots(t *testing.T) {
	ctx := &Instance{}
	other := &Instance{}
	header := &VNode{Tag: "h1", Context: ctx, Data: &VNodeData{Slot: "header", Attrs: map[string]any{"slot": "header"}}}
	tmpl := &VNode{Tag: "template", Context: ctx, Data: &VNodeData{Slot: "footer"}, Children: []*VNode{TextVNode("a"), TextVNode("b")}}
	foreign := &VNode{Tag: "p", Context: other, Data: &VNodeData{Slot: "header"}}
	body := TextVNode("body")
	blank := TextVNode("  \n")

	slots := resolveSlots([]*VNode{header, tmpl, foreign, body}, ctx)

	if len(slots["header"]) != 1 || slots["header"][0] != header {
		t.Errorf("Expected only same-context content in the header slot, got %v", slots["header"])
	}
	if len(slots["footer"]) != 2 || slots["footer"][0].Text != "a" {
		t.Errorf("Expected template children to be unwrapped, got %v", slots["footer"])
	}
	if len(slots["default"]) != 2 || slots["default"][0] != foreign || slots["default"][1] != body {
		t.Errorf("Expected foreign named content and plain children in default, got %v", slots["default"])
	}
	if _, ok := header.Data.Attrs["slot"]; ok {
		t.Error("Expected the slot attribute to be removed")
	}

	if _, ok := resolveSlots([]*VNode{blank, emptyVNode()}, ctx)["default"]; ok {
		t.Error("Expected whitespace-only slots to be dropped")
	}
}

func TestMountCreatesChildComponents(t *testing.T) {
	var order []string
	record := func(name string, hook LifecycleHook) HookFunc {
		return func(*Instance) error { order = append(order, name+":"+string(hook)); return nil }
	}
	root := NewRootType(nil)
	child := root.Extend(NewOptions().
		WithName("child-item").
		WithPropNames("label").
		WithRender(func(s Scope, h CreateElementFunc) *VNode {
			return h("li", nil, TextVNode(s.Get("label").(string)))
		}).
		On(Created, record("child", Created)).
		On(Mounted, record("child", Mounted)))
	parent := root.Extend(NewOptions().
		WithName("item-list").
		WithComponent("child-item", child).
		WithRender(func(s Scope, h CreateElementFunc) *VNode {
			return h("ul", nil,
				h("child-item", &VNodeData{Attrs: map[string]any{"label": "one"}}),
				h("child-item", &VNodeData{Props: map[string]any{"label": "two"}}),
			)
		}).
		On(Created, record("parent", Created)).
		On(Mounted, record("parent", Mounted)))

	vm := New(parent, NewOptions().WithEl("#list"))

	want := []string{
		"parent:created",
		"child:created", "child:mounted",
		"child:created", "child:mounted",
		"parent:mounted",
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Lifecycle order mismatch (-want +got):\n%s", diff)
	}
	children := vm.Children()
	if len(children) != 2 {
		t.Fatalf("Expected 2 child instances, got %d", len(children))
	}
	if children[0].Get("label") != "one" || children[1].Get("label") != "two" {
		t.Errorf("Expected props from attrs and props, got %v and %v", children[0].Get("label"), children[1].Get("label"))
	}
	if children[0].VNode().Children[0].Text != "one" {
		t.Error("Expected the child to render its prop")
	}
	if children[0].Options().ComponentTag() != "child-item" {
		t.Errorf("Expected component tag child-item, got %q", children[0].Options().ComponentTag())
	}
	if FormatComponentName(children[0]) != "<ChildItem>" {
		t.Errorf("Unexpected component name %q", FormatComponentName(children[0]))
	}
	if !strings.HasPrefix(vm.VNode().Children[0].Tag, "loom-component-") {
		t.Errorf("Expected a component placeholder tag, got %q", vm.VNode().Children[0].Tag)
	}
}

func TestCreateElementInlineDefinition(t *testing.T) {
	root := NewRootType(nil)
	def := NewOptions().WithName("inline-def")
	vm := New(root, nil)

	first := vm.CreateElement(def, nil)
	second := vm.CreateElement(def, nil)
	if !first.IsComponent() || first.ComponentOptions.Ctor != second.ComponentOptions.Ctor {
		t.Error("Expected a raw definition to be extended once and reused")
	}
	if first.ComponentOptions.Ctor.Super() != root {
		t.Error("Expected the definition to be extended from the root type")
	}
	if vm.CreateElement(nil, nil).IsComment != true {
		t.Error("Expected a nil tag to produce an empty node")
	}
}

func TestCreateComponentInvalid(t *testing.T) {
	diag := captureDiagnostics(t)
	vm := New(NewRootType(nil), nil)
	if CreateComponent(42, nil, vm, nil, "") != nil {
		t.Error("Expected an invalid definition to produce no node")
	}
	if !diag.hasWarning("invalid component definition") {
		t.Errorf("Expected warning, got %v", diag.messages())
	}
}

func TestRenderWithoutRenderFunction(t *testing.T) {
	diag := captureDiagnostics(t)
	vm := New(NewRootType(nil), NewOptions().WithEl("#app"))
	if !diag.hasWarning("render function not defined") {
		t.Errorf("Expected missing render warning, got %v", diag.messages())
	}
	if vm.VNode() == nil || !vm.VNode().IsComment {
		t.Error("Expected an empty node")
	}
}

func TestRenderPanicKeepsPreviousTree(t *testing.T) {
	diag := captureDiagnostics(t)
	fail := false
	comp := NewRootType(nil).Extend(NewOptions().WithRender(func(s Scope, h CreateElementFunc) *VNode {
		if fail {
			panic(errors.New("render failed"))
		}
		return h("div", nil)
	}))
	vm := New(comp, NewOptions().WithEl("#app"))
	previous := vm.VNode()

	fail = true
	if got := vm.Render(); got != previous {
		t.Error("Expected a failing render to return the previous tree")
	}
	if len(diag.errs) != 1 || diag.errs[0].Kind != loomerrors.KindRender || diag.errs[0].Component != "<Root>" {
		t.Errorf("Expected one render error, got %v", diag.errs)
	}
	if len(diag.hookErrors) != 0 {
		t.Errorf("Expected no hook errors, got %v", diag.hookErrors)
	}
}

func TestRenderPanicCapturedByAncestor(t *testing.T) {
	diag := captureDiagnostics(t)
	var captured []string
	parent := New(NewRootType(nil), NewOptions().OnErrorCaptured(func(err error, vm *Instance, info string) bool {
		captured = append(captured, info+": "+err.Error())
		return false
	}))
	child := New(NewRootType(nil), NewOptions().
		WithParent(parent).
		WithRender(func(Scope, CreateElementFunc) *VNode { panic("boom") }))

	child.Render()
	if len(captured) != 1 || captured[0] != "render: boom" {
		t.Errorf("Expected the ancestor to capture the render panic, got %v", captured)
	}
	if len(diag.errs) != 0 {
		t.Errorf("Expected a captured render error not to be reported, got %v", diag.errs)
	}
}

func TestDestroy(t *testing.T) {
	var order []string
	record := func(name string, hook LifecycleHook) HookFunc {
		return func(*Instance) error { order = append(order, name+":"+string(hook)); return nil }
	}
	root := NewRootType(nil)
	parent := New(root, NewOptions().On(Destroyed, record("parent", Destroyed)))
	child := New(root, NewOptions().
		WithParent(parent).
		On(BeforeDestroy, record("child", BeforeDestroy)).
		On(Destroyed, record("child", Destroyed)))
	child.On("ping", func(...any) {})

	child.Destroy()
	child.Destroy()
	if diff := cmp.Diff([]string{"child:beforeDestroy", "child:destroyed"}, order); diff != "" {
		t.Errorf("Destroy hooks mismatch (-want +got):\n%s", diff)
	}
	if len(parent.Children()) != 0 {
		t.Error("Expected the child to be detached from its parent")
	}
	if !child.IsDestroyed() || child.Status() != StatusDestroyed {
		t.Error("Expected the child to be destroyed")
	}
	if child.ListenerCount("ping") != 0 {
		t.Error("Expected listeners to be cleared")
	}

	order = nil
	grandchild := New(root, NewOptions().WithParent(parent).On(Destroyed, record("grandchild", Destroyed)))
	parent.Destroy()
	if diff := cmp.Diff([]string{"grandchild:destroyed", "parent:destroyed"}, order); diff != "" {
		t.Errorf("Subtree destroy mismatch (-want +got):\n%s", diff)
	}
	if !grandchild.IsDestroyed() {
		t.Error("Expected children to be destroyed with their parent")
	}
}
