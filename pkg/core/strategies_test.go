package core

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeHooksConcatenateParentFirst(t *testing.T) {
	var order []string
	parent := NewOptions().On(Created, func(*Instance) error { order = append(order, "parent"); return nil })
	child := NewOptions().On(Created, func(*Instance) error { order = append(order, "child"); return nil })

	merged := MergeOptions(mergeOptions(nil, parent, nil, nil), child, nil)
	hooks := merged.Hooks(Created)
	if len(hooks) != 2 {
		t.Fatalf("Expected 2 hooks, got %d", len(hooks))
	}
	for _, h := range hooks {
		_ = h.fn(nil)
	}
	if diff := cmp.Diff([]string{"parent", "child"}, order); diff != "" {
		t.Errorf("Hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeHooksDeduplicate(t *testing.T) {
	shared := NewHook(func(*Instance) error { return nil })
	parent := newMergedOptions().Set(string(Mounted), []*Hook{shared})
	child := NewOptions().Set(string(Mounted), []*Hook{shared, NewHook(func(*Instance) error { return nil })})

	hooks := mergeOptions(parent, child, nil, nil).Hooks(Mounted)
	if len(hooks) != 2 {
		t.Fatalf("Expected repeated hook to be dropped, got %d hooks", len(hooks))
	}
	if hooks[0] != shared {
		t.Error("Expected the first occurrence to be kept in place")
	}
}

func TestMergeHooksInvalidValue(t *testing.T) {
	diag := captureDiagnostics(t)
	child := NewOptions().Set(string(Created), "not a hook")

	merged := mergeOptions(nil, child, nil, nil)
	if merged.Has(string(Created)) {
		t.Error("An invalid hook value should not produce a hook list")
	}
	if !diag.hasWarning(`invalid value for hook "created"`) {
		t.Errorf("Expected invalid hook warning, got %v", diag.messages())
	}
}

func TestMergeAssetsShadowing(t *testing.T) {
	root := NewRootType(nil)
	parentA := NewOptions().WithName("parent-a")
	childA := NewOptions().WithName("child-a")
	childB := NewOptions().WithName("child-b")

	parent := root.Extend(NewOptions().WithComponent("A", parentA))
	child := parent.Extend(NewOptions().WithComponent("B", childB))

	components := child.ResolveOptions().Components()
	if v, _ := components.Resolve("A"); v != parentA {
		t.Errorf("Expected inherited A, got %v", v)
	}
	if v, _ := components.Resolve("B"); v != childB {
		t.Errorf("Expected own B, got %v", v)
	}

	shadow := parent.Extend(NewOptions().WithComponent("A", childA))
	if v, _ := shadow.ResolveOptions().Components().Resolve("A"); v != childA {
		t.Errorf("Expected child A to shadow parent A, got %v", v)
	}
	if v, _ := parent.ResolveOptions().Components().Resolve("A"); v != parentA {
		t.Error("Shadowing in a subtype must not change the parent registry")
	}
}

func TestMergeDataComposes(t *testing.T) {
	parent := mergeOptions(nil, NewOptions().WithData(dataOf(map[string]any{
		"a": 1,
		"b": 1,
		"nested": map[string]any{"x": 1, "y": 1},
	})), nil, nil)
	child := NewOptions().WithData(dataOf(map[string]any{
		"b":      2,
		"c":      2,
		"nested": map[string]any{"y": 2},
	}))

	merged := mergeOptions(parent, child, nil, nil)
	data := callData(merged.Get(KeyData), nil, KeyData)
	want := map[string]any{
		"a":      1,
		"b":      2,
		"c":      2,
		"nested": map[string]any{"x": 1, "y": 2},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("Merged data mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDataIncompatibleValues(t *testing.T) {
	diag := captureDiagnostics(t)
	parent := mergeOptions(nil, NewOptions().WithData(dataOf(map[string]any{
		"cfg": map[string]any{"x": 1},
	})), nil, nil)
	child := NewOptions().WithData(dataOf(map[string]any{"cfg": "flat"}))

	data := callData(mergeOptions(parent, child, nil, nil).Get(KeyData), nil, KeyData)
	if data["cfg"] != "flat" {
		t.Errorf("Expected the child's value to win, got %v", data["cfg"])
	}
	if !diag.hasWarning("incompatible values for data.cfg") {
		t.Errorf("Expected incompatible merge warning, got %v", diag.messages())
	}
}

func TestMergeDataMapRequiresInstance(t *testing.T) {
	diag := captureDiagnostics(t)
	child := NewOptions().Set(KeyData, map[string]any{"a": 1})

	merged := mergeOptions(nil, child, nil, nil)
	if merged.Has(KeyData) {
		t.Error("A plain data map should be rejected in a type declaration")
	}
	if !diag.hasWarning("should be a function") {
		t.Errorf("Expected data function warning, got %v", diag.messages())
	}
}

func TestMergeDataPanicIsReported(t *testing.T) {
	diag := captureDiagnostics(t)
	parent := mergeOptions(nil, NewOptions().WithData(func(*Instance) map[string]any {
		panic("boom")
	}), nil, nil)
	child := NewOptions().WithData(dataOf(map[string]any{"ok": true}))

	data := callData(mergeOptions(parent, child, nil, nil).Get(KeyData), nil, KeyData)
	if data["ok"] != true {
		t.Errorf("Expected child data to survive a failing parent, got %v", data)
	}
	if len(diag.hookErrors) != 1 || diag.hookErrors[0].Info != "data()" {
		t.Errorf("Expected one data() hook error, got %v", diag.hookErrors)
	}
}

func TestMergeCreationOnlyKeys(t *testing.T) {
	diag := captureDiagnostics(t)
	mergeOptions(nil, NewOptions().WithEl("#app"), nil, nil)
	if !diag.hasWarning(`option "el" can only be used during instance creation`) {
		t.Errorf("Expected el warning, got %v", diag.messages())
	}

	diag.warnings = nil
	vm := &Instance{}
	merged := mergeOptions(nil, NewOptions().WithEl("#app"), vm, nil)
	if merged.El() != "#app" || len(diag.warnings) != 0 {
		t.Errorf("Expected el to merge silently at instance creation, got %q and %v", merged.El(), diag.messages())
	}
}

func TestMergeExtendStrategy(t *testing.T) {
	parentMethod := Method(func(*Instance, ...any) any { return "parent" })
	childMethod := Method(func(*Instance, ...any) any { return "child" })
	parent := mergeOptions(nil, NewOptions().WithMethods(map[string]Method{"a": parentMethod, "b": parentMethod}), nil, nil)
	child := NewOptions().WithMethods(map[string]Method{"b": childMethod})

	methods := mergeOptions(parent, child, nil, nil).Methods()
	if methods["a"](nil) != "parent" || methods["b"](nil) != "child" {
		t.Errorf("Expected child methods to replace same-named parent methods")
	}
	if len(parent.Methods()) != 2 || parent.Methods()["b"](nil) != "parent" {
		t.Error("Merging must not mutate the parent's method map")
	}
}

func TestMergeWatchConcatenates(t *testing.T) {
	h := func(*Instance, any, any) {}
	parent := mergeOptions(nil, NewOptions().WithWatch("a", Watcher{Handler: h}), nil, nil)
	child := NewOptions().WithWatch("a", Watcher{Handler: h, Immediate: true}).WithWatch("b", Watcher{Handler: h})

	watch := mergeOptions(parent, child, nil, nil).Watchers()
	if len(watch["a"]) != 2 || !watch["a"][1].Immediate {
		t.Errorf("Expected parent then child watchers for a, got %d", len(watch["a"]))
	}
	if len(watch["b"]) != 1 {
		t.Errorf("Expected one watcher for b, got %d", len(watch["b"]))
	}
}

func TestMergeDefaultStrategy(t *testing.T) {
	parent := mergeOptions(nil, NewOptions().Set("custom", "parent").Set("kept", 1), nil, nil)
	merged := mergeOptions(parent, NewOptions().Set("custom", "child"), nil, nil)
	if merged.Get("custom") != "child" {
		t.Errorf("Expected child to overwrite unknown key, got %v", merged.Get("custom"))
	}
	if merged.Get("kept") != 1 {
		t.Errorf("Expected parent value for undeclared key, got %v", merged.Get("kept"))
	}
}

func TestSetMergeStrategy(t *testing.T) {
	SetMergeStrategy("tags", func(parentVal, childVal any, _ MergeContext) any {
		p, _ := parentVal.([]string)
		c, _ := childVal.([]string)
		return append(append([]string{}, p...), c...)
	})
	t.Cleanup(func() { SetMergeStrategy("tags", nil) })

	parent := mergeOptions(nil, NewOptions().Set("tags", []string{"a"}), nil, nil)
	merged := mergeOptions(parent, NewOptions().Set("tags", []string{"b"}), nil, nil)
	if diff := cmp.Diff([]string{"a", "b"}, merged.Get("tags")); diff != "" {
		t.Errorf("Custom strategy mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeNormalizesProps(t *testing.T) {
	merged := mergeOptions(nil, NewOptions().WithPropNames("first-name", "age"), nil, nil)
	props := merged.Props()
	if _, ok := props["firstName"]; !ok {
		t.Errorf("Expected camelized prop firstName, got %v", props)
	}
	if _, ok := props["age"]; !ok {
		t.Errorf("Expected prop age, got %v", props)
	}

	typed := mergeOptions(nil, NewOptions().WithProps(map[string]Prop{"is-open": {Type: reflect.Bool}}), nil, nil)
	if typed.Props()["isOpen"].Type != reflect.Bool {
		t.Error("Expected hyphenated prop map keys to be camelized")
	}
}

func TestMergeNormalizesInject(t *testing.T) {
	merged := mergeOptions(nil, NewOptions().WithInjectNames("theme"), nil, nil)
	if got := merged.Inject()["theme"].From; got != "theme" {
		t.Errorf("Expected From to default to the key, got %q", got)
	}
}

func TestMergeExtendsAndMixins(t *testing.T) {
	var order []string
	record := func(name string) HookFunc {
		return func(*Instance) error { order = append(order, name); return nil }
	}
	base := NewOptions().On(Created, record("extends"))
	mixinA := NewOptions().On(Created, record("mixin-a"))
	mixinB := NewOptions().On(Created, record("mixin-b"))
	child := NewOptions().WithExtends(base).WithMixins(mixinA, mixinB).On(Created, record("own"))

	for _, h := range mergeOptions(nil, child, nil, nil).Hooks(Created) {
		_ = h.fn(nil)
	}
	want := []string{"extends", "mixin-a", "mixin-b", "own"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateComponentName(t *testing.T) {
	env := NewEnv()
	env.Config.ReservedTags = []string{"div"}
	tests := []struct {
		name string
		warn string
	}{
		{"my-component", ""},
		{"1bad", "invalid component name"},
		{"slot", "do not use built-in or reserved"},
		{"div", "do not use built-in or reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := captureDiagnostics(t)
			validateComponentName(tt.name, env)
			if tt.warn == "" {
				if len(diag.warnings) != 0 {
					t.Errorf("Expected no warnings, got %v", diag.messages())
				}
				return
			}
			if !diag.hasWarning(tt.warn) {
				t.Errorf("Expected %q warning, got %v", tt.warn, diag.messages())
			}
		})
	}
}

func TestSilentConfigSuppressesWarnings(t *testing.T) {
	diag := captureDiagnostics(t)
	env := NewEnv()
	env.Config.Silent = true
	mergeOptions(nil, NewOptions().WithEl("#app"), nil, env)
	if len(diag.warnings) != 0 {
		t.Errorf("Expected no warnings when silent, got %v", diag.messages())
	}
}
