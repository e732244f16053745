package core

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInitProps(t *testing.T) {
	root := NewRootType(nil)
	comp := root.Extend(NewOptions().WithName("props-demo").WithProps(map[string]Prop{
		"title":    {Type: reflect.String, Default: "untitled"},
		"disabled": {Type: reflect.Bool},
		"checked":  {Type: reflect.Bool},
		"items":    {Default: func(*Instance) any { return []string{"a"} }},
		"count":    {Type: reflect.Int},
	}))

	vm := New(comp, NewOptions().WithPropsData(map[string]any{
		"checked": "",
		"count":   3,
	}))

	want := map[string]any{
		"title":    "untitled",
		"disabled": false,
		"checked":  true,
		"items":    []string{"a"},
		"count":    3,
	}
	if diff := cmp.Diff(want, vm.Props()); diff != "" {
		t.Errorf("Props mismatch (-want +got):\n%s", diff)
	}
}

func TestInitPropsWarnings(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]Prop
		data  map[string]any
		warn  string
	}{
		{
			name:  "required",
			props: map[string]Prop{"id": {Required: true}},
			warn:  `missing required prop: "id"`,
		},
		{
			name:  "type",
			props: map[string]Prop{"count": {Type: reflect.Int}},
			data:  map[string]any{"count": "three"},
			warn:  `type check failed for prop "count". Expected int, got string`,
		},
		{
			name:  "validator",
			props: map[string]Prop{"size": {Validator: func(v any) bool { return v == "small" }}},
			data:  map[string]any{"size": "huge"},
			warn:  `custom validator check failed for prop "size"`,
		},
		{
			name:  "reserved attribute",
			props: map[string]Prop{"key": {}},
			warn:  `"key" is a reserved attribute`,
		},
		{
			name:  "shared default",
			props: map[string]Prop{"tags": {Default: []string{"x"}}},
			warn:  `must use a factory function`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := captureDiagnostics(t)
			comp := NewRootType(nil).Extend(NewOptions().WithProps(tt.props))
			New(comp, NewOptions().WithPropsData(tt.data))
			if !diag.hasWarning(tt.warn) {
				t.Errorf("Expected %q warning, got %v", tt.warn, diag.messages())
			}
		})
	}
}

func TestInitStateConflicts(t *testing.T) {
	diag := captureDiagnostics(t)
	comp := NewRootType(nil).Extend(NewOptions().
		WithName("conflicted").
		WithPropNames("shared").
		WithMethods(map[string]Method{
			"shared": func(*Instance, ...any) any { return "method" },
			"both":   func(*Instance, ...any) any { return "method" },
		}).
		WithData(dataOf(map[string]any{"shared": "data", "both": "data", "own": 1})).
		WithComputed(map[string]Computed{
			"own":     {Get: func(*Instance) any { return "computed" }},
			"derived": {Get: func(vm *Instance) any { return vm.Get("own").(int) * 2 }},
		}))

	vm := New(comp, NewOptions().WithPropsData(map[string]any{"shared": "prop"}))

	for _, msg := range []string{
		`method "shared" has already been defined as a prop`,
		`method "both" has already been defined as a data property`,
		`the data property "shared" is already declared as a prop`,
		`the computed property "own" is already defined in data`,
	} {
		if !diag.hasWarning(msg) {
			t.Errorf("Expected %q warning, got %v", msg, diag.messages())
		}
	}
	if vm.Get("shared") != "prop" {
		t.Errorf("Expected props to take precedence, got %v", vm.Get("shared"))
	}
	if vm.Get("own") != 1 {
		t.Errorf("Expected data to win over a conflicting computed, got %v", vm.Get("own"))
	}
	if vm.Get("derived") != 2 {
		t.Errorf("Expected computed value 2, got %v", vm.Get("derived"))
	}
	if vm.Status() != StatusCreated {
		t.Error("Expected declaration conflicts not to stop initialization")
	}
}

func TestInitDataReturningNil(t *testing.T) {
	diag := captureDiagnostics(t)
	comp := NewRootType(nil).Extend(NewOptions().WithData(func(*Instance) map[string]any { return nil }))
	vm := New(comp, nil)
	if !diag.hasWarning("data functions should return an object") {
		t.Errorf("Expected data warning, got %v", diag.messages())
	}
	if vm.Data() == nil {
		t.Error("Expected empty data")
	}
}

func TestInitDataMapOnInstance(t *testing.T) {
	vm := New(NewRootType(nil), NewOptions().Set(KeyData, map[string]any{"plain": true}))
	if vm.Get("plain") != true {
		t.Errorf("Expected a plain data map to be accepted at instance creation, got %v", vm.Get("plain"))
	}
}

func TestMethodsAndCall(t *testing.T) {
	diag := captureDiagnostics(t)
	comp := NewRootType(nil).Extend(NewOptions().
		WithData(dataOf(map[string]any{"n": 2})).
		WithMethods(map[string]Method{
			"double": func(vm *Instance, args ...any) any { return vm.Get("n").(int) * 2 },
			"$bad":   func(*Instance, ...any) any { return nil },
		}))
	vm := New(comp, nil)

	if got := vm.Call("double"); got != 4 {
		t.Errorf("Expected 4, got %v", got)
	}
	if vm.Call("missing") != nil || !diag.hasWarning(`method "missing" is not defined`) {
		t.Errorf("Expected undefined method warning, got %v", diag.messages())
	}
	if !diag.hasWarning(`method "$bad" conflicts with an existing instance method`) {
		t.Errorf("Expected reserved method warning, got %v", diag.messages())
	}
}

func TestComputedSetter(t *testing.T) {
	diag := captureDiagnostics(t)
	comp := NewRootType(nil).Extend(NewOptions().
		WithData(dataOf(map[string]any{"first": "Ada", "last": "Lovelace"})).
		WithComputed(map[string]Computed{
			"full": {
				Get: func(vm *Instance) any { return vm.Get("first").(string) + " " + vm.Get("last").(string) },
				Set: func(vm *Instance, v any) { vm.Set("first", v) },
			},
			"readonly": {Get: func(*Instance) any { return 1 }},
			"broken":   {},
		}))
	vm := New(comp, nil)

	vm.Set("full", "Grace")
	if vm.Get("full") != "Grace Lovelace" {
		t.Errorf("Expected the setter to update data, got %v", vm.Get("full"))
	}
	vm.Set("readonly", 2)
	if !diag.hasWarning(`computed property "readonly" was assigned to but it has no setter`) {
		t.Errorf("Expected setter warning, got %v", diag.messages())
	}
	if !diag.hasWarning(`getter is missing for computed property "broken"`) {
		t.Errorf("Expected getter warning, got %v", diag.messages())
	}
}

func TestWatchers(t *testing.T) {
	type change struct{ newVal, oldVal any }
	var changes []change
	var immediate []any
	comp := NewRootType(nil).Extend(NewOptions().
		WithData(dataOf(map[string]any{"count": 1})).
		WithWatch("count", Watcher{Handler: func(_ *Instance, n, o any) { changes = append(changes, change{n, o}) }}).
		WithWatch("count", Watcher{Immediate: true, Handler: func(_ *Instance, n, _ any) { immediate = append(immediate, n) }}))
	vm := New(comp, nil)

	if diff := cmp.Diff([]any{1}, immediate); diff != "" {
		t.Errorf("Immediate watcher mismatch (-want +got):\n%s", diff)
	}
	vm.Set("count", 2)
	vm.Set("count", 2)
	if len(changes) != 1 || changes[0].newVal != 2 || changes[0].oldVal != 1 {
		t.Errorf("Expected one change 1 -> 2, got %v", changes)
	}
}

func TestSetPropWarns(t *testing.T) {
	diag := captureDiagnostics(t)
	comp := NewRootType(nil).Extend(NewOptions().WithPropNames("value"))
	vm := New(comp, NewOptions().WithPropsData(map[string]any{"value": 1}))

	vm.Set("value", 2)
	if !diag.hasWarning("avoid mutating a prop directly") {
		t.Errorf("Expected prop mutation warning, got %v", diag.messages())
	}
	if vm.Get("value") != 2 {
		t.Errorf("Expected the prop to be updated, got %v", vm.Get("value"))
	}
}

func TestProvideInject(t *testing.T) {
	diag := captureDiagnostics(t)
	root := NewRootType(nil)
	provider := New(root, NewOptions().WithProvide(dataOf(map[string]any{"theme": "dark", "lang": "en"})))
	middle := New(root, NewOptions().WithParent(provider).WithProvide(dataOf(map[string]any{"lang": "fr"})))

	consumer := New(root, NewOptions().
		WithParent(middle).
		WithInject(map[string]Inject{
			"theme":    {},
			"language": {From: "lang"},
			"size":     {Default: "m"},
			"color":    {Default: func(*Instance) any { return "red" }},
			"missing":  {},
		}))

	want := map[string]any{
		"theme":    "dark",
		"language": "fr",
		"size":     "m",
		"color":    "red",
	}
	if diff := cmp.Diff(want, consumer.Injected()); diff != "" {
		t.Errorf("Injected mismatch (-want +got):\n%s", diff)
	}
	if consumer.Get("language") != "fr" {
		t.Error("Expected injected values to be readable from the instance")
	}
	if !diag.hasWarning(`injection "missing" not found`) {
		t.Errorf("Expected missing injection warning, got %v", diag.messages())
	}
}

func TestProvideComposesAcrossTypes(t *testing.T) {
	root := NewRootType(nil)
	base := root.Extend(NewOptions().WithProvide(dataOf(map[string]any{"a": 1, "b": 1})))
	sub := base.Extend(NewOptions().WithProvide(dataOf(map[string]any{"b": 2})))

	vm := New(sub, nil)
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, vm.Provided()); diff != "" {
		t.Errorf("Provided mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorCapturedPropagation(t *testing.T) {
	diag := captureDiagnostics(t)
	root := NewRootType(nil)
	var seen []string

	top := New(root, NewOptions().OnErrorCaptured(func(err error, vm *Instance, info string) bool {
		seen = append(seen, "top:"+info)
		return true
	}))
	middle := New(root, NewOptions().WithParent(top).OnErrorCaptured(func(err error, vm *Instance, info string) bool {
		seen = append(seen, "middle:"+info)
		return true
	}))
	New(root, NewOptions().WithParent(middle).On(Created, func(*Instance) error {
		panic("created failed")
	}))

	if diff := cmp.Diff([]string{"middle:created hook", "top:created hook"}, seen); diff != "" {
		t.Errorf("errorCaptured calls mismatch (-want +got):\n%s", diff)
	}
	if len(diag.hookErrors) != 1 || diag.hookErrors[0].Recovered != "created failed" {
		t.Errorf("Expected the error to reach the global handler, got %v", diag.hookErrors)
	}
}

func TestErrorCapturedStopsPropagation(t *testing.T) {
	diag := captureDiagnostics(t)
	root := NewRootType(nil)
	topCalled := false

	top := New(root, NewOptions().OnErrorCaptured(func(error, *Instance, string) bool {
		topCalled = true
		return true
	}))
	middle := New(root, NewOptions().WithParent(top).OnErrorCaptured(func(error, *Instance, string) bool {
		return false
	}))
	child := New(root, NewOptions().WithParent(middle))
	invokeWithErrorHandling(func() error { return errTest }, child, "test")

	if topCalled {
		t.Error("Expected propagation to stop at the hook returning false")
	}
	if len(diag.hookErrors) != 0 {
		t.Errorf("Expected nothing to reach the global handler, got %v", diag.hookErrors)
	}
}

var errTest = testError("test failure")

type testError string

func (e testError) Error() string { return string(e) }
