// Package core resolves component definitions and brings component
// instances to life.
//
// A component is described by Options, a mapping from option key to value.
// Types relate Options through an extension chain: every Type except a
// root has a super type, and its effective configuration is the merge of
// the super type's effective configuration with its own declaration.
//
// # Types
//
// Declare types from a root:
//
//	root := core.NewRootType(nil)
//	base := root.Extend(core.NewOptions().
//	    WithName("base").
//	    WithData(func(vm *core.Instance) map[string]any {
//	        return map[string]any{"count": 0}
//	    }))
//	button := base.Extend(core.NewOptions().WithName("fancy-button"))
//
// ResolveOptions returns the effective configuration of a type. The result
// is cached per type and recomputed only when an ancestor's configuration
// was replaced, for example by Mixin. Repeated calls without an
// intervening change return the same *Options.
//
// # Merge Policy
//
// Each option key has its own merge strategy. Lifecycle hooks concatenate
// parent first, asset registries (components, directives, filters) overlay
// child entries on the parent's, data and provide compose, and unknown keys
// take the child's value when declared. SetMergeStrategy overrides the
// strategy of a key.
//
// # Instances
//
// New merges the type's resolved options with per-instance options and
// runs the initialization stages: lifecycle bookkeeping, events, render
// context, beforeCreate, injections, state, provide and created. Instances
// created while rendering a parent take a faster path that layers the
// call-site fields over the type's options without merging.
//
//	vm := core.New(button, core.NewOptions().WithPropsData(map[string]any{"label": "OK"}))
//	vm.Get("count")
//
// The Env of the root type holds the collaborators the initializer
// delegates to. DefaultState and BasicRenderer are used unless replaced.
//
// # Plugins
//
// Use installs a plugin on a root type once:
//
//	root.Use(core.InstallFunc(func(root *core.Type, args ...any) error {
//	    root.Mixin(core.NewOptions().On(core.Created, trace))
//	    return nil
//	}))
//
// # Diagnostics
//
// Declaration problems never fail resolution or initialization. They are
// reported as warnings through the errors package unless the Env's
// configuration is silent. Hook failures are offered to the errorCaptured
// hooks of the instance's ancestors before reaching the global handler.
package core
