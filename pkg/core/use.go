package core

import (
	"reflect"
	"slices"
	"unsafe"

	"go.uber.org/zap"

	"github.com/go-drift/loom/pkg/errors"
)

// Installer is a plugin with an install step.
type Installer interface {
	Install(root *Type, args ...any) error
}

// InstallFunc adapts a function to the Installer interface.
type InstallFunc func(root *Type, args ...any) error

// Install calls f(root, args...).
func (f InstallFunc) Install(root *Type, args ...any) error {
	return f(root, args...)
}

// Use installs plugin on root with args and returns root. Installing the
// same plugin twice is a no-op. A plugin is an Installer, an InstallFunc,
// a func(*Type, ...any) error or a func(*Type, ...any); any other value is
// recorded without being invoked.
//
// Function plugins are the same plugin only when they are the same func
// value. Keep a reference to a method value or closure to install it
// idempotently.
//
// An install error is returned wrapped in a KindPlugin error and the plugin
// is not recorded, so a later call may retry it.
func Use(root *Type, plugin any, args ...any) (*Type, error) {
	if plugin == nil {
		return root, nil
	}
	root.mu.Lock()
	installed := slices.ContainsFunc(root.plugins, func(p any) bool { return samePlugin(p, plugin) })
	root.mu.Unlock()
	if installed {
		return root, nil
	}

	var err error
	switch p := plugin.(type) {
	case Installer:
		err = p.Install(root, args...)
	case func(*Type, ...any) error:
		err = p(root, args...)
	case func(*Type, ...any):
		p(root, args...)
	}
	if err != nil {
		return root, &errors.LoomError{
			Op:   "use",
			Kind: errors.KindPlugin,
			Err:  err,
		}
	}

	root.mu.Lock()
	root.plugins = append(root.plugins, plugin)
	root.mu.Unlock()
	Logger().Debug("plugin installed", zap.Int("cid", root.cid), zap.String("plugin", reflect.TypeOf(plugin).String()))
	return root, nil
}

// Use installs plugin on t. See Use.
func (t *Type) Use(plugin any, args ...any) (*Type, error) {
	return Use(t, plugin, args...)
}

// InstalledPlugins returns the plugins recorded on t, in install order.
func (t *Type) InstalledPlugins() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.plugins)
}

// samePlugin compares plugins by identity. Functions compare by their
// closure reference: method values bound to different receivers are
// different plugins, and so are two evaluations of one func literal.
func samePlugin(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return funcRef(va) == funcRef(vb)
	}
	return identical(a, b)
}

// funcRef returns the closure pointer a func value holds.
func funcRef(v reflect.Value) unsafe.Pointer {
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return *(*unsafe.Pointer)(cp.Addr().UnsafePointer())
}
