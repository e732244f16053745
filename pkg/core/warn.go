package core

import (
	"fmt"
	"strings"

	"github.com/go-drift/loom/pkg/errors"
)

// warn is the diagnostic channel for every non-fatal condition.
func warn(env *Env, vm *Instance, msg string) {
	if env == nil && vm != nil {
		env = vm.env
	}
	if cfg := env.config(); cfg != nil && cfg.Silent {
		return
	}
	w := &errors.Warning{Message: msg}
	if vm != nil {
		w.Component = FormatComponentName(vm)
		w.Trace = componentTrace(vm)
	}
	errors.ReportWarning(w)
}

func (vm *Instance) warnf(format string, args ...any) {
	warn(vm.env, vm, fmt.Sprintf(format, args...))
}

// FormatComponentName returns the display name used in diagnostics:
// "<Root>" for a root instance, "<PascalName>" for a named component and
// "<Anonymous>" otherwise.
func FormatComponentName(vm *Instance) string {
	if vm == nil {
		return "<Anonymous>"
	}
	if vm.root == vm {
		return "<Root>"
	}
	var name string
	if vm.options != nil {
		name = vm.options.Name()
		if name == "" {
			name = vm.options.ComponentTag()
		}
	} else if vm.typ != nil {
		name = vm.typ.currentOptions().Name()
	}
	if name == "" {
		return "<Anonymous>"
	}
	return "<" + classify(name) + ">"
}

// componentTrace renders the ancestor chain of vm, innermost first.
func componentTrace(vm *Instance) string {
	if vm == nil || vm.parent == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("found in\n\n")
	depth := 0
	for cur := vm; cur != nil; cur = cur.parent {
		if depth == 0 {
			sb.WriteString("---> ")
		} else {
			sb.WriteString(strings.Repeat(" ", 5+depth*2))
		}
		sb.WriteString(FormatComponentName(cur))
		sb.WriteString("\n")
		depth++
	}
	return sb.String()
}
