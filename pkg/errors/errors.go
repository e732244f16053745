// Package errors provides structured error handling and the diagnostic
// warning channel for the Loom component runtime.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConfig indicates a configuration conflict between declarations.
	KindConfig
	// KindUsage indicates misuse of the instantiation protocol.
	KindUsage
	// KindPlugin indicates a plugin install failure.
	KindPlugin
	// KindRender indicates a rendering error.
	KindRender
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUsage:
		return "usage"
	case KindPlugin:
		return "plugin"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// LoomError represents a structured error raised by the runtime.
type LoomError struct {
	// Op is the operation that failed (e.g., "core.Use").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Component is the formatted component name, if applicable.
	Component string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LoomError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s [%s] component=%s: %v", e.Op, e.Kind, e.Component, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *LoomError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "loom run").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// HookError represents a failure inside a user callback: a lifecycle hook,
// an event handler, a watcher or a data function.
type HookError struct {
	// Component is the formatted name of the instance that owned the callback.
	Component string
	// Info describes the callback (e.g., "created hook", `event handler for "save"`).
	Info string
	// Recovered is the panic value (nil for returned errors).
	Recovered any
	// Err is the returned error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *HookError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s of %s: %v", e.Info, e.Component, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s of %s: %v", e.Info, e.Component, e.Err)
	}
	return fmt.Sprintf("unknown error in %s of %s", e.Info, e.Component)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Warning is a non-fatal diagnostic. Resolution and initialization always
// continue after a warning with a deterministic fallback.
type Warning struct {
	// Message describes the condition.
	Message string
	// Component is the formatted name of the context instance, if any.
	Component string
	// Trace is the ancestor chain of the context instance, if any.
	Trace string
	// Timestamp is when the warning was raised.
	Timestamp time.Time
}

func (w *Warning) String() string {
	if w.Component != "" {
		return fmt.Sprintf("%s (found in %s)", w.Message, w.Component)
	}
	return w.Message
}

// ErrorHandler receives errors and warnings reported by the runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *LoomError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleHookError is called when a user callback fails and no
	// errorCaptured hook stopped propagation.
	HandleHookError(err *HookError)
	// HandleWarning is called for every non-fatal diagnostic.
	HandleWarning(w *Warning)
}
