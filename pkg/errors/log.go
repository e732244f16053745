package errors

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogHandler is an ErrorHandler that writes through a zap logger.
type LogHandler struct {
	// Logger receives the records. When nil, a console logger on stderr is used.
	Logger *zap.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

var (
	stderrLogger     *zap.Logger
	stderrLoggerOnce sync.Once
)

func defaultLogger() *zap.Logger {
	stderrLoggerOnce.Do(func() {
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.DebugLevel)
		stderrLogger = zap.New(core).Named("loom")
	})
	return stderrLogger
}

func (h *LogHandler) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return defaultLogger()
}

// HandleError logs a LoomError.
func (h *LogHandler) HandleError(err *LoomError) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("op", err.Op), zap.Error(err.Err)}
	if h.Verbose {
		fields = append(fields, zap.Stringer("kind", err.Kind))
		if err.Component != "" {
			fields = append(fields, zap.String("component", err.Component))
		}
		if err.StackTrace != "" {
			fields = append(fields, zap.String("stack", err.StackTrace))
		}
	}
	h.logger().Error("loom error", fields...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.Any("value", err.Value)}
	if err.Op != "" {
		fields = append(fields, zap.String("op", err.Op))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("loom panic", fields...)
}

// HandleHookError logs a HookError.
func (h *LogHandler) HandleHookError(err *HookError) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("info", err.Info), zap.String("component", err.Component)}
	if err.Recovered != nil {
		fields = append(fields, zap.Any("panic", err.Recovered))
	}
	if err.Err != nil {
		fields = append(fields, zap.Error(err.Err))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger().Error("loom hook error", fields...)
}

// HandleWarning logs a Warning.
func (h *LogHandler) HandleWarning(w *Warning) {
	if w == nil {
		return
	}
	fields := []zap.Field{}
	if w.Component != "" {
		fields = append(fields, zap.String("component", w.Component))
	}
	if h.Verbose && w.Trace != "" {
		fields = append(fields, zap.String("trace", w.Trace))
	}
	h.logger().Warn(w.Message, fields...)
}
