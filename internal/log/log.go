// Package log provides leveled structured logging for treegrep on top of
// uber-go/zap, with kubectl-style -v verbosity.
package log

import (
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger    atomic.Pointer[zap.Logger]
	level     = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	verbosity atomic.Int32
)

func init() {
	verbosity.Store(VerbosityWarn)
	logger.Store(zap.New(NewCore(CoreOptions{Level: level, Format: "text"})))
}

// Init installs the process logger. Call once at startup.
func Init(v int, format string) {
	InitWriter(v, format, nil)
}

// InitWriter is like Init but writes to w. A nil w means stderr.
func InitWriter(v int, format string, w io.Writer) {
	SetVerbosity(v)
	logger.Store(zap.New(NewCore(CoreOptions{Level: level, Format: format, Output: w})))
}

// SetVerbosity changes the verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.SetLevel(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity.
func Verbosity() int {
	return int(verbosity.Load())
}

// Logger returns the current logger.
func Logger() *zap.Logger {
	return logger.Load()
}

// Error logs at error level (v=0).
func Error(msg string, fields ...zap.Field) {
	logger.Load().Error(msg, fields...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, fields ...zap.Field) {
	logger.Load().Warn(msg, fields...)
}

// Info logs at info level (v=2).
func Info(msg string, fields ...zap.Field) {
	logger.Load().Info(msg, fields...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, fields ...zap.Field) {
	logger.Load().Debug(msg, fields...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, fields ...zap.Field) {
	logger.Load().Log(LevelTrace, msg, fields...)
}

// V returns the logger if verbosity is at least v, and a no-op logger
// otherwise.
func V(v int) *zap.Logger {
	if int(verbosity.Load()) >= v {
		return logger.Load()
	}
	return zap.NewNop()
}

// Component returns a logger tagged with a component name.
func Component(name string) *zap.Logger {
	return logger.Load().With(zap.String("component", name))
}

// Sync flushes buffered entries.
func Sync() {
	_ = logger.Load().Sync()
}
