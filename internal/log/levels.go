package log

import "go.uber.org/zap/zapcore"

// LevelTrace is a custom trace level, more verbose than debug.
const LevelTrace = zapcore.Level(-2)

// Verbosity levels accepted by -v.
const (
	VerbosityError = 0 // errors only
	VerbosityWarn  = 1 // + skipped files, rule warnings
	VerbosityInfo  = 2 // + scan summaries
	VerbosityDebug = 3 // + per-file events, script failures
	VerbosityTrace = 4 // + per-match events
)

// VerbosityToLevel maps -v=N to a zap level.
func VerbosityToLevel(v int) zapcore.Level {
	switch {
	case v <= 0:
		return zapcore.ErrorLevel
	case v == 1:
		return zapcore.WarnLevel
	case v == 2:
		return zapcore.InfoLevel
	case v == 3:
		return zapcore.DebugLevel
	default:
		return LevelTrace
	}
}

// LevelToVerbosity maps a zap level back to -v=N.
func LevelToVerbosity(l zapcore.Level) int {
	switch {
	case l >= zapcore.ErrorLevel:
		return VerbosityError
	case l >= zapcore.WarnLevel:
		return VerbosityWarn
	case l >= zapcore.InfoLevel:
		return VerbosityInfo
	case l >= zapcore.DebugLevel:
		return VerbosityDebug
	default:
		return VerbosityTrace
	}
}

// LevelName returns the display name of a level, including TRACE.
func LevelName(l zapcore.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.CapitalString()
}
