package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CoreOptions configures the log core.
type CoreOptions struct {
	Level  zapcore.LevelEnabler
	Format string // "text" or "json"
	Output io.Writer
}

// NewCore builds a console or JSON core. Output defaults to stderr so logs
// never mix with results on stdout.
func NewCore(opts CoreOptions) zapcore.Core {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Level == nil {
		opts.Level = zapcore.WarnLevel
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = encodeLevel

	var enc zapcore.Encoder
	if opts.Format == "json" {
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(opts.Output), opts.Level)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(LevelName(l))
}
