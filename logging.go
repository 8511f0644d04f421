package filesem

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the console logger used by the filesem CLI. Debug
// enables debug-level output; otherwise only warnings and errors are shown
// so the workload's own output stays clean. Everything goes to stderr,
// leaving stdout to the workload.
//
// Library consumers can ignore this and inject any *zap.Logger; all types
// treat a nil logger as zap.NewNop().
func NewLogger(debug bool) *zap.Logger {
	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core)
}
