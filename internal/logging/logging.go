// logging.go — startup logger construction.
// The bridge writes nothing but MCP frames to stdout (see internal/mcp), so
// every logger here is wired to stderr only, matching the MCP_STDIO_MODE
// contract in §6 of SPEC_FULL.md.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. debug enables verbose-level logging
// (used by --dry-run and local development); stdioMode, when true, drops the
// timestamp/caller fields so log lines stay terse next to MCP traffic in a
// terminal, matching the intent of MCP_STDIO_MODE without ever touching
// stdout.
func New(debug bool, stdioMode bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if stdioMode {
		encoderCfg.TimeKey = ""
		encoderCfg.CallerKey = ""
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	)
	return zap.New(core)
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.Logger {
	return zap.NewNop()
}
