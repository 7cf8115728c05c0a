// Package logger builds the zap logger used by the binaries.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr. Unknown levels fall back to info;
// encoding is "console" or anything else for JSON.
func New(level, encoding string) *zap.Logger {
	return build(level, encoding, zapcore.AddSync(os.Stderr))
}

func build(level, encoding string, out zapcore.WriteSyncer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if encoding == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(enc, out, lvl), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
