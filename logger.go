package uniqw

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines logging methods used by the library. Implementations should be cheap.
// Default is FmtLogger which writes to stdout/stderr using fmt.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FmtLogger is a minimal logger that prints messages with level prefixes.
// Debug/Info go to stdout; Warn/Error go to stderr.
type FmtLogger struct{}

// NewFmtLogger creates a new FmtLogger.
func NewFmtLogger() *FmtLogger { return &FmtLogger{} }

func (FmtLogger) Debugf(format string, args ...any) { fmt.Printf("[DEBUG] "+format+"\n", args...) }
func (FmtLogger) Infof(format string, args ...any)  { fmt.Printf("[INFO]  "+format+"\n", args...) }
func (FmtLogger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN]  "+format+"\n", args...)
}
func (FmtLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}

// ZapLogger writes JSON lines through zap.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapLogger creates a ZapLogger writing to w at the given level
// ("debug", "info", "warn" or "error"; anything else means info).
func NewZapLogger(level string, w io.Writer) *ZapLogger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), ParseLevel(level))
	l := zap.New(core)
	return &ZapLogger{logger: l, sugar: l.Sugar()}
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.logger.Sync() }
