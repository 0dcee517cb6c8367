package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured, key-value logger shared by every component.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a console logger writing to stderr. Verbose enables debug
// output, which includes the ffmpeg command lines.
func NewLogger(verbose bool) *Logger {
	return newLogger(verbose, "console")
}

// NewJSONLogger is NewLogger with JSON encoding, for the HTTP server.
func NewJSONLogger(verbose bool) *Logger {
	return newLogger(verbose, "json")
}

func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newLogger(verbose bool, encoding string) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoder := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if encoding == "console" {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// Named returns a child logger with the given name segment.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// OrNop lets components accept a nil logger.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}
