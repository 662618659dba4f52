// Package logger holds the process-wide zap logger.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

var nop = zap.NewNop()

// ParseLevel maps a LOG_LEVEL value onto a zap level. Unknown values fall
// back to info.
func ParseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Init builds the logger. Development mode writes human-readable console
// output; otherwise entries are JSON with ISO8601 timestamps.
func Init(development bool, level zapcore.Level) error {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	l, err := config.Build(zap.Fields(zap.String("service", "fintrack-api")))
	if err != nil {
		return err
	}
	current.Store(l)
	return nil
}

// Get returns the logger. Before Init it returns a no-op logger so packages
// can log unconditionally.
func Get() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return nop
}

// Sync flushes any buffered log entries
func Sync() error {
	if l := current.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
