package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggerInitialized(t *testing.T) {
	if Logger == nil {
		t.Fatal("Logger should be built at package init")
	}
	if zap.L() != Logger {
		t.Error("Logger should replace the zap global logger")
	}
}

func TestLogLevelIsAdjustable(t *testing.T) {
	prev := LogLevel.Level()
	defer LogLevel.SetLevel(prev)

	LogLevel.SetLevel(zapcore.WarnLevel)
	if Logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Info should be disabled at warn level")
	}
	if !Logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("Warn should be enabled at warn level")
	}

	LogLevel.SetLevel(zapcore.DebugLevel)
	if !Logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Debug should be enabled after lowering the level")
	}
}
