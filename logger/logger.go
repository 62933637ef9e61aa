package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "portfolio-backend"

var (
	// LogLevel は実行中に変更可能なログレベルです（config側で設定される）
	LogLevel = zap.NewAtomicLevel()
	// Logger はサービス全体で共有するロガーです
	Logger *zap.Logger
)

func init() {
	config := zap.NewProductionConfig()
	config.Level = LogLevel

	// Cloud Runはstdoutからログを収集する
	config.OutputPaths = []string{"stdout"}

	// 開発環境ではサンプリングを止めて全リクエストのログを出す
	if os.Getenv("ENVIRONMENT") == "development" {
		config.Development = true
		config.Sampling = nil
	}

	// Cloud Loggingが解釈するフィールド名に合わせる
	config.EncoderConfig = zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "severity",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	built, err := config.Build()
	if err != nil {
		panic(err)
	}
	Logger = built.Named(serviceName)

	zap.ReplaceGlobals(Logger)
}
