// Package logger wraps zap with the stage-aware configuration used across the
// billing core's services and entrypoints.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StageProd  = "prod"
	StageDev   = "dev"
	StageLocal = "local"
)

// Log is the global logger instance used by cmd/* entrypoints. Services should
// prefer taking a *zap.Logger through their constructor instead of reaching for
// this directly.
var Log *zap.Logger

// Init builds the global logger for the given deployment stage.
func Init(stage string) *zap.Logger {
	var cfg zap.Config
	if stage == StageProd {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := cfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	Log = built
	return built
}

func Info(msg string, fields ...zapcore.Field)  { Log.Info(msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { Log.Error(msg, fields...) }
func Debug(msg string, fields ...zapcore.Field) { Log.Debug(msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { Log.Warn(msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { Log.Fatal(msg, fields...) }

func With(fields ...zapcore.Field) *zap.Logger { return Log.With(fields...) }

func Sync() error { return Log.Sync() }
