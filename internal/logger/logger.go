package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry as the "service" field
const ServiceName = "clothes-shop"

// IsStructured reports whether env logs JSON rather than console text
func IsStructured(env string) bool {
	return env == "production" || env == "staging"
}

// EncoderConfig returns the entry layout used for env. Structured
// environments use stable key names for log shippers.
func EncoderConfig(env string) zapcore.EncoderConfig {
	if !IsStructured(env) {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

// New creates the process logger for env. Output goes to stdout for
// container log collection.
func New(env string) (*zap.Logger, error) {
	var config zap.Config
	if IsStructured(env) {
		config = zap.NewProductionConfig()
		config.Encoding = "json"
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig = EncoderConfig(env)
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("service", ServiceName),
		zap.String("env", env),
	), nil
}
