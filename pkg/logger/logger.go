package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Build returns a logger for the given environment without touching the
// global one. "dev" gets a colourised console encoder, anything else JSON.
// An unparsable level falls back to info.
func Build(service, env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", service), zap.String("env", env)), nil
}

// Init initializes the global logger.
// Environment can be "dev", "uat", or "prod".
func Init(service, env, level string) {
	l, err := Build(service, env, level)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	log = l
	sugar = l.Sugar()

	sugar.Infow("logger initialized", "level", level)
}

// L returns the base structured logger.
func L() *zap.Logger {
	if log == nil {
		Init("refdata", "dev", "info")
	}
	return log
}

// S returns the sugared logger.
func S() *zap.SugaredLogger {
	if sugar == nil {
		Init("refdata", "dev", "info")
	}
	return sugar
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().With(zap.String("component", component))
}

// Sync flushes any buffered logs (defer this in main()).
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
