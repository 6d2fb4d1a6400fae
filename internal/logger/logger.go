package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and output format.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Env is "production" for JSON output; anything else logs in console
	// format.
	Env string `mapstructure:"env"`
}

// DefaultConfig logs warnings and above in console format, so a CLI run is
// quiet unless something went wrong.
func DefaultConfig() Config {
	return Config{Level: "warn", Env: "development"}
}

// New builds a logger writing to stderr. Stdout is reserved for command
// output.
func New(cfg Config) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, w io.Writer) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Env == "production" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
