package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

// NewLogger builds the process logger. An unknown level falls back to info.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	fields := []zap.Field{zap.String("service", c.App)}
	if c.Env != "" {
		fields = append(fields, zap.String("env", c.Env))
	}
	if c.Ver != "" {
		fields = append(fields, zap.String("version", c.Ver))
	}
	return cfg.Build(zap.Fields(fields...), zap.AddStacktrace(zapcore.ErrorLevel))
}
