package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger. Debug mode uses the development config
// (console encoder, debug level); otherwise the production JSON config at info level.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// QuestionField logs a user question truncated to a readable length.
func QuestionField(question string) zap.Field {
	return zap.String("question", Truncate(question, 80))
}
