// Package logging builds the process-wide zap logger.
package logging

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a JSON logger.  Outside prod the level drops to debug.
func New(env string) (*zap.Logger, error) {
    cfg := zap.NewProductionConfig()
    cfg.InitialFields = map[string]interface{}{"app": "bus-seat-reservation", "env": env}
    cfg.OutputPaths = []string{"stdout"}
    cfg.ErrorOutputPaths = []string{"stderr"}
    cfg.EncoderConfig.TimeKey = "timestamp"
    cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    if env != "prod" {
        cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
    }
    return cfg.Build()
}
