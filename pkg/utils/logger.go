package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// LOG_FORMAT=console switches to the human readable development encoder.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Get("LOG_FORMAT"), "console") {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level := zap.InfoLevel
	if raw := cfg.Get("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
