package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const checkpointTimeout = 30 * time.Second

// checkpointer is the part of the store the scheduled maintenance needs
type checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// ScheduleCheckpoint runs Checkpoint on the given cron spec. The returned
// cron must be stopped before the store is closed. An empty spec schedules
// nothing and returns nil.
func ScheduleCheckpoint(store checkpointer, spec string, logger *zap.Logger) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("checkpoint")

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
		defer cancel()

		start := time.Now()
		if err := store.Checkpoint(ctx); err != nil {
			logger.Error("scheduled checkpoint failed", zap.Error(err))
			return
		}
		logger.Debug("scheduled checkpoint complete", zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info("checkpoint scheduled", zap.String("spec", spec))

	return c, nil
}
