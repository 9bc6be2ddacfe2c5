package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethanbaker/vulnassist/internal/agents/vuln"
	"github.com/ethanbaker/vulnassist/internal/api"
	"github.com/ethanbaker/vulnassist/internal/chat"
	"github.com/ethanbaker/vulnassist/internal/stores/messages"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// How long in-flight requests get to finish on shutdown
const shutdownGrace = 30 * time.Second

// Start the API server
func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	logger, err := utils.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[API-MAIN]: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *utils.Config, logger *zap.Logger) error {
	settings, err := utils.LoadSettings(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Message store and its maintenance schedule
	store, err := messages.Open(messages.OptionsFromSettings(settings), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close message store", zap.Error(err))
		}
	}()

	checkpoints, err := messages.ScheduleCheckpoint(store, settings.CheckpointSpec, logger)
	if err != nil {
		return err
	}
	if checkpoints != nil {
		defer func() {
			// Wait for a running checkpoint before the store closes
			<-checkpoints.Stop().Done()
		}()
	}

	// Lookup pipeline
	clientOpts := []nvd.ClientOption{nvd.WithTimeout(settings.LookupTimeout)}
	if settings.NVDBaseURL != "" {
		clientOpts = append(clientOpts, nvd.WithBaseURL(settings.NVDBaseURL))
	}
	client := nvd.NewClient(clientOpts...)
	aggregator := nvd.NewAggregator(client,
		nvd.WithMaxParallel(settings.MaxParallel),
		nvd.WithLogger(logger),
	)

	// Agent and chat orchestration
	agent := vuln.NewVulnAgent(settings, client, aggregator, logger)
	orchestrator := chat.NewOrchestrator(store, agent,
		chat.WithDebounce(settings.Debounce),
		chat.WithLogger(logger),
		chat.WithPersistFailureHook(func(turnID uuid.UUID, err error) {
			logger.Warn("chat turn missing from history", zap.String("turn_id", turnID.String()), zap.Error(err))
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.Start(ctx, api.Dependencies{
		Settings:     settings,
		Logger:       logger,
		Orchestrator: orchestrator,
		Prompts:      agent,
		Lookup:       client,
		Aggregator:   aggregator,
		Store:        store,
	}, shutdownGrace)
}
