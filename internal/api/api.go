package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	chat_module "github.com/ethanbaker/vulnassist/internal/api/modules/chat"
	health_module "github.com/ethanbaker/vulnassist/internal/api/modules/health"
	nvd_module "github.com/ethanbaker/vulnassist/internal/api/modules/nvd"
)

// Dependencies are the components the HTTP boundary serves
type Dependencies struct {
	Settings     *utils.Settings
	Logger       *zap.Logger
	Orchestrator chat_module.Orchestrator
	Prompts      chat_module.PromptBuilder
	Lookup       nvd.Lookup
	Aggregator   *nvd.Aggregator
	Store        health_module.Counter
}

// NewEngine builds the gin engine with every module registered
func NewEngine(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	// Add app level settings/routes
	engine := gin.New()
	engine.Use(requestLogger(logger), gin.Recovery())
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Settings.CORSAllowedOrigins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup, health_module.NewController(deps.Store))

	guard := apiKeyGuard(deps.Settings.APIKey)
	chat_module.RegisterRoutes(baseGroup, chat_module.NewController(deps.Orchestrator, deps.Prompts, logger), guard...)
	nvd_module.RegisterRoutes(baseGroup, nvd_module.NewController(deps.Lookup, deps.Aggregator, deps.Settings.NVDAPIKey, logger), guard...)

	return engine
}

// Start serves the engine until ctx is cancelled, then shuts the server down
// gracefully, giving in-flight requests up to grace to finish
func Start(ctx context.Context, deps Dependencies, grace time.Duration) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:    ":" + deps.Settings.Port,
		Handler: NewEngine(deps),
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", server.Addr))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
