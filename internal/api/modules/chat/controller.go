package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/sdk"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Orchestrator runs chat turns and serves the stored conversation
type Orchestrator interface {
	History(ctx context.Context) ([]chat.Event, error)
	Run(ctx context.Context, prompt, credential string, emit func(chat.Event) error) error
}

// PromptBuilder renders dependency check prompts
type PromptBuilder interface {
	BuildPrompt(ctx context.Context, name, version string, prefetch bool) (string, error)
}

// Controller serves the chat routes
type Controller struct {
	orchestrator Orchestrator
	prompts      PromptBuilder
	logger       *zap.Logger
}

// NewController creates a chat controller
func NewController(orchestrator Orchestrator, prompts PromptBuilder, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		orchestrator: orchestrator,
		prompts:      prompts,
		logger:       logger.Named("chat"),
	}
}

// GetChat handles GET requests for the stored conversation as newline
// delimited events
func (ctrl *Controller) GetChat(c *gin.Context) {
	events, err := ctrl.orchestrator.History(c.Request.Context())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to load chat history", err.Error()).AsGinResponse())
		return
	}

	startStream(c)
	for _, e := range events {
		if err := chat.WriteEvent(c.Writer, e); err != nil {
			ctrl.logger.Info("client went away while reading history", zap.Error(err))
			return
		}
	}
}

// PostChat handles POST requests running one chat turn. The prompt comes
// from the "prompt" form field, or is rendered from "dependency_name" and
// "dependency_version" (with "prefetch" set to true to run the lookup
// before the model sees the prompt).
func (ctrl *Controller) PostChat(c *gin.Context) {
	credential := nvd.CredentialFromHeader(c.GetHeader("Authorization"))
	ctx := nvd.WithCredential(c.Request.Context(), credential)

	prompt := c.PostForm("prompt")
	if prompt == "" {
		name := c.PostForm("dependency_name")
		version := c.PostForm("dependency_version")
		if name != "" || version != "" {
			built, err := ctrl.prompts.BuildPrompt(ctx, name, version, c.PostForm("prefetch") == "true")
			if err != nil {
				var verr *nvd.ValidationError
				if errors.As(err, &verr) {
					c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid dependency", err.Error()).AsGinResponse())
					return
				}
				c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to look up dependency", err.Error()).AsGinResponse())
				return
			}
			prompt = built
		}
	}
	if prompt == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Form field 'prompt' is required", nil).AsGinResponse())
		return
	}

	startStream(c)
	emit := func(e chat.Event) error {
		if err := chat.WriteEvent(c.Writer, e); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := ctrl.orchestrator.Run(c.Request.Context(), prompt, credential, emit)
	if err == nil || c.Request.Context().Err() != nil {
		return
	}

	// The response has already started, so the failure is reported in band
	ctrl.logger.Warn("chat turn failed", zap.Error(err))
	failure := chat.NewEvent(chat.RoleModel, time.Now().UTC(), "Error: "+err.Error())
	if err := emit(failure); err != nil {
		ctrl.logger.Info("failed to report chat failure", zap.Error(err))
	}
}

// startStream commits the headers of a newline delimited event stream
func startStream(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
}
