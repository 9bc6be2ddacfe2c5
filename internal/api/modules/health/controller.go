package health

import (
	"context"
	"net/http"

	"github.com/ethanbaker/vulnassist/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// Counter reports how many turn batches are stored
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Controller serves the health probe
type Controller struct {
	store Counter
}

// NewController creates a health controller
func NewController(store Counter) *Controller {
	return &Controller{store: store}
}

// GetStatus returns the status of the API along with the stored batch count
func (ctrl *Controller) GetStatus(c *gin.Context) {
	count, err := ctrl.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusServiceUnavailable, "Message store unavailable", err.Error()).AsGinResponse())
		return
	}

	res := sdk.NewSuccessResponse("OK", sdk.HealthStatus{Batches: count})
	c.JSON(res.AsGinResponse())
}
