package nvd

import (
	"errors"
	"net/http"

	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/sdk"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller serves direct vulnerability lookups
type Controller struct {
	lookup            nvd.Lookup
	aggregator        *nvd.Aggregator
	defaultCredential string
	logger            *zap.Logger
}

// NewController creates an nvd controller. defaultCredential is used when a
// request carries no Authorization header.
func NewController(lookup nvd.Lookup, aggregator *nvd.Aggregator, defaultCredential string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		lookup:            lookup,
		aggregator:        aggregator,
		defaultCredential: defaultCredential,
		logger:            logger.Named("nvd"),
	}
}

// GetCPEs handles GET requests resolving a product and version to CPE entries
func (ctrl *Controller) GetCPEs(c *gin.Context) {
	id, err := nvd.Validate(c.Query("product"), c.Query("version"), c.Query("vendor"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid dependency", err.Error()).AsGinResponse())
		return
	}

	cpes, err := ctrl.lookup.ResolveIdentifier(c.Request.Context(), id, ctrl.credential(c))
	if err != nil {
		ctrl.logger.Warn("cpe lookup failed", zap.String("match", id.MatchString()), zap.Error(err))
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to resolve dependency", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("CPEs retrieved successfully", cpes).AsGinResponse())
}

// GetCVEs handles GET requests listing the vulnerabilities of one CPE name
func (ctrl *Controller) GetCVEs(c *gin.Context) {
	cpeName := c.Query("cpe_name")
	if err := nvd.ValidateCPEName(cpeName); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid CPE name", err.Error()).AsGinResponse())
		return
	}

	cves, err := ctrl.lookup.FetchDetails(c.Request.Context(), cpeName, ctrl.credential(c))
	if err != nil {
		ctrl.logger.Warn("cve lookup failed", zap.String("cpe_name", cpeName), zap.Error(err))
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to fetch vulnerabilities", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("CVEs retrieved successfully", cves).AsGinResponse())
}

// Search handles GET requests running the full lookup for a dependency
func (ctrl *Controller) Search(c *gin.Context) {
	result, err := ctrl.aggregator.Aggregate(c.Request.Context(), c.Query("name"), c.Query("version"), c.Query("vendor"), ctrl.credential(c))
	if err != nil {
		var verr *nvd.ValidationError
		if errors.As(err, &verr) {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid dependency", err.Error()).AsGinResponse())
			return
		}

		ctrl.logger.Warn("search failed", zap.String("name", c.Query("name")), zap.Error(err))
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to search vulnerabilities", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Search completed successfully", result).AsGinResponse())
}

// credential returns the request's NVD key or the configured fallback
func (ctrl *Controller) credential(c *gin.Context) string {
	if credential := nvd.CredentialFromHeader(c.GetHeader("Authorization")); credential != "" {
		return credential
	}
	return ctrl.defaultCredential
}
