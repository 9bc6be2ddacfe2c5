package nvd

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the nvd module
func RegisterRoutes(g *gin.RouterGroup, ctrl *Controller, middleware ...gin.HandlerFunc) {
	group := g.Group("/nvd")
	group.Handlers = append(group.Handlers, middleware...)

	group.GET("/cpes", ctrl.GetCPEs)  // Resolve a dependency to CPE entries
	group.GET("/cves", ctrl.GetCVEs)  // List the CVEs of one CPE name
	group.GET("/search", ctrl.Search) // Full two stage lookup
}
