package chat

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the chat module
func RegisterRoutes(g *gin.RouterGroup, ctrl *Controller, middleware ...gin.HandlerFunc) {
	group := g.Group("/chat")
	group.Handlers = append(group.Handlers, middleware...)

	group.GET("/", ctrl.GetChat)   // Stream the stored conversation
	group.POST("/", ctrl.PostChat) // Run one chat turn, streamed back as it is generated
}
