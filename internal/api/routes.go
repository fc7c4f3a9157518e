package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupServiceRoutes configures service-specific API routes (not health routes).
// Health routes are handled by the infrastructure gin package. Middleware
// applies to the /api/v1 group only.
func SetupServiceRoutes(router *gin.Engine, handler *Handler, metrics http.Handler, middleware ...gin.HandlerFunc) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1", middleware...)

	// Catalog entries
	objects := v1.Group("/objects")
	objects.GET("", handler.ListObjects)                  // GET /api/v1/objects
	objects.POST("", handler.CreateObject)                // POST /api/v1/objects
	objects.GET("/:id", handler.GetObject)                // GET /api/v1/objects/:id
	objects.PUT("/:id", handler.UpdateObject)             // PUT /api/v1/objects/:id
	objects.DELETE("/:id", handler.DeleteObject)          // DELETE /api/v1/objects/:id
	objects.GET("/:id/content", handler.GetObjectContent) // GET /api/v1/objects/:id/content
	objects.POST("/:id/reset", handler.ResetObject)       // POST /api/v1/objects/:id/reset

	// Tag index
	tags := v1.Group("/tags")
	tags.GET("/graph", handler.GetTagGraph) // GET /api/v1/tags/graph
}
