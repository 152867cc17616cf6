package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the view routes under /api/v1.
func NewRouter(h *ViewHandler, accessLog bool) *gin.Engine {
	router := gin.New()
	if accessLog {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health)

		views := v1.Group("/views")
		{
			views.GET("/top", h.Top)
			views.GET("/frequency", h.Frequency)
			views.GET("/coerce", h.Coerce)
			views.GET("/log", h.Log)
			views.GET("/ratio", h.Ratio)
			views.GET("/trend", h.Trend)
			views.GET("/correlation", h.Correlation)
			views.GET("/histogram", h.Histogram)
			views.GET("/years", h.Years)
			views.GET("/languages", h.Languages)
			views.GET("/raw", h.Raw)
			views.GET("/dashboard", h.Dashboard)
		}
	}
	return router
}
