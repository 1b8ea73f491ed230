package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/studyplay/backend/internal/api/handlers"
	"github.com/studyplay/backend/internal/config"
	"github.com/studyplay/backend/internal/matchmaking"
	"github.com/studyplay/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, service *matchmaking.Service, gateway *ws.Gateway, cfg *config.Config) {
	// CORS middleware for the frontend dev server
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.CORSOrigin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if cfg.Environment != "production" {
		log.Println("[DEV MODE] CORS origin:", cfg.CORSOrigin)
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		mm := v1.Group("/matchmaking")
		{
			// WebSocket handshake carries its own token (query param or
			// Authorization header); the REST surface uses the middleware.
			mm.GET("/ws", gateway.HandleWebSocket)

			authed := mm.Group("", handlers.AuthRequired(cfg))
			{
				authed.POST("/queue", handlers.QueueMatch(service))
				authed.DELETE("/queue", handlers.CancelMatch(service))
				authed.GET("/status", handlers.MatchStatus(service))
			}
		}
	}
}
