// Package routes defines the HTTP routes for the support chat service.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/heritagebox/chat-service/internal/api/handlers"
	"github.com/heritagebox/chat-service/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler     *handlers.HealthHandler
	ChatHandler       *handlers.ChatHandler
	HandoffHandler    *handlers.HandoffHandler
	TranscriptHandler *handlers.TranscriptHandler
	RelayHandler      *handlers.RelayHandler
	WebhookHandler    *handlers.WebhookHandler
	PaymentsHandler   *handlers.PaymentsHandler
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// All routes live under /api/v1/support
	v1 := r.Group("/api/v1/support")
	{
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		// Widget-side inbound router
		v1.POST("/chat", cfg.ChatHandler.Send)
		v1.POST("/handoff", cfg.HandoffHandler.Request)
		v1.GET("/messages", cfg.TranscriptHandler.Messages)
		v1.POST("/relay", cfg.RelayHandler.Relay)

		// Thread-side inbound router (Slack Events API)
		v1.POST("/webhook", cfg.WebhookHandler.Receive)

		// Checkout
		v1.POST("/payments", cfg.PaymentsHandler.Create)
		v1.GET("/payments/:paymentId", cfg.PaymentsHandler.Status)
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	// Apply global middleware
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(gin.Recovery())

	r.NoRoute(middleware.NotFound())
	r.HandleMethodNotAllowed = true
	r.NoMethod(middleware.MethodNotAllowed())

	// Setup routes
	Setup(r, cfg)
}
