package routes

import (
	"time"

	"concierge/handlers"
	"concierge/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAgentRoutes registers the conversational assistant endpoints.
func RegisterAgentRoutes(r *gin.Engine, ah *handlers.AgentHandler) {
	r.POST("/api/auth/token", handlers.TokenHandler)

	api := r.Group("/api/agent")
	{
		// Protected routes (Require Authentication)
		api.Use(middleware.ClientAuthMiddleware())
		api.POST("/chat", ah.ChatHandler)
		api.DELETE("/conversations/:conversationID", ah.ResetHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, ah *handlers.AgentHandler) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAgentRoutes(r, ah)
	RegisterHealthRoute(r)
}
