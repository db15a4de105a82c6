package middleware

import (
	"net/http"
	"strings"

	"concierge/utils"

	"github.com/gin-gonic/gin"
)

// ClientAuthMiddleware validates the bearer token identifying the frontend
// client of this service. It is unrelated to the booking backend session,
// which the orchestrator manages per conversation.
func ClientAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		clientID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("clientID", clientID)
		c.Next()
	}
}
