package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"concierge/config"
	"concierge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const clientTokenTTL = 24 * time.Hour

// TokenRequest identifies a frontend client asking for an API token.
type TokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// TokenHandler issues a client JWT against the configured shared secret.
// Issuance is disabled entirely when no secret is configured.
func TokenHandler(c *gin.Context) {
	logger := utils.GetLogger()

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	secret := config.AppConfig.ClientSecret
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(req.ClientSecret)) != 1 {
		logger.Warn("Token request rejected", zap.String("clientId", req.ClientID))
		utils.JSONError(c, http.StatusUnauthorized, "Invalid client credentials", "")
		return
	}

	token, err := utils.GenerateToken(req.ClientID, clientTokenTTL)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresIn: int64(clientTokenTTL.Seconds()),
	})
}
