package handlers

import (
	"net/http"
	"strings"

	"concierge/services/agent"
	"concierge/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatRequest is one user turn. ConversationID is optional: when absent a
// new conversation is started and its id returned with the reply.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant's reply for the turn.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// AgentHandler exposes the conversational assistant over HTTP.
type AgentHandler struct {
	Orchestrator *agent.Orchestrator
	Store        agent.ConversationStore
}

// ChatHandler runs one conversation turn.
func (h *AgentHandler) ChatHandler(c *gin.Context) {
	logger := utils.GetLogger()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Invalid chat request", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		utils.JSONError(c, http.StatusBadRequest, "Message must not be empty", "")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	reply, err := h.Orchestrator.RunTurn(c.Request.Context(), conversationID, req.Message)
	if err != nil {
		logger.Error("Turn failed",
			zap.String("conversationId", conversationID),
			zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to process message", "")
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		ConversationID: conversationID,
		Reply:          reply,
	})
}

// ResetHandler discards a conversation's state.
func (h *AgentHandler) ResetHandler(c *gin.Context) {
	logger := utils.GetLogger()

	conversationID := c.Param("conversationID")
	if conversationID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing conversation id", "")
		return
	}

	if err := h.Store.Clear(c.Request.Context(), conversationID); err != nil {
		logger.Error("Failed to clear conversation",
			zap.String("conversationId", conversationID),
			zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to reset conversation", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
