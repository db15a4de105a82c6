package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"concierge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsAssistantMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.NotEmpty(t, req.Tools)

		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatCompletionChoice{{
				Message: &models.ChatMessage{Role: models.RoleAssistant, Content: "hello"},
			}},
		})
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "test-key", "test-model", 5*time.Second)
	msg, err := client.Complete(context.Background(),
		[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
		[]models.Tool{{Type: "function", Function: models.ToolFunction{Name: "noop"}}})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "hello", msg.Content)
}

func TestCompleteDefaultsMissingRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatCompletionChoice{{
				Message: &models.ChatMessage{Content: "bare"},
			}},
		})
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "", "test-model", 5*time.Second)
	msg, err := client.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, msg.Role)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorResponse{Error: &apiError{Message: "rate limited", Type: "rate_limit"}})
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "k", "m", 5*time.Second)
	_, err := client.Complete(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "k", "m", 5*time.Second)
	_, err := client.Complete(context.Background(), nil, nil)
	assert.Error(t, err)
}
