package agent

import (
	"context"
	"encoding/json"
	"time"

	"concierge/models"

	"github.com/go-redis/redis/v8"
)

const conversationPrefix = "conv:state:"

// ConversationStore persists conversation state between turns.
type ConversationStore interface {
	Get(ctx context.Context, conversationID string) (*models.ConversationState, error)
	Set(ctx context.Context, conversationID string, state *models.ConversationState) error
	Clear(ctx context.Context, conversationID string) error
}

// RedisConversationStore keeps each conversation's state as a JSON blob
// with a TTL, so abandoned conversations expire on their own.
type RedisConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisConversationStore(client *redis.Client, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{client: client, ttl: ttl}
}

func (s *RedisConversationStore) Get(ctx context.Context, conversationID string) (*models.ConversationState, error) {
	key := conversationPrefix + conversationID
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &models.ConversationState{}, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RedisConversationStore) Set(ctx context.Context, conversationID string, state *models.ConversationState) error {
	key := conversationPrefix + conversationID
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, s.ttl).Err()
}

func (s *RedisConversationStore) Clear(ctx context.Context, conversationID string) error {
	key := conversationPrefix + conversationID
	return s.client.Del(ctx, key).Err()
}
