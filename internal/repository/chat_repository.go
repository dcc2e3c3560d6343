package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/refund-claim-service/internal/domain"
)

// ChatRepository stores each user's refund-guide transcript.
type ChatRepository interface {
	Append(ctx context.Context, userID string, msg domain.ChatMessage) error
	List(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}

type chatRepository struct {
	client *redis.Client
}

// NewChatRepository returns a Redis-backed transcript store.
func NewChatRepository(client *redis.Client) ChatRepository {
	return &chatRepository{client: client}
}

func chatKey(userID string) string {
	return "chat:" + userID
}

func (r *chatRepository) Append(ctx context.Context, userID string, msg domain.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, chatKey(userID), payload).Err()
}

func (r *chatRepository) List(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	entries, err := r.client.LRange(ctx, chatKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *chatRepository) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, chatKey(userID)).Err()
}
