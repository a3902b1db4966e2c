package cancellation

import (
	"context"
	"encoding/json"
	"fmt"

	"commonroom/utils"

	"github.com/go-redis/redis/v8"
)

// PendingSelection is a selected-but-unconfirmed cancellation. The
// explicit confirm step keeps one click from destroying a booking; the
// TTL bounds how long the selection waits.
type PendingSelection struct {
	GuildID       string `json:"guildId"`
	UserID        string `json:"userId"`
	ReservationID string `json:"reservationId"`
	RoomSlug      string `json:"roomSlug"`
}

// PendingStore keeps the pending selection per (guild, user).
type PendingStore interface {
	Put(ctx context.Context, sel PendingSelection) error
	Get(ctx context.Context, guildID, userID string) (*PendingSelection, error)
	Delete(ctx context.Context, guildID, userID string) error
}

// RedisPendingStore implements PendingStore with TTL-bound Redis keys.
type RedisPendingStore struct {
	Client *redis.Client
}

func pendingKey(guildID, userID string) string {
	return utils.PendingCancelKeyPrefix + guildID + ":" + userID
}

func (s *RedisPendingStore) Put(ctx context.Context, sel PendingSelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to marshal pending cancellation: %w", err)
	}
	if err := s.Client.Set(ctx, pendingKey(sel.GuildID, sel.UserID), data, utils.PendingCancelTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending cancellation: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, guildID, userID string) (*PendingSelection, error) {
	data, err := s.Client.Get(ctx, pendingKey(guildID, userID)).Result()
	if err == redis.Nil {
		return nil, ErrNoPendingSelection
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending cancellation: %w", err)
	}
	var sel PendingSelection
	if err := json.Unmarshal([]byte(data), &sel); err != nil {
		return nil, fmt.Errorf("failed to parse pending cancellation: %w", err)
	}
	return &sel, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, guildID, userID string) error {
	if err := s.Client.Del(ctx, pendingKey(guildID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending cancellation: %w", err)
	}
	return nil
}
