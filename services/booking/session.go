package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commonroom/models"
	"commonroom/utils"

	"github.com/go-redis/redis/v8"
)

// SessionStore keeps in-flight booking conversations keyed by
// (guild, user). Entries are TTL-bound so abandoned flows cannot
// accumulate; an expired or missing entry means the flow must restart.
type SessionStore interface {
	Get(ctx context.Context, guildID, userID string) (*models.BookingSession, error)
	Save(ctx context.Context, session *models.BookingSession) error
	Delete(ctx context.Context, guildID, userID string) error
}

// RedisSessionStore implements SessionStore on Redis with a bounded TTL.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func sessionKey(guildID, userID string) string {
	return utils.SessionKeyPrefix + guildID + ":" + userID
}

func (s *RedisSessionStore) Get(ctx context.Context, guildID, userID string) (*models.BookingSession, error) {
	data, err := s.Client.Get(ctx, sessionKey(guildID, userID)).Result()
	if err == redis.Nil {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking session: %w", err)
	}
	var session models.BookingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse booking session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.BookingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	key := sessionKey(session.GuildID, session.UserID)
	if err := s.Client.Set(ctx, key, data, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, guildID, userID string) error {
	if err := s.Client.Del(ctx, sessionKey(guildID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete booking session: %w", err)
	}
	return nil
}
