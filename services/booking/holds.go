package booking

import (
	"context"
	"fmt"
	"time"

	"commonroom/models"
	"commonroom/utils"

	"github.com/go-redis/redis/v8"
)

// HoldManager tentatively locks a candidate interval before any money
// moves, and releases it on any failure. The hold narrows the window in
// which two bookers can both pass the availability check; the commit-time
// conflict check remains the backstop.
type HoldManager interface {
	Acquire(ctx context.Context, calendarID string, interval models.Interval) (release func(), err error)
}

// RedisHoldManager implements HoldManager with SETNX keys and a short TTL,
// so a crashed flow never leaves an interval locked.
type RedisHoldManager struct {
	Client *redis.Client
	TTL    time.Duration
}

// holdKeys returns one key per 30-minute bucket the interval spans.
// Bookings start on the half-hour grid, so any two overlapping candidates
// share at least one bucket and contend on it; touching intervals share
// none.
func holdKeys(calendarID string, interval models.Interval) []string {
	const step = int64(SlotStepMinutes * 60)
	first := interval.Start.Unix()
	first -= first % step
	var keys []string
	for t := first; t < interval.End.Unix(); t += step {
		keys = append(keys, fmt.Sprintf("%s%s:%d", utils.HoldKeyPrefix, calendarID, t))
	}
	return keys
}

func (h *RedisHoldManager) Acquire(ctx context.Context, calendarID string, interval models.Interval) (func(), error) {
	keys := holdKeys(calendarID, interval)
	var taken []string
	release := func() {
		// Best effort; the TTL cleans up if this is never reached.
		for _, key := range taken {
			h.Client.Del(context.Background(), key)
		}
	}
	for _, key := range keys {
		ok, err := h.Client.SetNX(ctx, key, "1", h.TTL).Result()
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to acquire interval hold: %w", err)
		}
		if !ok {
			release()
			return nil, ErrIntervalHeld
		}
		taken = append(taken, key)
	}
	return release, nil
}
