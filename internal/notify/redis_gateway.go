package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	NotificationStream = "breaks:notifications"
	streamMaxLen       = 100_000
)

// EventsChannel is the pub/sub channel of a break's live board.
func EventsChannel(breakID string) string { return "brk:" + breakID + ":events" }

// Event is the frame published on a break's events channel.
type Event struct {
	Version int    `json:"version"`
	Event   string `json:"event"`
	GroupID string `json:"group_id,omitempty"`
	Bidder  string `json:"bidder,omitempty"`
	Amount  string `json:"amount,omitempty"`
	EndsAt  int64  `json:"ends_at,omitempty"`
}

// RedisGateway hands notifications to the chat transport through a Redis stream
// and publishes board events for live subscribers.
type RedisGateway struct {
	rdc *redis.Client
	now func() time.Time
}

func NewRedisGateway(rdc *redis.Client) *RedisGateway {
	return &RedisGateway{rdc: rdc, now: time.Now}
}

func (g *RedisGateway) Notify(ctx context.Context, userID string, kind Kind, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	err = g.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: NotificationStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: []any{
			"user", userID,
			"kind", string(kind),
			"payload", string(body),
			"at", g.now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("notify %s %s: %w", kind, userID, err)
	}
	return nil
}

// Publish broadcasts a board event to every process subscribed to the break.
func (g *RedisGateway) Publish(ctx context.Context, breakID string, evt Event) error {
	if evt.Version == 0 {
		evt.Version = 1
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return g.rdc.Publish(ctx, EventsChannel(breakID), body).Err()
}
