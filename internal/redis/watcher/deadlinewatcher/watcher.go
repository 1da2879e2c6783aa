package deadlinewatcher

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const timerPrefix = "brk_t:"

// TimerKey is the volatile key whose expiry signals a break deadline.
func TimerKey(breakID string) string { return timerPrefix + breakID }

// Sweeper is triggered when a deadline key expires.
type Sweeper interface {
	TickNow(ctx context.Context)
}

// Timer arms one expiring key per break. Re-arming a break moves its key's
// expiry to the new deadline.
type Timer struct {
	rdc *redis.Client
	now func() time.Time
}

func NewTimer(rdc *redis.Client) *Timer {
	return &Timer{rdc: rdc, now: time.Now}
}

func (t *Timer) Arm(ctx context.Context, breakID string, endsAt time.Time) error {
	if !endsAt.After(t.now()) {
		return nil
	}
	return t.rdc.SetArgs(ctx, TimerKey(breakID), endsAt.Unix(), redis.SetArgs{
		ExpireAt: endsAt,
	}).Err()
}

// Run listens to key-expiry events and triggers a sweep for each expired
// break timer. The periodic sweep stays the source of truth; a lost event only
// delays settlement until the next tick.
func Run(ctx context.Context, rdb *redis.Client, sw Sweeper) {
	if err := rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		zap.L().Warn("deadlinewatcher.config_set", zap.Error(err))
	}
	ps := rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer ps.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ps.Channel():
			if !ok {
				return
			}
			if !strings.HasPrefix(m.Payload, timerPrefix) {
				continue
			}
			zap.L().Debug("deadlinewatcher.expired",
				zap.String("break_id", strings.TrimPrefix(m.Payload, timerPrefix)))
			sw.TickNow(ctx)
		}
	}
}
