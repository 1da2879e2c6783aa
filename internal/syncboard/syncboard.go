package syncboard

import (
	"context"
	"strconv"
	"time"

	"breakauction/internal/services/breakadmin"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	activeSet   = "brks:active"
	hashPrefix  = "brk:"
	pipeTimeout = 1500 * time.Millisecond
)

// BoardKey is the Redis hash that caches a break's board for snapshots.
func BoardKey(breakID string) string { return hashPrefix + breakID }

// BoardSource renders the boards to cache.
type BoardSource interface {
	ActiveBoards(ctx context.Context) ([]breakadmin.Board, error)
}

// Run mirrors every active board into Redis each interval.
func Run(ctx context.Context, rdc *redis.Client, src BoardSource, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				SyncOnce(ctx, rdc, src)
			}
		}
	}()
}

// SyncOnce writes one snapshot per active board and drops boards that are no
// longer active from the index set.
func SyncOnce(ctx context.Context, rdc *redis.Client, src BoardSource) {
	boards, err := src.ActiveBoards(ctx)
	if err != nil {
		zap.L().Error("syncboard.boards", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, pipeTimeout)
	defer cancel()

	stale, err := rdc.SMembers(ctx, activeSet).Result()
	if err != nil {
		zap.L().Error("syncboard.members", zap.Error(err))
		return
	}
	live := make(map[string]struct{}, len(boards))

	// 1. rewrite all hashes in one MULTI/EXEC round-trip
	pipe := rdc.TxPipeline()
	for i := range boards {
		b := &boards[i]
		key := BoardKey(b.BreakID)
		live[key] = struct{}{}

		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, boardFields(b)...)
		pipe.SAdd(ctx, activeSet, key)
	}

	// 2. forget boards that left the active state
	for _, key := range stale {
		if _, ok := live[key]; ok {
			continue
		}
		pipe.SRem(ctx, activeSet, key)
		pipe.Del(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Error("syncboard.pipeline", zap.Error(err))
		return
	}
	zap.L().Debug("syncboard.synced", zap.Int("boards", len(boards)))
}

// boardFields flattens a board into HSET field/value pairs. Per-line fields
// are suffixed with the board position.
func boardFields(b *breakadmin.Board) []any {
	out := []any{
		"name", b.Name,
		"st", string(b.Status),
		"ea", b.EndsAt.Unix(),
		"board", b.Text(),
		"n", len(b.Lines),
	}
	for _, l := range b.Lines {
		p := strconv.Itoa(l.Position)
		out = append(out,
			"g"+p, l.GroupID,
			"cb"+p, l.CurrentBid.String(),
			"mn"+p, l.MinNextBid.String(),
			"ld"+p, l.Leader,
		)
	}
	return out
}
