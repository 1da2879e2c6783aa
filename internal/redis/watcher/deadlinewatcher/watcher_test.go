package deadlinewatcher

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestTimer_Arm(t *testing.T) {
	db, mock := redismock.NewClientMock()
	now := time.Unix(1753632305, 0)
	tm := NewTimer(db)
	tm.now = func() time.Time { return now }

	endsAt := now.Add(10 * time.Minute)
	mock.ExpectSetArgs("brk_t:b1", endsAt.Unix(), redis.SetArgs{ExpireAt: endsAt}).SetVal("OK")
	require.NoError(t, tm.Arm(context.Background(), "b1", endsAt))

	// a deadline already behind us is left to the sweep
	require.NoError(t, tm.Arm(context.Background(), "b2", now.Add(-time.Second)))
	require.NoError(t, tm.Arm(context.Background(), "b3", now))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimerKey(t *testing.T) {
	require.Equal(t, "brk_t:abc", TimerKey("abc"))
}
