package breakadmin

import (
	"context"
	"testing"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/notify"
	"breakauction/internal/services/settlement"
	"breakauction/internal/store"
	"breakauction/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type inline struct{}

func (inline) Submit(j notify.Job) bool {
	_ = j.Run(context.Background())
	return true
}

type recordingTimer struct{ armed map[string]time.Time }

func (r *recordingTimer) Arm(_ context.Context, id string, at time.Time) error {
	r.armed[id] = at
	return nil
}

func newService(t *testing.T) (*breakService, *memstore.MemoryStore, *recordingTimer) {
	t.Helper()
	st := memstore.New()
	timer := &recordingTimer{armed: map[string]time.Time{}}
	svc := NewBreakService(st, settlement.NewSettlementService(st, inline{}, nil), timer).(*breakService)
	return svc, st, timer
}

func TestBreakService_Lifecycle(t *testing.T) {
	svc, st, timer := newService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.CreateBreak(ctx, CreateBreakInput{Name: " ", StartsAt: now, EndsAt: now.Add(time.Hour)})
	require.ErrorIs(t, err, breaks.ErrInvalidBreak)
	_, err = svc.CreateBreak(ctx, CreateBreakInput{Name: "x", StartsAt: now, EndsAt: now})
	require.ErrorIs(t, err, breaks.ErrInvalidBreak)

	b, err := svc.CreateBreak(ctx, CreateBreakInput{Name: "Friday", StartsAt: now.Add(-time.Minute), EndsAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, breaks.StatusDraft, b.Status)

	g, err := svc.AddGroup(ctx, b.ID, GroupInput{Name: "Lakers", MinBid: dec("100"), BidStep: dec("50"), IsActive: true})
	require.NoError(t, err)
	_, err = svc.AddGroup(ctx, b.ID, GroupInput{Name: "bad", MinBid: dec("100"), BidStep: dec("0"), IsActive: true})
	require.ErrorIs(t, err, breaks.ErrInvalidGroup)

	require.NoError(t, svc.Schedule(ctx, b.ID))
	require.ErrorIs(t, svc.Schedule(ctx, b.ID), breaks.ErrInvalidTransition)
	require.NoError(t, svc.Activate(ctx, b.ID))
	require.Contains(t, timer.armed, b.ID)

	_, err = svc.AddGroup(ctx, b.ID, GroupInput{Name: "late", MinBid: dec("1"), BidStep: dec("1"), IsActive: true})
	require.ErrorIs(t, err, breaks.ErrGroupLocked)

	view, err := svc.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Nil(t, view.TopBid)
	require.True(t, dec("150").Equal(view.MinNextBid))

	_, err = svc.Complete(ctx, b.ID)
	require.ErrorIs(t, err, breaks.ErrNotExpired)

	require.NoError(t, svc.Cancel(ctx, b.ID))
	require.ErrorIs(t, svc.Cancel(ctx, b.ID), breaks.ErrInvalidTransition)

	got, err := st.GetBreak(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, breaks.StatusCancelled, got.Status)
}

func TestBreakService_Board(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b, err := svc.CreateBreak(ctx, CreateBreakInput{Name: "Friday", StartsAt: now.Add(-time.Minute), EndsAt: now.Add(time.Hour)})
	require.NoError(t, err)
	g1, err := svc.AddGroup(ctx, b.ID, GroupInput{Name: "A", Order: 0, MinBid: dec("300"), BidStep: dec("50"), IsActive: true})
	require.NoError(t, err)
	_, err = svc.AddGroup(ctx, b.ID, GroupInput{Name: "B", Order: 1, MinBid: dec("300"), BidStep: dec("50"), IsActive: true})
	require.NoError(t, err)
	_, err = svc.AddGroup(ctx, b.ID, GroupInput{Name: "hidden", Order: 2, MinBid: dec("1"), BidStep: dec("1"), IsActive: false})
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, b.ID))

	_, err = st.CommitBid(ctx, store.BidCommit{GroupID: g1.ID, BidderID: "u1", Amount: dec("500.75")})
	require.NoError(t, err)

	bd, err := svc.Board(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, bd.Lines, 2)
	require.Equal(t, "u1", bd.Lines[0].Leader)
	require.True(t, dec("550.75").Equal(bd.Lines[0].MinNextBid))
	require.Equal(t, "1 - 500\n2 - 300", bd.Text())

	boards, err := svc.ActiveBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	st2, err := svc.Stats(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, breaks.Stats{Groups: 2, TotalBids: 1, ValidBids: 1}, *st2)

	require.ErrorIs(t, svc.AttachChannel(ctx, b.ID, " "), breaks.ErrInvalidBreak)
	require.NoError(t, svc.AttachChannel(ctx, b.ID, "@breaks/42"))
	got, err := svc.GetBreak(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "@breaks/42", got.ChannelRef)
}

func TestBreakService_CompleteAndWinners(t *testing.T) {
	ctx := context.Background()
	start := time.Now().UTC().Add(-2 * time.Hour)
	// the store commits at one minute into the break; the service settles at wall time
	st := memstore.NewWithClock(func() time.Time { return start.Add(time.Minute) })
	svc := NewBreakService(st, settlement.NewSettlementService(st, inline{}, nil), nil)

	b, err := svc.CreateBreak(ctx, CreateBreakInput{Name: "old", StartsAt: start, EndsAt: start.Add(time.Hour)})
	require.NoError(t, err)
	g, err := svc.AddGroup(ctx, b.ID, GroupInput{Name: "A", MinBid: dec("100"), BidStep: dec("50"), IsActive: true})
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, b.ID))
	_, err = st.CommitBid(ctx, store.BidCommit{GroupID: g.ID, BidderID: "u7", Amount: dec("150")})
	require.NoError(t, err)

	rep, err := svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	who, ok := rep.WinnerOf(g.ID)
	require.True(t, ok)
	require.Equal(t, "u7", who)

	ws, err := svc.Winners(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, ws, 1)

	_, err = svc.Winners(ctx, "missing")
	require.ErrorIs(t, err, breaks.ErrBreakNotFound)

	list, err := svc.ListBreaks(ctx, breaks.StatusCompleted, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = svc.ListBreaks(ctx, breaks.Status("bogus"), 0, 0)
	require.ErrorIs(t, err, breaks.ErrInvalidBreak)
}
