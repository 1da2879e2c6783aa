package scheduler

import (
	"context"
	"errors"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/services/settlement"
	"breakauction/internal/store"

	"go.uber.org/zap"
)

// Scheduler settles every active break whose deadline has passed. Ticks may
// overlap with each other and with on-demand triggers; settlement is idempotent
// so overlapping runs produce no duplicate winners.
type Scheduler struct {
	store         store.IAuctionStore
	settler       settlement.ISettlementService
	settleTimeout time.Duration
	clock         func() time.Time
}

func New(st store.IAuctionStore, settler settlement.ISettlementService, settleTimeout time.Duration) *Scheduler {
	return &Scheduler{
		store:         st,
		settler:       settler,
		settleTimeout: settleTimeout,
		clock:         time.Now,
	}
}

// Tick runs one sweep at now and returns the reports of the breaks it settled.
// A failing break is logged and left for the next sweep.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]*settlement.Report, error) {
	expired, err := s.store.ExpiredActiveBreaks(ctx, now)
	if err != nil {
		zap.L().Error("scheduler.list_expired", zap.Error(err))
		return nil, err
	}

	reports := make([]*settlement.Report, 0, len(expired))
	for _, b := range expired {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		rep, err := s.settleOne(ctx, b.ID, now)
		if err != nil {
			if errors.Is(err, breaks.ErrNotExpired) {
				continue
			}
			zap.L().Error("scheduler.settle", zap.String("break_id", b.ID), zap.Error(err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (s *Scheduler) settleOne(ctx context.Context, breakID string, now time.Time) (*settlement.Report, error) {
	if s.settleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settleTimeout)
		defer cancel()
	}
	return s.settler.Settle(ctx, breakID, now)
}

// TickNow sweeps at the current wall clock.
func (s *Scheduler) TickNow(ctx context.Context) {
	_, _ = s.Tick(ctx, s.clock())
}

// Run sweeps every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				s.TickNow(ctx)
			}
		}
	}()
}
