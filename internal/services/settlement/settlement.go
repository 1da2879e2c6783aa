package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/notify"
	"breakauction/internal/store"

	"go.uber.org/zap"
)

// Report maps every settled group to its winner; a nil winner means the group
// closed without bids.
type Report struct {
	BreakID        string                    `json:"break_id"`
	Winners        map[string]*breaks.Winner `json:"winners"`
	Failed         map[string]string         `json:"failed,omitempty"`
	AlreadySettled bool                      `json:"already_settled"`
	Completed      bool                      `json:"completed"`
}

func newReport(breakID string) *Report {
	return &Report{
		BreakID: breakID,
		Winners: make(map[string]*breaks.Winner),
		Failed:  make(map[string]string),
	}
}

// WinnerOf returns the winning bidder of a group.
func (r *Report) WinnerOf(groupID string) (string, bool) {
	w := r.Winners[groupID]
	if w == nil {
		return "", false
	}
	return w.BidderID, true
}

type ISettlementService interface {
	// Settle freezes the winners of an expired break and completes it. Settling an
	// already completed break returns its existing report.
	Settle(ctx context.Context, breakID string, now time.Time) (*Report, error)
}

type settlementService struct {
	store   store.IAuctionStore
	jobs    notify.Submitter
	gateway notify.Gateway
}

var _ ISettlementService = (*settlementService)(nil)

func NewSettlementService(st store.IAuctionStore, jobs notify.Submitter, gw notify.Gateway) ISettlementService {
	if gw == nil {
		gw = notify.LogGateway{}
	}
	return &settlementService{store: st, jobs: jobs, gateway: gw}
}

func (s *settlementService) Settle(ctx context.Context, breakID string, now time.Time) (*Report, error) {
	brk, err := s.store.GetBreak(ctx, breakID)
	if err != nil {
		return nil, err
	}
	switch {
	case brk.Status == breaks.StatusCompleted:
		return s.existingReport(ctx, brk)
	case brk.Status != breaks.StatusActive:
		return nil, fmt.Errorf("settle break %s in %s: %w", brk.ID, brk.Status, breaks.ErrAuctionNotActive)
	case now.Before(brk.EndsAt):
		return nil, fmt.Errorf("settle break %s: %w", brk.ID, breaks.ErrNotExpired)
	}

	groups, err := s.store.ListGroups(ctx, brk.ID, true)
	if err != nil {
		return nil, err
	}

	report := newReport(brk.ID)
	for i := range groups {
		g := &groups[i]
		gs, err := s.store.SettleGroup(ctx, g.ID, now)
		if err != nil {
			if errors.Is(err, breaks.ErrNotExpired) {
				// a closing-window bid moved the deadline; the next sweep picks it up
				zap.L().Info("settlement.extended_during_settle",
					zap.String("break_id", brk.ID), zap.String("group_id", g.ID))
				return report, err
			}
			zap.L().Error("settlement.group_failed",
				zap.String("break_id", brk.ID),
				zap.String("group_id", g.ID),
				zap.Error(err),
			)
			report.Failed[g.ID] = err.Error()
			continue
		}
		report.Winners[g.ID] = gs.Winner
		if gs.Created {
			s.notifyWinner(brk, g, gs.Winner)
		}
	}

	switch err := s.store.MarkCompleted(ctx, brk.ID, now); {
	case errors.Is(err, breaks.ErrAlreadySettled):
		report.AlreadySettled = true
	case err != nil:
		return report, err
	}
	report.Completed = true

	zap.L().Info("settlement.completed",
		zap.String("break_id", brk.ID),
		zap.Int("groups", len(groups)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (s *settlementService) existingReport(ctx context.Context, brk *breaks.Break) (*Report, error) {
	groups, err := s.store.ListGroups(ctx, brk.ID, true)
	if err != nil {
		return nil, err
	}
	winners, err := s.store.ListWinners(ctx, brk.ID)
	if err != nil {
		return nil, err
	}

	report := newReport(brk.ID)
	report.AlreadySettled = true
	report.Completed = true
	for _, g := range groups {
		report.Winners[g.ID] = nil
	}
	for i := range winners {
		report.Winners[winners[i].GroupID] = &winners[i]
	}
	return report, nil
}

// notifyWinner makes one attempt; notified is only set after it succeeds.
func (s *settlementService) notifyWinner(brk *breaks.Break, g *breaks.Group, w *breaks.Winner) {
	payload := notify.Payload{
		BreakID:   brk.ID,
		BreakName: brk.Name,
		GroupID:   g.ID,
		GroupName: g.Name,
		Amount:    w.Amount.String(),
	}
	winnerID, userID := w.ID, w.BidderID
	s.jobs.Submit(notify.Job{
		Name: "winner:" + userID,
		Run: func(ctx context.Context) error {
			if err := s.gateway.Notify(ctx, userID, notify.KindWinner, payload); err != nil {
				return err
			}
			return s.store.MarkWinnerNotified(ctx, winnerID)
		},
	})
}
