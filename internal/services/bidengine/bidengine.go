package bidengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/notify"
	"breakauction/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type IBidEngine interface {
	// PlaceBid validates amount against the current top bid of the group and commits
	// it as the new top. Errors: ErrGroupNotFound, ErrAuctionNotActive,
	// ErrInvalidAmount, *BidTooLowError, ErrOutbid, ErrStorageUnavailable.
	PlaceBid(ctx context.Context, groupID, bidderID string, amount decimal.Decimal) (*breaks.Bid, error)
}

// DeadlineTimer is told about every new deadline so an on-demand settlement
// trigger can fire at expiry.
type DeadlineTimer interface {
	Arm(ctx context.Context, breakID string, endsAt time.Time) error
}

type Options struct {
	Policy    breaks.ExtensionPolicy
	Gateway   notify.Gateway
	Publisher notify.Publisher // optional
	Timer     DeadlineTimer    // optional
	Clock     func() time.Time
}

type bidEngine struct {
	store     store.IAuctionStore
	jobs      notify.Submitter
	policy    breaks.ExtensionPolicy
	gateway   notify.Gateway
	publisher notify.Publisher
	timer     DeadlineTimer
	clock     func() time.Time
}

var _ IBidEngine = (*bidEngine)(nil)

func NewBidEngine(st store.IAuctionStore, jobs notify.Submitter, opts Options) IBidEngine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Gateway == nil {
		opts.Gateway = notify.LogGateway{}
	}
	return &bidEngine{
		store:     st,
		jobs:      jobs,
		policy:    opts.Policy,
		gateway:   opts.Gateway,
		publisher: opts.Publisher,
		timer:     opts.Timer,
		clock:     opts.Clock,
	}
}

func (e *bidEngine) PlaceBid(ctx context.Context, groupID, bidderID string, amount decimal.Decimal) (*breaks.Bid, error) {
	now := e.clock()

	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	brk, err := e.store.GetBreak(ctx, group.BreakID)
	if err != nil {
		return nil, err
	}

	// 1. bidding window
	if !group.IsActive || !brk.OpenAt(now) {
		return nil, fmt.Errorf("break %s is %s: %w", brk.ID, brk.Status, breaks.ErrAuctionNotActive)
	}
	// 2. amount
	if !amount.IsPositive() || !breaks.FitsMoney(amount) {
		return nil, fmt.Errorf("amount %s: %w", amount, breaks.ErrInvalidAmount)
	}
	// 3. minimum next bid
	top, err := e.store.CurrentTopBid(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if minNext := group.MinNextBid(top); amount.LessThan(minNext) {
		return nil, &breaks.BidTooLowError{MinNext: minNext}
	}

	res, err := e.store.CommitBid(ctx, store.BidCommit{
		GroupID:  groupID,
		BidderID: bidderID,
		Amount:   amount,
		Policy:   e.policy,
	})
	if err != nil {
		if errors.Is(err, breaks.ErrStaleBid) {
			zap.L().Info("bidengine.outbid_in_flight",
				zap.String("group_id", groupID),
				zap.String("bidder_id", bidderID),
				zap.String("amount", amount.String()),
			)
			return nil, fmt.Errorf("group %s: %w", groupID, breaks.ErrOutbid)
		}
		return nil, err
	}

	zap.L().Info("bidengine.bid_committed",
		zap.String("break_id", brk.ID),
		zap.String("group_id", groupID),
		zap.String("bidder_id", bidderID),
		zap.String("amount", amount.String()),
		zap.Bool("extended", res.Extended),
		zap.Time("ends_at", res.EndsAt),
	)

	e.afterCommit(brk, group, res)
	return res.Bid, nil
}

// afterCommit dispatches the side effects of an accepted bid. None of them can
// fail the bid.
func (e *bidEngine) afterCommit(brk *breaks.Break, group *breaks.Group, res *store.CommitResult) {
	bid := res.Bid

	if prev := res.Previous; prev != nil && prev.BidderID != bid.BidderID {
		payload := notify.Payload{
			BreakID:   brk.ID,
			BreakName: brk.Name,
			GroupID:   group.ID,
			GroupName: group.Name,
			Amount:    bid.Amount.String(),
		}
		outbid := prev.BidderID
		e.jobs.Submit(notify.Job{
			Name: "outbid:" + outbid,
			Run: func(ctx context.Context) error {
				return e.gateway.Notify(ctx, outbid, notify.KindOutbid, payload)
			},
		})
	}

	if e.publisher != nil {
		evt := notify.Event{
			Event:   "bid",
			GroupID: group.ID,
			Bidder:  bid.BidderID,
			Amount:  bid.Amount.String(),
			EndsAt:  res.EndsAt.Unix(),
		}
		e.jobs.Submit(notify.Job{
			Name: "event:" + brk.ID,
			Run: func(ctx context.Context) error {
				return e.publisher.Publish(ctx, brk.ID, evt)
			},
		})
	}

	if res.Extended && e.timer != nil {
		endsAt := res.EndsAt
		e.jobs.Submit(notify.Job{
			Name: "timer:" + brk.ID,
			Run: func(ctx context.Context) error {
				return e.timer.Arm(ctx, brk.ID, endsAt)
			},
		})
	}
}
