package store

import (
	"context"
	"time"

	"breakauction/internal/breaks"

	"github.com/shopspring/decimal"
)

// BidCommit is the input of the atomic bid commit.
type BidCommit struct {
	GroupID  string
	BidderID string
	Amount   decimal.Decimal
	Policy   breaks.ExtensionPolicy
}

// CommitResult describes the state change performed by CommitBid.
type CommitResult struct {
	Bid      *breaks.Bid
	Previous *breaks.Bid // invalidated top bid, nil for the first bid
	Extended bool
	EndsAt   time.Time
	BreakID  string
}

// GroupSettlement is the outcome of SettleGroup: Winner is nil when the group had no bids.
type GroupSettlement struct {
	Winner  *breaks.Winner
	Created bool
}

// GroupUpdate carries the mutable fields of a group; nil means unchanged.
type GroupUpdate struct {
	Name     *string
	Order    *int
	MinBid   *decimal.Decimal
	BidStep  *decimal.Decimal
	IsActive *bool
}

// IAuctionStore is the persistence contract of the break auction core. Every
// mutation is a single atomic unit of work in the backing engine.
type IAuctionStore interface {
	CreateBreak(ctx context.Context, b *breaks.Break) error
	GetBreak(ctx context.Context, id string) (*breaks.Break, error)
	ListBreaks(ctx context.Context, status breaks.Status, limit, offset int) ([]breaks.Break, error)
	// TransitionStatus moves a break from one status to another; it fails with
	// ErrInvalidTransition when the stored status is not from.
	TransitionStatus(ctx context.Context, id string, from, to breaks.Status) error
	SetChannelRef(ctx context.Context, id, ref string) error

	CreateGroup(ctx context.Context, g *breaks.Group) error
	GetGroup(ctx context.Context, id string) (*breaks.Group, error)
	ListGroups(ctx context.Context, breakID string, activeOnly bool) ([]breaks.Group, error)
	// UpdateGroup rejects pricing changes once the group has any bid.
	UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*breaks.Group, error)

	CurrentTopBid(ctx context.Context, groupID string) (*breaks.Bid, error)
	ListBids(ctx context.Context, groupID string) ([]breaks.Bid, error)
	// CommitBid re-reads and re-validates the top bid, invalidates it, inserts the new
	// bid and applies the extension policy in one transaction. The deadline check, the
	// extension and the bid timestamp all use the clock read inside that transaction.
	// Once any group of the break has a winner, no group of it accepts bids.
	// ErrStaleBid signals a concurrent higher commit; ErrAuctionNotActive signals the
	// deadline passed or settlement began.
	CommitBid(ctx context.Context, c BidCommit) (*CommitResult, error)

	ExpiredActiveBreaks(ctx context.Context, now time.Time) ([]breaks.Break, error)
	// SettleGroup freezes the top bid of a group into a Winner, once. ErrNotExpired is
	// returned if the break was extended after the caller observed expiry.
	SettleGroup(ctx context.Context, groupID string, now time.Time) (*GroupSettlement, error)
	MarkWinnerNotified(ctx context.Context, winnerID string) error
	ListWinners(ctx context.Context, breakID string) ([]breaks.Winner, error)
	// MarkCompleted flips an expired active break to completed. It returns
	// ErrAlreadySettled if the break is already completed.
	MarkCompleted(ctx context.Context, id string, now time.Time) error

	Stats(ctx context.Context, breakID string) (*breaks.Stats, error)
}
