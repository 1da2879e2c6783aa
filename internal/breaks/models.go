package breaks

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the break lifecycle: draft → scheduled → active → completed,
// draft → active directly, and any non-terminal state → cancelled.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	switch s {
	case StatusDraft:
		return to == StatusScheduled || to == StatusActive
	case StatusScheduled:
		return to == StatusActive
	case StatusActive:
		return to == StatusCompleted
	}
	return false
}

// Break is a timed auction made of independently bid groups.
type Break struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"    example:"active"`
	StartsAt    time.Time `json:"starts_at" example:"2025-07-27T16:05:05Z"`
	EndsAt      time.Time `json:"ends_at"   example:"2025-07-27T18:05:05Z"`
	ChannelRef  string    `json:"channel_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OpenAt reports whether bids can be accepted at now.
func (b *Break) OpenAt(now time.Time) bool {
	return b.Status == StatusActive && !now.Before(b.StartsAt) && now.Before(b.EndsAt)
}

// ExpiredAt reports whether an active break is due for settlement.
func (b *Break) ExpiredAt(now time.Time) bool {
	return b.Status == StatusActive && !now.Before(b.EndsAt)
}

type Group struct {
	ID        string          `json:"id"`
	BreakID   string          `json:"break_id"`
	Name      string          `json:"name"`
	Order     int             `json:"order"`
	MinBid    decimal.Decimal `json:"min_bid"`
	BidStep   decimal.Decimal `json:"bid_step"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the pricing invariant of a group.
func (g *Group) Validate() error {
	if g.MinBid.IsNegative() {
		return ErrInvalidGroup
	}
	if !g.BidStep.IsPositive() {
		return ErrInvalidGroup
	}
	if !FitsMoney(g.MinBid) || !FitsMoney(g.BidStep) {
		return ErrInvalidGroup
	}
	return nil
}

// MinNextBid is the lowest amount that can become the new top bid.
// With no top bid the floor is the group minimum.
func (g *Group) MinNextBid(top *Bid) decimal.Decimal {
	base := g.MinBid
	if top != nil {
		base = top.Amount
	}
	return base.Add(g.BidStep)
}

// CurrentBid is what the board shows for the group.
func (g *Group) CurrentBid(top *Bid) decimal.Decimal {
	if top != nil {
		return top.Amount
	}
	return g.MinBid
}

type Bid struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsValid   bool            `json:"is_valid"`
	CreatedAt time.Time       `json:"created_at"`
}

// Outranks orders bids for top-bid selection: higher amount first, then earlier creation.
func (b *Bid) Outranks(o *Bid) bool {
	if c := b.Amount.Cmp(o.Amount); c != 0 {
		return c > 0
	}
	return b.CreatedAt.Before(o.CreatedAt)
}

type Winner struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	BidID     string          `json:"bid_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Notified  bool            `json:"notified"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stats summarises activity on a break.
type Stats struct {
	Groups    int `json:"groups"`
	TotalBids int `json:"total_bids"`
	ValidBids int `json:"valid_bids"`
}
