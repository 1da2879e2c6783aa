package breaks

import (
	"errors"

	"github.com/shopspring/decimal"
)

// bid validation errors, returned to the bidder
var (
	ErrAuctionNotActive = errors.New("auction not active")
	ErrInvalidAmount    = errors.New("invalid bid amount")
	ErrBidTooLow        = errors.New("bid too low")
	ErrOutbid           = errors.New("outbid during submission")
)

// storage and lifecycle errors
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStaleBid           = errors.New("stale bid")
	ErrAlreadySettled     = errors.New("already settled")
	ErrNotExpired         = errors.New("auction not expired")

	ErrBreakNotFound     = errors.New("break not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrWinnerNotFound    = errors.New("winner not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidGroup      = errors.New("invalid group pricing")
	ErrInvalidBreak      = errors.New("invalid break")
	ErrGroupHasBids      = errors.New("group already has bids")
	ErrGroupLocked       = errors.New("groups locked once bidding opens")
)

// BidTooLowError carries the minimum acceptable amount so the caller can prompt for it.
type BidTooLowError struct {
	MinNext decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return "bid too low: minimum next bid is " + e.MinNext.String()
}

func (e *BidTooLowError) Is(target error) bool { return target == ErrBidTooLow }
