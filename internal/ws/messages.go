package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "breaks/bid"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// BidRequest is the body for "breaks/bid". Amount is free text and accepts a
// comma as decimal separator.
type BidRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Amount  string `json:"amount"   validate:"required,max=32"`
}

// BidAck is the body of "breaks/bid-ack".
type BidAck struct {
	BidID  string `json:"bid_id"`
	Amount string `json:"amount"`
}

// BoardRequest is the body for "breaks/board"; it carries nothing.
type BoardRequest struct{}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	MinNext string `json:"min_next,omitempty"`
}
