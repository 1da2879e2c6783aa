package notify

import (
	"context"

	"go.uber.org/zap"
)

//go:generate mockgen -source=gateway.go -destination=mock_gateway.go -package=notify

type Kind string

const (
	KindOutbid Kind = "outbid"
	KindWinner Kind = "winner"
)

// Payload is the opaque body handed to the chat transport for rendering.
type Payload struct {
	BreakID   string `json:"break_id"`
	BreakName string `json:"break_name,omitempty"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	Amount    string `json:"amount"`
}

// Gateway delivers one message to one user. A single attempt is made; there is
// no retry inside the gateway.
type Gateway interface {
	Notify(ctx context.Context, userID string, kind Kind, payload Payload) error
}

// Publisher fans board events out to live subscribers of a break.
type Publisher interface {
	Publish(ctx context.Context, breakID string, evt Event) error
}

// LogGateway only logs, for running without a chat transport.
type LogGateway struct{}

func (LogGateway) Notify(_ context.Context, userID string, kind Kind, p Payload) error {
	zap.L().Info("notify.log",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("break_id", p.BreakID),
		zap.String("group_id", p.GroupID),
		zap.String("amount", p.Amount),
	)
	return nil
}

func (LogGateway) Publish(_ context.Context, breakID string, evt Event) error {
	zap.L().Debug("notify.event",
		zap.String("break_id", breakID),
		zap.String("event", evt.Event),
		zap.String("group_id", evt.GroupID),
	)
	return nil
}
