package breakadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/services/settlement"
	"breakauction/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateBreakInput struct {
	Name        string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	ChannelRef  string
}

type GroupInput struct {
	Name     string
	Order    int
	MinBid   decimal.Decimal
	BidStep  decimal.Decimal
	IsActive bool
}

// GroupView is a group together with its live pricing.
type GroupView struct {
	breaks.Group
	TopBid     *breaks.Bid     `json:"top_bid,omitempty"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	MinNextBid decimal.Decimal `json:"min_next_bid"`
}

// BoardLine is one row of the public board.
type BoardLine struct {
	Position   int             `json:"position"`
	GroupID    string          `json:"group_id"`
	Name       string          `json:"name"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	MinNextBid decimal.Decimal `json:"min_next_bid"`
	Leader     string          `json:"leader,omitempty"`
}

// Board is the rendered state of a break, as posted to its channel.
type Board struct {
	BreakID string        `json:"break_id"`
	Name    string        `json:"name"`
	Status  breaks.Status `json:"status"`
	EndsAt  time.Time     `json:"ends_at"`
	Lines   []BoardLine   `json:"lines"`
}

// Text renders the board as "<position> - <whole current bid>" lines.
func (b *Board) Text() string {
	var sb strings.Builder
	for i, l := range b.Lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d - %s", l.Position, l.CurrentBid.Truncate(0).String())
	}
	return sb.String()
}

const maxActiveBoards = 500

// DeadlineTimer is armed whenever a break goes live.
type DeadlineTimer interface {
	Arm(ctx context.Context, breakID string, endsAt time.Time) error
}

type IBreakService interface {
	CreateBreak(ctx context.Context, in CreateBreakInput) (*breaks.Break, error)
	GetBreak(ctx context.Context, id string) (*breaks.Break, error)
	ListBreaks(ctx context.Context, status breaks.Status, limit, offset int) ([]breaks.Break, error)

	AddGroup(ctx context.Context, breakID string, in GroupInput) (*breaks.Group, error)
	UpdateGroup(ctx context.Context, groupID string, upd store.GroupUpdate) (*breaks.Group, error)
	GetGroup(ctx context.Context, groupID string) (*GroupView, error)

	Schedule(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	// Complete settles an expired break immediately instead of waiting for the sweep.
	Complete(ctx context.Context, id string) (*settlement.Report, error)
	AttachChannel(ctx context.Context, id, ref string) error

	Board(ctx context.Context, id string) (*Board, error)
	ActiveBoards(ctx context.Context) ([]Board, error)
	Stats(ctx context.Context, id string) (*breaks.Stats, error)
	Winners(ctx context.Context, id string) ([]breaks.Winner, error)
}

type breakService struct {
	store   store.IAuctionStore
	settler settlement.ISettlementService
	timer   DeadlineTimer
	clock   func() time.Time
}

var _ IBreakService = (*breakService)(nil)

// NewBreakService builds the admin surface; timer may be nil.
func NewBreakService(st store.IAuctionStore, settler settlement.ISettlementService, timer DeadlineTimer) IBreakService {
	return &breakService{store: st, settler: settler, timer: timer, clock: time.Now}
}

func (s *breakService) CreateBreak(ctx context.Context, in CreateBreakInput) (*breaks.Break, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", breaks.ErrInvalidBreak)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("ends_at must be after starts_at: %w", breaks.ErrInvalidBreak)
	}
	b := &breaks.Break{
		Name:        name,
		Description: in.Description,
		Status:      breaks.StatusDraft,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		ChannelRef:  in.ChannelRef,
	}
	if err := s.store.CreateBreak(ctx, b); err != nil {
		return nil, err
	}
	zap.L().Info("breakadmin.created", zap.String("break_id", b.ID), zap.Time("ends_at", b.EndsAt))
	return b, nil
}

func (s *breakService) GetBreak(ctx context.Context, id string) (*breaks.Break, error) {
	return s.store.GetBreak(ctx, id)
}

func (s *breakService) ListBreaks(ctx context.Context, status breaks.Status, limit, offset int) ([]breaks.Break, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, breaks.ErrInvalidBreak)
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListBreaks(ctx, status, limit, offset)
}

func (s *breakService) AddGroup(ctx context.Context, breakID string, in GroupInput) (*breaks.Group, error) {
	g := &breaks.Group{
		BreakID:  breakID,
		Name:     strings.TrimSpace(in.Name),
		Order:    in.Order,
		MinBid:   in.MinBid,
		BidStep:  in.BidStep,
		IsActive: in.IsActive,
	}
	if g.Name == "" {
		return nil, fmt.Errorf("group name is required: %w", breaks.ErrInvalidGroup)
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *breakService) UpdateGroup(ctx context.Context, groupID string, upd store.GroupUpdate) (*breaks.Group, error) {
	return s.store.UpdateGroup(ctx, groupID, upd)
}

func (s *breakService) GetGroup(ctx context.Context, groupID string) (*GroupView, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	top, err := s.store.CurrentTopBid(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupView{
		Group:      *g,
		TopBid:     top,
		CurrentBid: g.CurrentBid(top),
		MinNextBid: g.MinNextBid(top),
	}, nil
}

func (s *breakService) Schedule(ctx context.Context, id string) error {
	return s.transition(ctx, id, breaks.StatusScheduled)
}

func (s *breakService) Activate(ctx context.Context, id string) error {
	if err := s.transition(ctx, id, breaks.StatusActive); err != nil {
		return err
	}
	if s.timer == nil {
		return nil
	}
	b, err := s.store.GetBreak(ctx, id)
	if err != nil {
		return err
	}
	if err := s.timer.Arm(ctx, id, b.EndsAt); err != nil {
		// the periodic sweep still settles it
		zap.L().Warn("breakadmin.arm_timer", zap.String("break_id", id), zap.Error(err))
	}
	return nil
}

func (s *breakService) Cancel(ctx context.Context, id string) error {
	return s.transition(ctx, id, breaks.StatusCancelled)
}

func (s *breakService) transition(ctx context.Context, id string, to breaks.Status) error {
	b, err := s.store.GetBreak(ctx, id)
	if err != nil {
		return err
	}
	if !b.Status.CanTransition(to) {
		return fmt.Errorf("break %s %s -> %s: %w", id, b.Status, to, breaks.ErrInvalidTransition)
	}
	if err := s.store.TransitionStatus(ctx, id, b.Status, to); err != nil {
		return err
	}
	zap.L().Info("breakadmin.transition",
		zap.String("break_id", id),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	return nil
}

func (s *breakService) Complete(ctx context.Context, id string) (*settlement.Report, error) {
	return s.settler.Settle(ctx, id, s.clock())
}

func (s *breakService) AttachChannel(ctx context.Context, id, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("channel ref is required: %w", breaks.ErrInvalidBreak)
	}
	return s.store.SetChannelRef(ctx, id, ref)
}

func (s *breakService) Board(ctx context.Context, id string) (*Board, error) {
	b, err := s.store.GetBreak(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.board(ctx, b)
}

func (s *breakService) board(ctx context.Context, b *breaks.Break) (*Board, error) {
	groups, err := s.store.ListGroups(ctx, b.ID, true)
	if err != nil {
		return nil, err
	}
	out := &Board{
		BreakID: b.ID,
		Name:    b.Name,
		Status:  b.Status,
		EndsAt:  b.EndsAt,
		Lines:   make([]BoardLine, 0, len(groups)),
	}
	for i := range groups {
		g := &groups[i]
		top, err := s.store.CurrentTopBid(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		line := BoardLine{
			Position:   g.Order + 1,
			GroupID:    g.ID,
			Name:       g.Name,
			CurrentBid: g.CurrentBid(top),
			MinNextBid: g.MinNextBid(top),
		}
		if top != nil {
			line.Leader = top.BidderID
		}
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}

// ActiveBoards renders every active break. A break that fails to render is
// skipped and logged.
func (s *breakService) ActiveBoards(ctx context.Context) ([]Board, error) {
	active, err := s.store.ListBreaks(ctx, breaks.StatusActive, maxActiveBoards, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Board, 0, len(active))
	for i := range active {
		bd, err := s.board(ctx, &active[i])
		if err != nil {
			if errors.Is(err, breaks.ErrBreakNotFound) {
				continue
			}
			zap.L().Warn("breakadmin.board", zap.String("break_id", active[i].ID), zap.Error(err))
			continue
		}
		out = append(out, *bd)
	}
	return out, nil
}

func (s *breakService) Stats(ctx context.Context, id string) (*breaks.Stats, error) {
	return s.store.Stats(ctx, id)
}

func (s *breakService) Winners(ctx context.Context, id string) ([]breaks.Winner, error) {
	if _, err := s.store.GetBreak(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListWinners(ctx, id)
}
