package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/store"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-memory IAuctionStore. Its mutex plays the
// role of a serializable transaction around every operation.
type MemoryStore struct {
	mu      sync.RWMutex
	breaks  map[string]*breaks.Break
	groups  map[string]*breaks.Group
	bids    map[string][]*breaks.Bid // groupID -> bids in insertion order
	winners map[string]*breaks.Winner // groupID -> winner
	clock   func() time.Time
}

var _ store.IAuctionStore = (*MemoryStore)(nil)

func New() *MemoryStore { return NewWithClock(time.Now) }

// NewWithClock returns a store that stamps and times bids with clock.
func NewWithClock(clock func() time.Time) *MemoryStore {
	return &MemoryStore{
		breaks:  make(map[string]*breaks.Break),
		groups:  make(map[string]*breaks.Group),
		bids:    make(map[string][]*breaks.Bid),
		winners: make(map[string]*breaks.Winner),
		clock:   clock,
	}
}

func (m *MemoryStore) CreateBreak(_ context.Context, b *breaks.Break) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := m.breaks[b.ID]; ok {
		return fmt.Errorf("create break %s: duplicate id: %w", b.ID, breaks.ErrInvalidBreak)
	}
	now := m.clock().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	m.breaks[b.ID] = &cp
	return nil
}

func (m *MemoryStore) GetBreak(_ context.Context, id string) (*breaks.Break, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.breaks[id]
	if !ok {
		return nil, fmt.Errorf("get break %s: %w", id, breaks.ErrBreakNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) ListBreaks(_ context.Context, status breaks.Status, limit, offset int) ([]breaks.Break, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]breaks.Break, 0, len(m.breaks))
	for _, b := range m.breaks {
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.After(out[j].EndsAt) })

	if offset >= len(out) {
		return []breaks.Break{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) TransitionStatus(_ context.Context, id string, from, to breaks.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breaks[id]
	if !ok {
		return fmt.Errorf("transition break %s: %w", id, breaks.ErrBreakNotFound)
	}
	if b.Status != from || !from.CanTransition(to) {
		return fmt.Errorf("transition break %s %s -> %s: %w", id, b.Status, to, breaks.ErrInvalidTransition)
	}
	b.Status = to
	b.UpdatedAt = m.clock().UTC()
	return nil
}

func (m *MemoryStore) SetChannelRef(_ context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breaks[id]
	if !ok {
		return fmt.Errorf("set channel ref %s: %w", id, breaks.ErrBreakNotFound)
	}
	b.ChannelRef = ref
	b.UpdatedAt = m.clock().UTC()
	return nil
}

func (m *MemoryStore) CreateGroup(_ context.Context, g *breaks.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breaks[g.BreakID]
	if !ok {
		return fmt.Errorf("create group: %w", breaks.ErrBreakNotFound)
	}
	if b.Status != breaks.StatusDraft && b.Status != breaks.StatusScheduled {
		return fmt.Errorf("create group in %s break: %w", b.Status, breaks.ErrGroupLocked)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = m.clock().UTC()
	cp := *g
	m.groups[g.ID] = &cp
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id string) (*breaks.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("get group %s: %w", id, breaks.ErrGroupNotFound)
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryStore) ListGroups(_ context.Context, breakID string, activeOnly bool) ([]breaks.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]breaks.Group, 0)
	for _, g := range m.groups {
		if g.BreakID != breakID || (activeOnly && !g.IsActive) {
			continue
		}
		out = append(out, *g)
	}
	sortGroups(out)
	return out, nil
}

func (m *MemoryStore) UpdateGroup(_ context.Context, id string, upd store.GroupUpdate) (*breaks.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("update group %s: %w", id, breaks.ErrGroupNotFound)
	}
	if (upd.MinBid != nil || upd.BidStep != nil) && len(m.bids[id]) > 0 {
		return nil, fmt.Errorf("update group %s pricing: %w", id, breaks.ErrGroupHasBids)
	}

	next := *g
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Order != nil {
		next.Order = *upd.Order
	}
	if upd.MinBid != nil {
		next.MinBid = *upd.MinBid
	}
	if upd.BidStep != nil {
		next.BidStep = *upd.BidStep
	}
	if upd.IsActive != nil {
		next.IsActive = *upd.IsActive
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	*g = next
	cp := next
	return &cp, nil
}

func (m *MemoryStore) CurrentTopBid(_ context.Context, groupID string) (*breaks.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	top := m.topLocked(groupID)
	if top == nil {
		return nil, nil
	}
	cp := *top
	return &cp, nil
}

func (m *MemoryStore) ListBids(_ context.Context, groupID string) ([]breaks.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]breaks.Bid, 0, len(m.bids[groupID]))
	for _, b := range m.bids[groupID] {
		out = append(out, *b)
	}
	return out, nil
}

func (m *MemoryStore) CommitBid(_ context.Context, c store.BidCommit) (*store.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[c.GroupID]
	if !ok {
		return nil, fmt.Errorf("commit bid: %w", breaks.ErrGroupNotFound)
	}
	b := m.breaks[g.BreakID]
	now := m.clock()
	if !g.IsActive || !b.OpenAt(now) || m.settlingLocked(b.ID) {
		return nil, fmt.Errorf("commit bid on group %s: %w", g.ID, breaks.ErrAuctionNotActive)
	}

	prev := m.topLocked(g.ID)
	if c.Amount.LessThan(g.MinNextBid(prev)) {
		return nil, fmt.Errorf("commit bid on group %s: %w", g.ID, breaks.ErrStaleBid)
	}

	res := &store.CommitResult{BreakID: b.ID}
	if prev != nil {
		prev.IsValid = false
		cp := *prev
		res.Previous = &cp
	}
	bid := &breaks.Bid{
		ID:        uuid.NewString(),
		GroupID:   g.ID,
		BidderID:  c.BidderID,
		Amount:    c.Amount,
		IsValid:   true,
		CreatedAt: now.UTC(),
	}
	m.bids[g.ID] = append(m.bids[g.ID], bid)
	cp := *bid
	res.Bid = &cp

	if end, extended := c.Policy.Apply(b.EndsAt, now); extended {
		b.EndsAt = end
		b.UpdatedAt = now.UTC()
		res.Extended = true
	}
	res.EndsAt = b.EndsAt
	return res, nil
}

// settlingLocked reports whether any group of the break already has a winner.
func (m *MemoryStore) settlingLocked(breakID string) bool {
	for gid := range m.winners {
		if g := m.groups[gid]; g != nil && g.BreakID == breakID {
			return true
		}
	}
	return false
}

func (m *MemoryStore) ExpiredActiveBreaks(_ context.Context, now time.Time) ([]breaks.Break, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]breaks.Break, 0)
	for _, b := range m.breaks {
		if b.ExpiredAt(now) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (m *MemoryStore) SettleGroup(_ context.Context, groupID string, now time.Time) (*store.GroupSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("settle group %s: %w", groupID, breaks.ErrGroupNotFound)
	}
	if w, ok := m.winners[groupID]; ok {
		cp := *w
		return &store.GroupSettlement{Winner: &cp}, nil
	}
	b := m.breaks[g.BreakID]
	if b.Status == breaks.StatusCompleted {
		return &store.GroupSettlement{}, nil
	}
	if !b.ExpiredAt(now) {
		return nil, fmt.Errorf("settle group %s: %w", groupID, breaks.ErrNotExpired)
	}

	top := m.topLocked(groupID)
	if top == nil {
		return &store.GroupSettlement{}, nil
	}
	w := &breaks.Winner{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		BidID:     top.ID,
		BidderID:  top.BidderID,
		Amount:    top.Amount,
		CreatedAt: now.UTC(),
	}
	m.winners[groupID] = w
	cp := *w
	return &store.GroupSettlement{Winner: &cp, Created: true}, nil
}

func (m *MemoryStore) MarkWinnerNotified(_ context.Context, winnerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.winners {
		if w.ID == winnerID {
			w.Notified = true
			return nil
		}
	}
	return fmt.Errorf("mark winner %s notified: %w", winnerID, breaks.ErrWinnerNotFound)
}

func (m *MemoryStore) ListWinners(_ context.Context, breakID string) ([]breaks.Winner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]breaks.Winner, 0)
	for gid, w := range m.winners {
		if m.groups[gid].BreakID == breakID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

func (m *MemoryStore) MarkCompleted(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breaks[id]
	if !ok {
		return fmt.Errorf("complete break %s: %w", id, breaks.ErrBreakNotFound)
	}
	switch {
	case b.Status == breaks.StatusCompleted:
		return breaks.ErrAlreadySettled
	case b.Status != breaks.StatusActive:
		return fmt.Errorf("complete break %s in %s: %w", id, b.Status, breaks.ErrInvalidTransition)
	case !b.ExpiredAt(now):
		return fmt.Errorf("complete break %s: %w", id, breaks.ErrNotExpired)
	}
	b.Status = breaks.StatusCompleted
	b.UpdatedAt = now.UTC()
	return nil
}

func (m *MemoryStore) Stats(_ context.Context, breakID string) (*breaks.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.breaks[breakID]; !ok {
		return nil, fmt.Errorf("stats %s: %w", breakID, breaks.ErrBreakNotFound)
	}
	st := &breaks.Stats{}
	for _, g := range m.groups {
		if g.BreakID != breakID {
			continue
		}
		if g.IsActive {
			st.Groups++
		}
		for _, b := range m.bids[g.ID] {
			st.TotalBids++
			if b.IsValid {
				st.ValidBids++
			}
		}
	}
	return st, nil
}

// topLocked returns the best valid bid; callers hold the mutex.
func (m *MemoryStore) topLocked(groupID string) *breaks.Bid {
	var top *breaks.Bid
	for _, b := range m.bids[groupID] {
		if !b.IsValid {
			continue
		}
		if top == nil || b.Outranks(top) {
			top = b
		}
	}
	return top
}

func sortGroups(gs []breaks.Group) {
	sort.Slice(gs, func(i, j int) bool {
		if gs[i].Order != gs[j].Order {
			return gs[i].Order < gs[j].Order
		}
		return gs[i].ID < gs[j].ID
	})
}
