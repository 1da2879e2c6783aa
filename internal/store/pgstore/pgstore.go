package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const (
	breakCols  = `id, name, description, status, starts_at, ends_at, channel_ref, created_at, updated_at`
	groupCols  = `id, break_id, name, sort_order, min_bid, bid_step, is_active, created_at`
	bidCols    = `id, group_id, bidder_id, amount, is_valid, created_at`
	winnerCols = `id, group_id, bid_id, bidder_id, amount, notified, created_at`

	topBidQ = `SELECT ` + bidCols + ` FROM break_bids
	            WHERE group_id = $1 AND is_valid
	         ORDER BY amount DESC, created_at ASC
	            LIMIT 1`
)

type pgStore struct {
	db *sql.DB
}

// New returns an IAuctionStore backed by Postgres. All concurrency control is
// done with row locks and constraints inside Postgres transactions.
func New(db *sql.DB) store.IAuctionStore {
	return &pgStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *pgStore) CreateBreak(ctx context.Context, b *breaks.Break) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	const q = `INSERT INTO breaks (id, name, description, status, starts_at, ends_at, channel_ref)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	        RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q,
		b.ID, b.Name, b.Description, string(b.Status), b.StartsAt, b.EndsAt, b.ChannelRef,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create break %s: duplicate id: %w", b.ID, breaks.ErrInvalidBreak)
		}
		return unavailable("create break", err)
	}
	return nil
}

func (s *pgStore) GetBreak(ctx context.Context, id string) (*breaks.Break, error) {
	q := `SELECT ` + breakCols + ` FROM breaks WHERE id = $1`
	b, err := scanBreak(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get break %s: %w", id, breaks.ErrBreakNotFound)
		}
		return nil, unavailable("get break", err)
	}
	return b, nil
}

func (s *pgStore) ListBreaks(ctx context.Context, st breaks.Status, limit, offset int) ([]breaks.Break, error) {
	if limit <= 0 {
		limit = 10
	}
	var (
		rows *sql.Rows
		err  error
	)
	base := `SELECT ` + breakCols + ` FROM breaks`
	if st != "" {
		rows, err = s.db.QueryContext(ctx, base+` WHERE status = $1 ORDER BY ends_at DESC LIMIT $2 OFFSET $3`,
			string(st), limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY ends_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, unavailable("list breaks", err)
	}
	defer rows.Close()

	list := make([]breaks.Break, 0, limit)
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, unavailable("list breaks", err)
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list breaks", err)
	}
	return list, nil
}

func (s *pgStore) TransitionStatus(ctx context.Context, id string, from, to breaks.Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("transition break %s %s -> %s: %w", id, from, to, breaks.ErrInvalidTransition)
	}
	const q = `UPDATE breaks SET status = $3, updated_at = now()
	            WHERE id = $1 AND status = $2`
	res, err := s.db.ExecContext(ctx, q, id, string(from), string(to))
	if err != nil {
		return unavailable("transition break", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetBreak(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("transition break %s %s -> %s: %w", id, from, to, breaks.ErrInvalidTransition)
}

func (s *pgStore) SetChannelRef(ctx context.Context, id, ref string) error {
	const q = `UPDATE breaks SET channel_ref = $2, updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, ref)
	if err != nil {
		return unavailable("set channel ref", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set channel ref %s: %w", id, breaks.ErrBreakNotFound)
	}
	return nil
}

func (s *pgStore) CreateGroup(ctx context.Context, g *breaks.Group) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("create group", err)
	}
	defer tx.Rollback()

	// FOR SHARE keeps the break from being activated while the group is added.
	var st string
	err = tx.QueryRowContext(ctx, `SELECT status FROM breaks WHERE id = $1 FOR SHARE`, g.BreakID).Scan(&st)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("create group: %w", breaks.ErrBreakNotFound)
		}
		return unavailable("create group", err)
	}
	if status := breaks.Status(st); status != breaks.StatusDraft && status != breaks.StatusScheduled {
		return fmt.Errorf("create group in %s break: %w", status, breaks.ErrGroupLocked)
	}

	const ins = `INSERT INTO break_groups (id, break_id, name, sort_order, min_bid, bid_step, is_active)
	             VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at`
	err = tx.QueryRowContext(ctx, ins,
		g.ID, g.BreakID, g.Name, g.Order, g.MinBid, g.BidStep, g.IsActive,
	).Scan(&g.CreatedAt)
	if err != nil {
		return unavailable("create group", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("create group commit", err)
	}
	return nil
}

func (s *pgStore) GetGroup(ctx context.Context, id string) (*breaks.Group, error) {
	q := `SELECT ` + groupCols + ` FROM break_groups WHERE id = $1`
	g, err := scanGroup(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get group %s: %w", id, breaks.ErrGroupNotFound)
		}
		return nil, unavailable("get group", err)
	}
	return g, nil
}

func (s *pgStore) ListGroups(ctx context.Context, breakID string, activeOnly bool) ([]breaks.Group, error) {
	q := `SELECT ` + groupCols + ` FROM break_groups WHERE break_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, q, breakID)
	if err != nil {
		return nil, unavailable("list groups", err)
	}
	defer rows.Close()

	list := make([]breaks.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, unavailable("list groups", err)
		}
		list = append(list, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list groups", err)
	}
	return list, nil
}

func (s *pgStore) UpdateGroup(ctx context.Context, id string, upd store.GroupUpdate) (*breaks.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("update group", err)
	}
	defer tx.Rollback()

	// Same row lock as CommitBid: a pricing change and a bid cannot interleave.
	g, err := scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupCols+` FROM break_groups WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("update group %s: %w", id, breaks.ErrGroupNotFound)
		}
		return nil, unavailable("update group", err)
	}

	if upd.MinBid != nil || upd.BidStep != nil {
		var hasBids bool
		err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM break_bids WHERE group_id = $1)`, id).Scan(&hasBids)
		if err != nil {
			return nil, unavailable("update group", err)
		}
		if hasBids {
			return nil, fmt.Errorf("update group %s pricing: %w", id, breaks.ErrGroupHasBids)
		}
	}

	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.Order != nil {
		g.Order = *upd.Order
	}
	if upd.MinBid != nil {
		g.MinBid = *upd.MinBid
	}
	if upd.BidStep != nil {
		g.BidStep = *upd.BidStep
	}
	if upd.IsActive != nil {
		g.IsActive = *upd.IsActive
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	const q = `UPDATE break_groups
	              SET name = $2, sort_order = $3, min_bid = $4, bid_step = $5, is_active = $6
	            WHERE id = $1`
	if _, err := tx.ExecContext(ctx, q, id, g.Name, g.Order, g.MinBid, g.BidStep, g.IsActive); err != nil {
		return nil, unavailable("update group", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("update group commit", err)
	}
	return g, nil
}

func (s *pgStore) CurrentTopBid(ctx context.Context, groupID string) (*breaks.Bid, error) {
	b, err := scanBid(s.db.QueryRowContext(ctx, topBidQ, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("current top bid", err)
	}
	return b, nil
}

func (s *pgStore) ListBids(ctx context.Context, groupID string) ([]breaks.Bid, error) {
	q := `SELECT ` + bidCols + ` FROM break_bids WHERE group_id = $1 ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, unavailable("list bids", err)
	}
	defer rows.Close()

	list := make([]breaks.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, unavailable("list bids", err)
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list bids", err)
	}
	return list, nil
}

// errRelock asks CommitBid to run again holding the break row exclusively.
var errRelock = errors.New("commit bid: break row needs an exclusive lock")

// CommitBid serialises writers of one group on the group row (FOR UPDATE). The break
// row is held FOR SHARE so settlement cannot flip the status underneath the bid;
// inside the extension window it is taken FOR NO KEY UPDATE instead, because the
// deadline is about to be written and two share holders upgrading would deadlock.
// The commit time is the database clock read once the break row is locked. If
// that clock crossed into the extension window after a share lock was chosen,
// the transaction is retried with the exclusive lock.
func (s *pgStore) CommitBid(ctx context.Context, c store.BidCommit) (*store.CommitResult, error) {
	res, err := s.commitBid(ctx, c, false)
	if errors.Is(err, errRelock) {
		return s.commitBid(ctx, c, true)
	}
	return res, err
}

func (s *pgStore) commitBid(ctx context.Context, c store.BidCommit, exclusive bool) (*store.CommitResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, unavailable("commit bid", err)
	}
	defer tx.Rollback()

	g, err := scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupCols+` FROM break_groups WHERE id = $1 FOR UPDATE`, c.GroupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("commit bid: %w", breaks.ErrGroupNotFound)
		}
		return nil, unavailable("commit bid: lock group", err)
	}

	if !exclusive {
		var endsAt, dbNow time.Time
		err := tx.QueryRowContext(ctx, `SELECT ends_at, clock_timestamp() FROM breaks WHERE id = $1`, g.BreakID).Scan(&endsAt, &dbNow)
		if err != nil {
			return nil, unavailable("commit bid: read deadline", err)
		}
		_, exclusive = c.Policy.Apply(endsAt, dbNow)
	}
	lock := `FOR SHARE`
	if exclusive {
		lock = `FOR NO KEY UPDATE`
	}
	var now time.Time
	b, err := scanBreak(tx.QueryRowContext(ctx, `SELECT `+breakCols+`, clock_timestamp() FROM breaks WHERE id = $1 `+lock, g.BreakID), &now)
	if err != nil {
		return nil, unavailable("commit bid: lock break", err)
	}

	var settling bool
	const settlingQ = `SELECT EXISTS (
	                     SELECT 1 FROM break_winners w JOIN break_groups bg ON bg.id = w.group_id
	                      WHERE bg.break_id = $1)`
	if err := tx.QueryRowContext(ctx, settlingQ, b.ID).Scan(&settling); err != nil {
		return nil, unavailable("commit bid: winner check", err)
	}
	if !g.IsActive || !b.OpenAt(now) || settling {
		return nil, fmt.Errorf("commit bid on group %s: %w", g.ID, breaks.ErrAuctionNotActive)
	}
	end, extended := c.Policy.Apply(b.EndsAt, now)
	if extended && !exclusive {
		return nil, errRelock
	}

	prev, err := scanBid(tx.QueryRowContext(ctx, topBidQ+` FOR UPDATE`, g.ID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		prev = nil
	case err != nil:
		return nil, unavailable("commit bid: read top", err)
	}
	if c.Amount.LessThan(g.MinNextBid(prev)) {
		return nil, fmt.Errorf("commit bid on group %s: %w", g.ID, breaks.ErrStaleBid)
	}

	res := &store.CommitResult{BreakID: b.ID, EndsAt: b.EndsAt}
	if prev != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE break_bids SET is_valid = FALSE WHERE id = $1`, prev.ID); err != nil {
			return nil, unavailable("commit bid: invalidate top", err)
		}
		prev.IsValid = false
		res.Previous = prev
	}

	bid := &breaks.Bid{
		ID:        uuid.NewString(),
		GroupID:   g.ID,
		BidderID:  c.BidderID,
		Amount:    c.Amount,
		IsValid:   true,
		CreatedAt: now.UTC(),
	}
	const ins = `INSERT INTO break_bids (id, group_id, bidder_id, amount, is_valid, created_at)
	             VALUES ($1, $2, $3, $4, TRUE, $5)`
	if _, err := tx.ExecContext(ctx, ins, bid.ID, bid.GroupID, bid.BidderID, bid.Amount, bid.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("commit bid on group %s: %w", g.ID, breaks.ErrStaleBid)
		}
		return nil, unavailable("commit bid: insert", err)
	}
	res.Bid = bid

	if extended {
		const ext = `UPDATE breaks SET ends_at = $2, updated_at = $3 WHERE id = $1 AND ends_at < $2`
		if _, err := tx.ExecContext(ctx, ext, b.ID, end, now.UTC()); err != nil {
			return nil, unavailable("commit bid: extend", err)
		}
		res.Extended = true
		res.EndsAt = end
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit bid: commit", err)
	}
	return res, nil
}

func (s *pgStore) ExpiredActiveBreaks(ctx context.Context, now time.Time) ([]breaks.Break, error) {
	q := `SELECT ` + breakCols + ` FROM breaks
	       WHERE status = 'active' AND ends_at <= $1
	    ORDER BY ends_at`
	rows, err := s.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, unavailable("expired breaks", err)
	}
	defer rows.Close()

	list := make([]breaks.Break, 0)
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, unavailable("expired breaks", err)
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("expired breaks", err)
	}
	return list, nil
}

// SettleGroup takes the same group row lock as CommitBid, so a winner is only ever
// frozen from a top bid no concurrent commit can replace.
func (s *pgStore) SettleGroup(ctx context.Context, groupID string, now time.Time) (*store.GroupSettlement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, unavailable("settle group", err)
	}
	defer tx.Rollback()

	var breakID string
	err = tx.QueryRowContext(ctx, `SELECT break_id FROM break_groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&breakID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settle group %s: %w", groupID, breaks.ErrGroupNotFound)
		}
		return nil, unavailable("settle group: lock group", err)
	}

	existing, err := scanWinner(tx.QueryRowContext(ctx, `SELECT `+winnerCols+` FROM break_winners WHERE group_id = $1`, groupID))
	if err == nil {
		return &store.GroupSettlement{Winner: existing}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable("settle group: read winner", err)
	}

	var (
		st     string
		endsAt time.Time
	)
	err = tx.QueryRowContext(ctx, `SELECT status, ends_at FROM breaks WHERE id = $1 FOR SHARE`, breakID).Scan(&st, &endsAt)
	if err != nil {
		return nil, unavailable("settle group: lock break", err)
	}
	if breaks.Status(st) == breaks.StatusCompleted {
		// completed by a concurrent settler and the group had no bids
		return &store.GroupSettlement{}, nil
	}
	if breaks.Status(st) != breaks.StatusActive || now.Before(endsAt) {
		return nil, fmt.Errorf("settle group %s: %w", groupID, breaks.ErrNotExpired)
	}

	top, err := scanBid(tx.QueryRowContext(ctx, topBidQ, groupID))
	if errors.Is(err, sql.ErrNoRows) {
		return &store.GroupSettlement{}, tx.Commit()
	}
	if err != nil {
		return nil, unavailable("settle group: read top", err)
	}

	w := &breaks.Winner{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		BidID:     top.ID,
		BidderID:  top.BidderID,
		Amount:    top.Amount,
		CreatedAt: now.UTC(),
	}
	const ins = `INSERT INTO break_winners (id, group_id, bid_id, bidder_id, amount, notified, created_at)
	             VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	             ON CONFLICT (group_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, ins, w.ID, w.GroupID, w.BidID, w.BidderID, w.Amount, w.CreatedAt)
	if err != nil {
		return nil, unavailable("settle group: insert winner", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost the race to another settler; report theirs
		existing, err := scanWinner(tx.QueryRowContext(ctx, `SELECT `+winnerCols+` FROM break_winners WHERE group_id = $1`, groupID))
		if err != nil {
			return nil, unavailable("settle group: reread winner", err)
		}
		return &store.GroupSettlement{Winner: existing}, tx.Commit()
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("settle group: commit", err)
	}
	return &store.GroupSettlement{Winner: w, Created: true}, nil
}

func (s *pgStore) MarkWinnerNotified(ctx context.Context, winnerID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE break_winners SET notified = TRUE WHERE id = $1`, winnerID)
	if err != nil {
		return unavailable("mark winner notified", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark winner %s notified: %w", winnerID, breaks.ErrWinnerNotFound)
	}
	return nil
}

func (s *pgStore) ListWinners(ctx context.Context, breakID string) ([]breaks.Winner, error) {
	const q = `SELECT w.id, w.group_id, w.bid_id, w.bidder_id, w.amount, w.notified, w.created_at
	             FROM break_winners w
	             JOIN break_groups g ON g.id = w.group_id
	            WHERE g.break_id = $1
	         ORDER BY w.group_id`
	rows, err := s.db.QueryContext(ctx, q, breakID)
	if err != nil {
		return nil, unavailable("list winners", err)
	}
	defer rows.Close()

	list := make([]breaks.Winner, 0)
	for rows.Next() {
		w, err := scanWinner(rows)
		if err != nil {
			return nil, unavailable("list winners", err)
		}
		list = append(list, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list winners", err)
	}
	return list, nil
}

func (s *pgStore) MarkCompleted(ctx context.Context, id string, now time.Time) error {
	const q = `UPDATE breaks SET status = 'completed', updated_at = $2
	            WHERE id = $1 AND status = 'active' AND ends_at <= $2`
	res, err := s.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return unavailable("complete break", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	b, err := s.GetBreak(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case b.Status == breaks.StatusCompleted:
		return breaks.ErrAlreadySettled
	case b.Status == breaks.StatusActive:
		return fmt.Errorf("complete break %s: %w", id, breaks.ErrNotExpired)
	}
	return fmt.Errorf("complete break %s in %s: %w", id, b.Status, breaks.ErrInvalidTransition)
}

func (s *pgStore) Stats(ctx context.Context, breakID string) (*breaks.Stats, error) {
	if _, err := s.GetBreak(ctx, breakID); err != nil {
		return nil, err
	}
	const q = `SELECT count(DISTINCT g.id) FILTER (WHERE g.is_active),
	                  count(b.id),
	                  count(b.id) FILTER (WHERE b.is_valid)
	             FROM break_groups g
	        LEFT JOIN break_bids b ON b.group_id = g.id
	            WHERE g.break_id = $1`
	st := &breaks.Stats{}
	if err := s.db.QueryRowContext(ctx, q, breakID).Scan(&st.Groups, &st.TotalBids, &st.ValidBids); err != nil {
		return nil, unavailable("stats", err)
	}
	return st, nil
}

// helpers

// scanBreak reads breakCols followed by any extra selected columns.
func scanBreak(row scanner, extra ...any) (*breaks.Break, error) {
	var (
		b  breaks.Break
		st string
	)
	dest := append([]any{&b.ID, &b.Name, &b.Description, &st, &b.StartsAt, &b.EndsAt,
		&b.ChannelRef, &b.CreatedAt, &b.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.Status = breaks.Status(st)
	return &b, nil
}

func scanGroup(row scanner) (*breaks.Group, error) {
	var g breaks.Group
	if err := row.Scan(&g.ID, &g.BreakID, &g.Name, &g.Order, &g.MinBid, &g.BidStep,
		&g.IsActive, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanBid(row scanner) (*breaks.Bid, error) {
	var b breaks.Bid
	if err := row.Scan(&b.ID, &b.GroupID, &b.BidderID, &b.Amount, &b.IsValid, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanWinner(row scanner) (*breaks.Winner, error) {
	var w breaks.Winner
	if err := row.Scan(&w.ID, &w.GroupID, &w.BidID, &w.BidderID, &w.Amount, &w.Notified, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, breaks.ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
