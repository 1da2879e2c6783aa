package breaks

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Tests the break lifecycle graph
func TestStatus_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusScheduled, true},
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusCompleted, false},
		{StatusScheduled, StatusActive, true},
		{StatusScheduled, StatusDraft, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusScheduled, false},
		{StatusActive, StatusCancelled, true},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusActive, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestBreak_OpenAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 7, 27, 16, 0, 0, 0, time.UTC)
	b := &Break{Status: StatusActive, StartsAt: start, EndsAt: start.Add(time.Hour)}

	require.False(t, b.OpenAt(start.Add(-time.Second)), "before start")
	require.True(t, b.OpenAt(start))
	require.True(t, b.OpenAt(start.Add(59*time.Minute)))
	require.False(t, b.OpenAt(start.Add(time.Hour)), "deadline is exclusive")
	require.True(t, b.ExpiredAt(start.Add(time.Hour)))

	b.Status = StatusCancelled
	require.False(t, b.OpenAt(start.Add(time.Minute)))
	require.False(t, b.ExpiredAt(start.Add(2*time.Hour)))
}

func TestGroup_MinNextBid(t *testing.T) {
	t.Parallel()

	g := &Group{MinBid: dec("100"), BidStep: dec("50")}
	require.True(t, dec("150").Equal(g.MinNextBid(nil)))
	require.True(t, dec("100").Equal(g.CurrentBid(nil)))

	top := &Bid{Amount: dec("150")}
	require.True(t, dec("200").Equal(g.MinNextBid(top)))
	require.True(t, dec("150").Equal(g.CurrentBid(top)))
}

func TestGroup_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, (&Group{MinBid: dec("0"), BidStep: dec("1")}).Validate())
	require.ErrorIs(t, (&Group{MinBid: dec("-1"), BidStep: dec("1")}).Validate(), ErrInvalidGroup)
	require.ErrorIs(t, (&Group{MinBid: dec("10"), BidStep: dec("0")}).Validate(), ErrInvalidGroup)

	tests := []struct {
		name   string
		minBid string
		step   string
		ok     bool
	}{
		{name: "cents", minBid: "100.25", step: "0.01", ok: true},
		{name: "trailing_zeros", minBid: "100.500", step: "1.000", ok: true},
		{name: "step_below_a_cent", minBid: "100", step: "0.004"},
		{name: "min_bid_sub_cent", minBid: "100.001", step: "1"},
		{name: "min_bid_overflow", minBid: "1000000000000", step: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Group{MinBid: dec(tt.minBid), BidStep: dec(tt.step)}).Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidGroup)
		})
	}
}

func TestBid_Outranks(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	a := &Bid{Amount: dec("200"), CreatedAt: t0}
	b := &Bid{Amount: dec("200"), CreatedAt: t0.Add(time.Millisecond)}
	c := &Bid{Amount: dec("250"), CreatedAt: t0.Add(time.Second)}

	require.True(t, a.Outranks(b), "earlier wins ties")
	require.False(t, b.Outranks(a))
	require.True(t, c.Outranks(a))
}

func TestBidTooLowError(t *testing.T) {
	t.Parallel()

	var err error = fmt.Errorf("place: %w", &BidTooLowError{MinNext: dec("200")})
	require.ErrorIs(t, err, ErrBidTooLow)

	var tooLow *BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.Equal(t, "200", tooLow.MinNext.String())
	require.Contains(t, err.Error(), "200")
}

// Tests the anti-sniping extension
func TestExtensionPolicy_Apply(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, 7, 27, 18, 0, 0, 0, time.UTC)
	p := DefaultExtensionPolicy()

	tests := []struct {
		name     string
		now      time.Time
		wantEnd  time.Time
		extended bool
	}{
		{"two_minutes_left", end.Add(-2 * time.Minute), end.Add(5 * time.Minute), true},
		{"exactly_threshold", end.Add(-5 * time.Minute), end.Add(5 * time.Minute), true},
		{"ten_minutes_left", end.Add(-10 * time.Minute), end, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := p.Apply(end, tt.now)
			require.Equal(t, tt.extended, ok)
			require.True(t, tt.wantEnd.Equal(got), "got %s want %s", got, tt.wantEnd)
		})
	}

	got, ok := ExtensionPolicy{Threshold: time.Minute}.Apply(end, end.Add(-time.Second))
	require.False(t, ok, "zero window disables extension")
	require.True(t, end.Equal(got))
}

// Tests free-text amount parsing
func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "200", want: "200"},
		{in: "150,5", want: "150.5"},
		{in: "150.50", want: "150.5"},
		{in: " 1 500 ", want: "1500"},
		{in: "1 500,25", want: "1500.25"},
		{in: "1.500,50", want: "1500.5"},
		{in: "1,500.50", want: "1500.5"},
		{in: "300₽", want: "300"},
		{in: "0", err: true},
		{in: "-5", err: true},
		{in: "", err: true},
		{in: "abc", err: true},
		{in: "1,2,3.4.5", err: true},
		{in: "200.004", err: true},
		{in: "200,004", err: true},
		{in: "200.010", want: "200.01"},
		{in: "999999999999.99", want: "999999999999.99"},
		{in: "1000000000000", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAmount(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			require.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}
