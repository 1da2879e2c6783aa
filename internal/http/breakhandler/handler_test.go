package breakhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"breakauction/internal/notify"
	"breakauction/internal/services/bidengine"
	"breakauction/internal/services/breakadmin"
	"breakauction/internal/services/settlement"
	"breakauction/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type inline struct{}

func (inline) Submit(j notify.Job) bool {
	_ = j.Run(context.Background())
	return true
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	admin := breakadmin.NewBreakService(st, settlement.NewSettlementService(st, inline{}, nil), nil)
	bids := bidengine.NewBidEngine(st, inline{}, bidengine.Options{})

	r := gin.New()
	New(admin, bids).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHandler_BidFlow(t *testing.T) {
	r := newRouter(t)
	now := time.Now().UTC()

	code, brk := do(t, r, http.MethodPost, "/breaks", map[string]any{
		"name":      "Friday",
		"starts_at": now.Add(-time.Minute),
		"ends_at":   now.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, code)
	breakID := brk["id"].(string)
	require.Equal(t, "draft", brk["status"])

	code, grp := do(t, r, http.MethodPost, "/breaks/"+breakID+"/groups", map[string]any{
		"name": "Lakers", "min_bid": "100", "bid_step": "50",
	})
	require.Equal(t, http.StatusCreated, code)
	groupID := grp["id"].(string)
	require.Equal(t, true, grp["is_active"])

	code, _ = do(t, r, http.MethodPost, "/breaks/"+breakID+"/groups", map[string]any{
		"name": "Tiny step", "min_bid": "100", "bid_step": "0.004",
	})
	require.Equal(t, http.StatusUnprocessableEntity, code)

	// not active yet
	code, _ = do(t, r, http.MethodPost, "/groups/"+groupID+"/bids", PlaceBidBody{BidderID: "u1", Amount: "150"})
	require.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/breaks/"+breakID+"/activate", nil)
	require.Equal(t, http.StatusAccepted, code)

	tests := []struct {
		name    string
		body    PlaceBidBody
		code    int
		minNext string
	}{
		{name: "missing_bidder", body: PlaceBidBody{Amount: "150"}, code: http.StatusBadRequest},
		{name: "garbage_amount", body: PlaceBidBody{BidderID: "u1", Amount: "abc"}, code: http.StatusUnprocessableEntity},
		{name: "below_floor", body: PlaceBidBody{BidderID: "u1", Amount: "120"}, code: http.StatusUnprocessableEntity, minNext: "150"},
		{name: "first_bid", body: PlaceBidBody{BidderID: "u1", Amount: "150"}, code: http.StatusCreated},
		{name: "step_not_met", body: PlaceBidBody{BidderID: "u2", Amount: "175"}, code: http.StatusUnprocessableEntity, minNext: "200"},
		{name: "sub_cent_amount", body: PlaceBidBody{BidderID: "u2", Amount: "200.004"}, code: http.StatusUnprocessableEntity},
		{name: "comma_amount", body: PlaceBidBody{BidderID: "u2", Amount: "200,5"}, code: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, r, http.MethodPost, "/groups/"+groupID+"/bids", tt.body)
			require.Equal(t, tt.code, code)
			if tt.minNext != "" {
				require.Equal(t, tt.minNext, out["min_next"])
			}
		})
	}

	code, view := do(t, r, http.MethodGet, "/groups/"+groupID, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "250.5", view["min_next_bid"])

	code, board := do(t, r, http.MethodGet, "/breaks/"+breakID+"/board?format=text", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "1 - 200", board["text"])

	code, stats := do(t, r, http.MethodGet, "/breaks/"+breakID+"/stats", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 2, stats["total_bids"])
	require.EqualValues(t, 1, stats["valid_bids"])

	// a group cannot be repriced once it has bids
	code, _ = do(t, r, http.MethodPut, "/groups/"+groupID, map[string]any{"bid_step": "10"})
	require.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/breaks/"+breakID+"/complete", nil)
	require.Equal(t, http.StatusConflict, code)
}

func TestHandler_NotFound(t *testing.T) {
	r := newRouter(t)

	for _, path := range []string{"/breaks/nope", "/breaks/nope/board", "/groups/nope"} {
		code, out := do(t, r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, code, path)
		require.NotEmpty(t, out["error"])
	}

	code, _ := do(t, r, http.MethodPost, "/groups/nope/bids", PlaceBidBody{BidderID: "u1", Amount: "10"})
	require.Equal(t, http.StatusNotFound, code)
}

func TestHandler_ListBreaks(t *testing.T) {
	r := newRouter(t)
	now := time.Now().UTC()
	for _, name := range []string{"a", "b"} {
		code, _ := do(t, r, http.MethodPost, "/breaks", map[string]any{
			"name": name, "starts_at": now, "ends_at": now.Add(time.Hour),
		})
		require.Equal(t, http.StatusCreated, code)
	}

	req := httptest.NewRequest(http.MethodGet, "/breaks?status=draft&limit=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	code, _ := do(t, r, http.MethodGet, "/breaks?limit=500", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/breaks", map[string]any{
		"name": "bad", "starts_at": now, "ends_at": now.Add(-time.Hour),
	})
	require.Equal(t, http.StatusBadRequest, code)
}
