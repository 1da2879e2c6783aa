package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"breakauction/internal/breaks"
	"breakauction/internal/services/bidengine"
	"breakauction/internal/services/breakadmin"
	"breakauction/internal/syncboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait

	readLimit       = 512
	dispatchTimeout = 1900 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub    *Hub
	relay  *eventRelay
	router *Router
	rdc    *redis.Client
	bids   bidengine.IBidEngine
	admin  breakadmin.IBreakService
}

// NewWsServer wires the websocket surface. rdc may be nil, in which case events
// reach clients only through Hub.Publish.
func NewWsServer(h *Hub, rdc *redis.Client, bids bidengine.IBidEngine, admin breakadmin.IBreakService) *WsServer {
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		rdc:    rdc,
		bids:   bids,
		admin:  admin,
	}
	if rdc != nil {
		srv.relay = newEventRelay(rdc, h)
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point for /ws.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	breakID := ginCtx.Query("break_id")
	userID := ginCtx.Query("user_id")
	if breakID == "" || userID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "break_id and user_id are required"})
		return
	}
	if _, err := s.admin.GetBreak(ginCtx.Request.Context(), breakID); err != nil {
		ginCtx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(readLimit)
	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(breakID, wsConn)
	if s.relay != nil {
		s.relay.Watch(ginCtx.Request.Context(), breakID)
	}

	if err := s.pushInitialSnapshot(ginCtx.Request.Context(), breakID, wsConn); err != nil {
		zap.L().Warn("ws.snapshot", zap.String("break_id", breakID), zap.Error(err))
	}

	done := make(chan struct{})
	go s.reader(breakID, userID, wsConn, done)
	go s.pinger(wsConn, done)
}

// Close stops the Redis relay, if any.
func (s *WsServer) Close() error {
	if s.relay == nil {
		return nil
	}
	return s.relay.Close()
}

func (s *WsServer) registerHandlers() {
	Register(
		s.router,
		"breaks/bid",
		func(ctx context.Context, cc *ConnContext, req BidRequest) (BidAck, error) {
			amount, err := breaks.ParseAmount(req.Amount)
			if err != nil {
				return BidAck{}, err
			}
			g, err := s.admin.GetGroup(ctx, req.GroupID)
			if err != nil {
				return BidAck{}, err
			}
			if g.BreakID != cc.BreakID {
				return BidAck{}, breaks.ErrGroupNotFound
			}
			bid, err := s.bids.PlaceBid(ctx, req.GroupID, cc.UserID, amount)
			if err != nil {
				return BidAck{}, err
			}
			return BidAck{BidID: bid.ID, Amount: bid.Amount.String()}, nil
		},
	)

	Register(
		s.router,
		"breaks/board",
		func(ctx context.Context, cc *ConnContext, _ BoardRequest) (*breakadmin.Board, error) {
			return s.admin.Board(ctx, cc.BreakID)
		},
	)
}

// pushInitialSnapshot prefers the cached board hash and falls back to the store.
func (s *WsServer) pushInitialSnapshot(ctx context.Context, id string, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	if s.rdc != nil {
		if snap, _ := s.rdc.HGetAll(ctx, syncboard.BoardKey(id)).Result(); len(snap) != 0 {
			return conn.writeJSON(gin.H{
				"event": "breaks/snapshot",
				"body":  snap,
			})
		}
	}

	board, err := s.admin.Board(ctx, id)
	if err != nil {
		return err
	}
	return conn.writeJSON(gin.H{
		"event": "breaks/snapshot",
		"body":  board,
	})
}

func (s *WsServer) reader(breakID, userID string, conn *clientConn, done chan<- struct{}) {
	defer func() {
		close(done)
		s.hub.Leave(breakID, conn)
		if s.relay != nil {
			s.relay.Unwatch(context.Background(), breakID)
		}
	}()

	cc := &ConnContext{BreakID: breakID, UserID: userID}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  errorBody(err),
			})
			continue
		}

		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				conn.close()
				return
			}
		}
	}
}

// errorBody maps domain errors to stable client codes.
func errorBody(err error) ErrorBody {
	body := ErrorBody{Error: err.Error()}
	var tooLow *breaks.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		body.Code = "bid_too_low"
		body.MinNext = tooLow.MinNext.String()
	case errors.Is(err, breaks.ErrOutbid):
		body.Code = "outbid"
	case errors.Is(err, breaks.ErrAuctionNotActive):
		body.Code = "auction_not_active"
	case errors.Is(err, breaks.ErrInvalidAmount):
		body.Code = "invalid_amount"
	case errors.Is(err, breaks.ErrGroupNotFound):
		body.Code = "group_not_found"
	case errors.Is(err, breaks.ErrStorageUnavailable):
		body.Code = "unavailable"
	case errors.Is(err, ErrUnknownEvent):
		body.Code = "unknown_event"
	case errors.Is(err, ErrBadFrame):
		body.Code = "bad_frame"
	}
	return body
}
