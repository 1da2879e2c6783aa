package ws

import (
	"context"
	"encoding/json"
	"sync"

	"breakauction/internal/notify"
)

// Hub keeps client sets per breakID.
type Hub struct {
	rooms sync.Map // breakID -> *room
}

var _ notify.Publisher = (*Hub)(nil)

func NewHub() *Hub { return &Hub{} }

// Broadcast sends an already wrapped frame to every client of a break.
func (h *Hub) Broadcast(breakID string, msg []byte) {
	if v, ok := h.rooms.Load(breakID); ok {
		v.(*room).broadcast(msg)
	}
}

// Publish delivers a board event to local clients only. It stands in for the
// Redis fan-out when the process runs without Redis.
func (h *Hub) Publish(_ context.Context, breakID string, evt notify.Event) error {
	if evt.Version == 0 {
		evt.Version = 1
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg, err := wrapRedisEvent(string(raw))
	if err != nil {
		return err
	}
	h.Broadcast(breakID, msg)
	return nil
}

func (h *Hub) Join(breakID string, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(breakID, newRoom())
	r.(*room).add(c)
}

func (h *Hub) Leave(breakID string, c *clientConn) {
	if v, ok := h.rooms.Load(breakID); ok {
		v.(*room).remove(c)
	}
}

// Size returns the number of clients watching a break.
func (h *Hub) Size(breakID string) int {
	if v, ok := h.rooms.Load(breakID); ok {
		return v.(*room).size()
	}
	return 0
}
