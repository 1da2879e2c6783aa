package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"breakauction/internal/notify"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// eventRelay multiplexes the events channels of every break watched by this
// process over a single Redis pub/sub connection. A channel is subscribed
// while at least one local client watches its break.
type eventRelay struct {
	ps  *redis.PubSub
	hub *Hub

	mu       sync.Mutex
	watchers map[string]int // breakID -> local clients
}

func newEventRelay(rdb *redis.Client, hub *Hub) *eventRelay {
	r := &eventRelay{
		ps:       rdb.Subscribe(context.Background()),
		hub:      hub,
		watchers: make(map[string]int),
	}
	go r.loop()
	return r
}

func (r *eventRelay) Watch(ctx context.Context, breakID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watchers[breakID]++
	if r.watchers[breakID] > 1 {
		return
	}
	if err := r.ps.Subscribe(ctx, notify.EventsChannel(breakID)); err != nil {
		zap.L().Warn("ws.relay_subscribe", zap.String("break_id", breakID), zap.Error(err))
	}
}

func (r *eventRelay) Unwatch(ctx context.Context, breakID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.watchers[breakID]
	if !ok {
		return
	}
	if n > 1 {
		r.watchers[breakID] = n - 1
		return
	}
	delete(r.watchers, breakID)
	if err := r.ps.Unsubscribe(ctx, notify.EventsChannel(breakID)); err != nil {
		zap.L().Warn("ws.relay_unsubscribe", zap.String("break_id", breakID), zap.Error(err))
	}
}

func (r *eventRelay) Close() error { return r.ps.Close() }

func (r *eventRelay) loop() {
	for m := range r.ps.Channel() {
		breakID, ok := breakOfChannel(m.Channel)
		if !ok {
			continue
		}
		frame, err := wrapRedisEvent(m.Payload)
		if err != nil {
			zap.L().Warn("ws.wrap_event_failed", zap.String("break_id", breakID), zap.Error(err))
			continue
		}
		r.hub.Broadcast(breakID, frame)
	}
}

func breakOfChannel(ch string) (string, bool) {
	id, ok := strings.CutPrefix(ch, "brk:")
	if !ok {
		return "", false
	}
	id, ok = strings.CutSuffix(id, ":events")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// wrapRedisEvent moves the "event" field of a published frame into the client
// envelope, turning {"event":"bid","group_id":"g1"} into
// {"event":"breaks/bid","body":{"group_id":"g1"}}.
func wrapRedisEvent(payload string) ([]byte, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	evt, _ := raw["event"].(string)
	if evt == "" {
		evt = "unknown"
	}
	delete(raw, "event")

	return json.Marshal(map[string]any{
		"event": "breaks/" + evt,
		"body":  raw,
	})
}
