package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownEvent = errors.New("unknown_event")
	ErrBadFrame     = errors.New("bad_frame")
)

// ConnContext identifies the connection a frame arrived on.
type ConnContext struct {
	BreakID string
	UserID  string
}

type frameHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error)

// Router maps a frame's event name to its handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]frameHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]frameHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a typed handler. Req must be a struct; its
// `validate` tags are checked before h runs.
func Register[Req any, Res any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.handlers[event]; dup {
		panic("ws router: duplicate event " + event)
	}
	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
			}
		}
		if err := r.validate.Struct(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return h(ctx, c, req)
	}
}

func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return h(ctx, c, env.Body)
}
