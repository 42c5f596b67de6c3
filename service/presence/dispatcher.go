package presence

import (
	"context"
	"encoding/json"

	errs "TeamSync/tools/errs"
)

// Handler processes one inbound event type for one connection.
type Handler interface {
	Event() string
	Handle(ctx context.Context, c *Conn, data json.RawMessage) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Dispatch(ctx context.Context, event string, c *Conn, data json.RawMessage) error {
	h, ok := d.handlers[event]
	if !ok {
		return errs.ErrUnknownEvent.WrapMsg(event)
	}
	return h.Handle(ctx, c, data)
}
