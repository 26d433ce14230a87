package bridge

import (
	"context"
	"fmt"

	"github.com/aretw0/webclip/pkg/core"
)

// Handler answers one request type. The returned value becomes the RESPONSE
// body; an error becomes {"error": ...}.
type Handler func(ctx context.Context, msg core.Message) (any, error)

// Routes is the static dispatch table.
type Routes map[core.MessageType]Handler

// Router dispatches inbound requests by their declared type.
type Router struct {
	routes Routes
	config config
}

// NewRouter creates a router over a fixed table.
func NewRouter(routes Routes, opts ...Option) *Router {
	table := make(Routes, len(routes))
	for k, v := range routes {
		table[k] = v
	}
	return &Router{routes: table, config: newConfig(opts)}
}

// Dispatch runs exactly one handler for msg. Panics and handler errors are
// turned into error results here and never escape.
func (r *Router) Dispatch(ctx context.Context, msg core.Message) (res core.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.config.logger.Error("handler panic", "type", msg.Type, "panic", rec)
			res = core.Failure(core.CodeInternal, fmt.Sprintf("%v", rec))
		}
	}()

	if err := msg.Validate(); err != nil {
		r.config.logger.Debug("rejected message", "type", msg.Type, "error", err)
		return core.ResultFromError(err)
	}

	h, ok := r.routes[msg.Type]
	if !ok {
		return core.ResultFromError(core.ErrUnknownMessageType)
	}

	v, err := h(ctx, msg)
	if err != nil {
		r.config.logger.Debug("handler failed", "type", msg.Type, "correlation_id", msg.CorrelationID, "error", err)
		return core.ResultFromError(err)
	}

	res, err = core.OK(v)
	if err != nil {
		return core.ResultFromError(err)
	}
	return res
}

// Types lists the routed message types.
func (r *Router) Types() []core.MessageType {
	out := make([]core.MessageType, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	return out
}
