// Package bridge turns fire-and-forget messages between two execution
// contexts into correlated, timeout-bounded calls.
//
// A Client (capture side) sends requests through a Transport and waits on a
// Tracker. A Host (plugin side) receives them on its own Transport, dispatches
// them through a Router and answers with a RESPONSE envelope. Transports move
// messages across a single boundary: an in-process Channel, a JSON-lines
// Stream, or a Process speaking a Stream over its stdio.
package bridge

import (
	"errors"
	"log/slog"
	"time"
)

// DefaultTimeout bounds how long a request waits for its response.
const DefaultTimeout = 10 * time.Second

// Common errors.
var (
	ErrClosed          = errors.New("transport closed")
	ErrNotConnected    = errors.New("transport not connected")
	ErrAlreadyAttached = errors.New("already attached")
	ErrNotAttached     = errors.New("not attached")
)

type config struct {
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option configures bridge components.
type Option func(*config)

func newConfig(opts []Option) config {
	c := config{
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// WithLogger sets the logger used by the component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTimeout overrides DefaultTimeout for request tracking.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the time source used for request bookkeeping and status stamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
