// Package capture implements the host side of webclip: locating the
// destination record and laying a capture payload out as an outline.
package capture

import (
	"log/slog"
	"time"
)

// Limits applied to a single capture or lookup.
const (
	MaxContentLines  = 20
	MaxImages        = 5
	MaxSearchResults = 20
	MaxTags          = 10
	MinQueryLength   = 2

	tagSearchLimit   = 50
	toastTitleLength = 40
)

type config struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the capture components.
type Option func(*config)

func newConfig(opts []Option) config {
	c := config{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock sets the time source used for "today" and title timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
