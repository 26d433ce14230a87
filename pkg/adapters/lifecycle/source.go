// Package lifecycle adapts workspace change feeds to lifecycle.Source so the
// bridge host can relay them as status updates.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/webclip/pkg/core"
)

type workspaceSource struct {
	events <-chan core.Event
	keep   map[core.EventType]bool
	out    chan lifecycle.Event
}

// SourceOption configures NewSource.
type SourceOption func(*workspaceSource)

// WithTypes forwards only the given event types.
func WithTypes(types ...core.EventType) SourceOption {
	return func(s *workspaceSource) {
		s.keep = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			s.keep[t] = true
		}
	}
}

// NewSource creates a lifecycle.Source over a workspace event channel, such as
// the one returned by core.Watchable.Watch.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &workspaceSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *workspaceSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start pumps events until the input closes or ctx ends, then closes Events.
func (s *workspaceSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.keep != nil && !s.keep[e.Type] {
					continue
				}
				// core.Event satisfies lifecycle.Event through String.
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
