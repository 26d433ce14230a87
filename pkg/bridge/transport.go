package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/webclip/pkg/core"
)

// Transport relays messages across one context boundary.
// Implementations only deliver inbound messages whose source matches the
// counterpart the endpoint expects.
type Transport interface {
	// Deliver hands msg to the other side. A synchronous error means the
	// message never left.
	Deliver(ctx context.Context, msg core.Message) error

	// Subscribe registers fn for inbound messages. Handlers must not block.
	Subscribe(fn func(core.Message)) (unsubscribe func())
}

// subscribers is a small registry shared by the transports.
type subscribers struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(core.Message)
}

func (s *subscribers) add(fn func(core.Message)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(core.Message))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) emit(msg core.Message) {
	s.mu.RLock()
	fns := make([]func(core.Message), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
}

func (s *subscribers) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fns)
}

// Channel is an in-process broadcast bus shared by several contexts, like a
// window message channel. Every endpoint sees every message; each message is
// copied through its wire encoding so no memory crosses the boundary.
type Channel struct {
	mu        sync.RWMutex
	closed    bool
	endpoints []*Endpoint
}

// NewChannel creates an open bus.
func NewChannel() *Channel {
	return &Channel{}
}

// Endpoint attaches one context to the bus. expect is the source tag of the
// counterpart whose messages this context accepts.
func (c *Channel) Endpoint(expect core.ContextTag) *Endpoint {
	e := &Endpoint{channel: c, expect: expect}
	c.mu.Lock()
	c.endpoints = append(c.endpoints, e)
	c.mu.Unlock()
	return e
}

// Close stops the bus. Later deliveries fail with ErrClosed.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Channel) publish(msg core.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	endpoints := append([]*Endpoint(nil), c.endpoints...)
	c.mu.RUnlock()

	for _, e := range endpoints {
		copied, err := core.DecodeMessage(data)
		if err != nil {
			return err
		}
		e.receive(copied)
	}
	return nil
}

// Endpoint is one context's view of a Channel.
type Endpoint struct {
	channel *Channel
	expect  core.ContextTag
	subs    subscribers
}

// Deliver broadcasts msg on the bus.
func (e *Endpoint) Deliver(ctx context.Context, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.channel.publish(msg)
}

// Subscribe registers fn for messages from the expected counterpart.
func (e *Endpoint) Subscribe(fn func(core.Message)) func() {
	return e.subs.add(fn)
}

func (e *Endpoint) receive(msg core.Message) {
	if msg.Source != e.expect {
		return
	}
	e.subs.emit(msg)
}

var _ Transport = (*Endpoint)(nil)
