package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/webclip/pkg/core"
)

// Client is the capture side of the bridge.
type Client struct {
	transport Transport
	tracker   *Tracker
	config    config

	mu          sync.Mutex
	attached    bool
	unsubscribe func()
	listeners   subscribers
	lastStatus  *core.Status
}

// NewClient creates a detached client over t.
func NewClient(t Transport, opts ...Option) *Client {
	return &Client{
		transport: t,
		tracker:   NewTracker(t, opts...),
		config:    newConfig(opts),
	}
}

// Attach starts routing responses and status updates from the transport.
func (c *Client) Attach(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attached {
		return ErrAlreadyAttached
	}
	c.unsubscribe = c.transport.Subscribe(c.onMessage)
	c.attached = true
	return nil
}

// Detach stops routing. Pending requests still settle by timeout.
func (c *Client) Detach(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return ErrNotAttached
	}
	c.unsubscribe()
	c.attached = false
	return nil
}

// OnStatus registers fn for STATUS_UPDATE messages.
func (c *Client) OnStatus(fn func(core.Status)) (remove func()) {
	return c.listeners.add(func(m core.Message) {
		fn(*m.Status)
	})
}

// LastStatus returns the most recent status seen, if any.
func (c *Client) LastStatus() (core.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastStatus == nil {
		return core.Status{}, false
	}
	return *c.lastStatus, true
}

// Send issues a raw request and waits for its Result.
func (c *Client) Send(ctx context.Context, msg core.Message) core.Result {
	c.mu.Lock()
	attached := c.attached
	c.mu.Unlock()
	if !attached {
		return core.Failure(core.CodeUnreachable, fmt.Sprintf("%v: %v", core.ErrUnreachable, ErrNotAttached))
	}
	return c.tracker.Send(ctx, msg)
}

// Ping checks that the host answers.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	var reply core.PingReply
	if err := c.Send(ctx, core.Message{Type: core.TypePing}).Decode(&reply); err != nil {
		return false, err
	}
	return reply.Connected, nil
}

// Capture hands a payload to the host.
func (c *Client) Capture(ctx context.Context, payload core.CapturePayload) (core.CaptureReply, error) {
	var reply core.CaptureReply
	err := c.Send(ctx, core.Message{Type: core.TypeCapture, Payload: &payload}).Decode(&reply)
	return reply, err
}

// Search looks up destination pages by name.
func (c *Client) Search(ctx context.Context, query string) ([]core.PageRef, error) {
	var refs []core.PageRef
	err := c.Send(ctx, core.Message{Type: core.TypeSearch, Query: query}).Decode(&refs)
	return refs, err
}

// Tags suggests hashtags matching query.
func (c *Client) Tags(ctx context.Context, query string) ([]string, error) {
	var tags []string
	err := c.Send(ctx, core.Message{Type: core.TypeGetTags, Query: query}).Decode(&tags)
	return tags, err
}

func (c *Client) onMessage(msg core.Message) {
	switch msg.Type {
	case core.TypeResponse:
		if msg.Response == nil {
			return
		}
		c.tracker.Resolve(msg.CorrelationID, *msg.Response)
	case core.TypeStatusUpdate:
		if msg.Status == nil {
			return
		}
		c.mu.Lock()
		st := *msg.Status
		c.lastStatus = &st
		c.mu.Unlock()
		c.listeners.emit(msg)
	default:
		c.config.logger.Debug("ignoring message", "type", msg.Type)
	}
}
