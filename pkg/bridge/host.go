package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/webclip/pkg/core"
)

// Host is the plugin side of the bridge. While attached it answers every
// request arriving on its transport with a correlated RESPONSE.
type Host struct {
	transport Transport
	router    *Router
	config    config

	mu          sync.Mutex
	attached    bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	inflight    *sync.WaitGroup // one per attachment
	handled     uint64
	failed      uint64
	lastStatus  *core.Status
}

// NewHost creates a detached host.
func NewHost(t Transport, r *Router, opts ...Option) *Host {
	return &Host{
		transport: t,
		router:    r,
		config:    newConfig(opts),
	}
}

// Attach subscribes to the transport and announces readiness.
// Attaching twice returns ErrAlreadyAttached.
func (h *Host) Attach(ctx context.Context) error {
	h.mu.Lock()
	if h.attached {
		h.mu.Unlock()
		return ErrAlreadyAttached
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.inflight = &sync.WaitGroup{}
	h.attached = true
	h.unsubscribe = h.transport.Subscribe(h.onMessage)
	h.mu.Unlock()

	h.config.logger.Info("host attached", "routes", len(h.router.Types()))
	if err := h.Broadcast(ctx, core.StatusReady, ""); err != nil {
		h.config.logger.Warn("failed to announce readiness", "error", err)
	}
	return nil
}

// Detach unsubscribes and waits for in-flight requests to reply.
func (h *Host) Detach(ctx context.Context) error {
	h.mu.Lock()
	if !h.attached {
		h.mu.Unlock()
		return ErrNotAttached
	}
	h.attached = false
	unsubscribe, cancel, inflight := h.unsubscribe, h.cancel, h.inflight
	h.mu.Unlock()

	unsubscribe()

	drained := make(chan struct{})
	go func() {
		inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = fmt.Errorf("failed to drain in-flight requests: %w", ctx.Err())
	}
	cancel()
	h.config.logger.Info("host detached")
	return err
}

// Attached reports whether the host is serving requests.
func (h *Host) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

// Broadcast sends a STATUS_UPDATE to the capture side.
func (h *Host) Broadcast(ctx context.Context, state, detail string) error {
	if !h.Attached() {
		return ErrNotAttached
	}
	st := core.Status{State: state, Detail: detail, At: h.config.now()}

	h.mu.Lock()
	h.lastStatus = &st
	h.mu.Unlock()

	return h.transport.Deliver(ctx, core.Message{
		Type:   core.TypeStatusUpdate,
		Status: &st,
		Source: core.TagHost,
	})
}

// Follow relays every event of src as a "changed" status until src closes or
// the host detaches.
func (h *Host) Follow(src lifecycle.Source) error {
	h.mu.Lock()
	if !h.attached {
		h.mu.Unlock()
		return ErrNotAttached
	}
	ctx := h.ctx
	h.mu.Unlock()

	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event source: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-src.Events():
				if !ok {
					return nil
				}
				if err := h.Broadcast(ctx, core.StatusChanged, e.String()); err != nil {
					h.config.logger.Debug("status relay failed", "error", err)
				}
			}
		}
	})
	return nil
}

func (h *Host) onMessage(msg core.Message) {
	if msg.Type == core.TypeResponse || msg.Type == core.TypeStatusUpdate {
		return
	}

	h.mu.Lock()
	if !h.attached {
		h.mu.Unlock()
		return
	}
	inflight := h.inflight
	inflight.Add(1)
	ctx := h.ctx
	h.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer inflight.Done()
		return h.serve(ctx, msg)
	}, lifecycle.WithErrorHandler(func(err error) {
		h.config.logger.Error("failed to answer request", "correlation_id", msg.CorrelationID, "error", err)
	}))
}

func (h *Host) serve(ctx context.Context, msg core.Message) error {
	res := h.router.Dispatch(ctx, msg)

	h.mu.Lock()
	h.handled++
	if res.Failed() {
		h.failed++
	}
	h.mu.Unlock()

	if msg.CorrelationID == "" {
		h.config.logger.Debug("uncorrelated request answered nowhere", "type", msg.Type)
		return nil
	}
	if err := h.transport.Deliver(ctx, msg.Reply(res, core.TagHost)); err != nil {
		return fmt.Errorf("failed to deliver response: %w", err)
	}
	return nil
}
