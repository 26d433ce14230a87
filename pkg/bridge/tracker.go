package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/webclip/pkg/core"
)

// UnreachableText is the error text of a request that timed out.
const UnreachableText = "Timeout waiting for host plugin response. Make sure the Web Capture plugin is installed."

// pendingRequest awaits exactly one settlement. It owns its timer.
type pendingRequest struct {
	id        string
	msgType   core.MessageType
	createdAt time.Time
	deadline  time.Time
	timer     *time.Timer
	done      chan core.Result
}

// Tracker correlates outbound requests with their responses.
type Tracker struct {
	transport Transport
	source    core.ContextTag
	config    config

	mu       sync.Mutex
	pending  map[string]*pendingRequest
	sent     uint64
	resolved uint64
	timedOut uint64
	canceled uint64
	late     uint64
}

// NewTracker creates a tracker sending through t on behalf of the capture side.
func NewTracker(t Transport, opts ...Option) *Tracker {
	return &Tracker{
		transport: t,
		source:    core.TagBridge,
		config:    newConfig(opts),
		pending:   make(map[string]*pendingRequest),
	}
}

// Send stamps msg with a fresh correlation ID, delivers it and waits for the
// matching response, the timeout or ctx cancellation, whichever comes first.
// It never returns a Go error: failures are reported in the Result.
func (t *Tracker) Send(ctx context.Context, msg core.Message) core.Result {
	req := t.register(msg.Type)
	msg.CorrelationID = req.id
	msg.Source = t.source

	t.config.logger.Debug("request sent", "correlation_id", req.id, "type", msg.Type)

	if err := t.transport.Deliver(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			t.settle(req.id, core.Failure(core.CodeCanceled, fmt.Sprintf("%v: %v", core.ErrCanceled, err)), outcomeCanceled)
		} else {
			t.settle(req.id, core.Failure(core.CodeUnreachable, fmt.Sprintf("%v: %v", core.ErrUnreachable, err)), outcomeUnreachable)
		}
	}

	select {
	case res := <-req.done:
		return res
	case <-ctx.Done():
		t.settle(req.id, core.Failure(core.CodeCanceled, fmt.Sprintf("%v: %v", core.ErrCanceled, ctx.Err())), outcomeCanceled)
		return <-req.done
	}
}

// Resolve settles the request with the given correlation ID.
// It reports false when the ID is unknown or already settled.
func (t *Tracker) Resolve(correlationID string, res core.Result) bool {
	ok := t.settle(correlationID, res, outcomeResolved)
	if !ok {
		t.mu.Lock()
		t.late++
		t.mu.Unlock()
		t.config.logger.Debug("response ignored", "correlation_id", correlationID)
	}
	return ok
}

// Pending returns the number of unsettled requests.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) register(msgType core.MessageType) *pendingRequest {
	now := t.config.now()
	req := &pendingRequest{
		id:        newCorrelationID(),
		msgType:   msgType,
		createdAt: now,
		deadline:  now.Add(t.config.timeout),
		done:      make(chan core.Result, 1),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[req.id] = req
	t.sent++
	// The callback takes t.mu, so it cannot observe the entry before the timer is set.
	req.timer = time.AfterFunc(t.config.timeout, func() {
		t.settle(req.id, core.Failure(core.CodeUnreachable, UnreachableText), outcomeTimeout)
	})
	return req
}

type outcome int

const (
	outcomeResolved outcome = iota
	outcomeTimeout
	outcomeCanceled
	outcomeUnreachable
)

// settle removes the entry and hands res to the waiter. Only the first call
// for a given ID has any effect.
func (t *Tracker) settle(id string, res core.Result, how outcome) bool {
	t.mu.Lock()
	req, ok := t.pending[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.pending, id)
	switch how {
	case outcomeResolved:
		t.resolved++
	case outcomeTimeout, outcomeUnreachable:
		t.timedOut++
	case outcomeCanceled:
		t.canceled++
	}
	t.mu.Unlock()

	if req.timer != nil {
		req.timer.Stop()
	}
	req.done <- res

	if how == outcomeTimeout {
		t.config.logger.Warn("request timed out",
			"correlation_id", id,
			"type", req.msgType,
			"waited", t.config.now().Sub(req.createdAt).Round(time.Millisecond),
		)
	} else {
		t.config.logger.Debug("request settled", "correlation_id", id, "failed", res.Failed())
	}
	return true
}

// newCorrelationID returns a time-ordered unique ID.
func newCorrelationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
