package bridge

import (
	"github.com/aretw0/introspection"
)

// TrackerState exposes internal state for observability.
type TrackerState struct {
	Pending  int    `json:"pending"`
	Timeout  string `json:"timeout"`
	Sent     uint64 `json:"sent"`
	Resolved uint64 `json:"resolved"`
	TimedOut uint64 `json:"timed_out"`
	Canceled uint64 `json:"canceled"`
	Late     uint64 `json:"late_responses"`
}

// State implements introspection.Introspectable.
func (t *Tracker) State() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerState{
		Pending:  len(t.pending),
		Timeout:  t.config.timeout.String(),
		Sent:     t.sent,
		Resolved: t.resolved,
		TimedOut: t.timedOut,
		Canceled: t.canceled,
		Late:     t.late,
	}
}

// ComponentType implements introspection.Component.
func (t *Tracker) ComponentType() string {
	return "tracker"
}

// HostState exposes internal state for observability.
type HostState struct {
	Attached   bool     `json:"attached"`
	Routes     []string `json:"routes"`
	Handled    uint64   `json:"handled"`
	Failed     uint64   `json:"failed"`
	LastStatus string   `json:"last_status,omitempty"`
}

// State implements introspection.Introspectable.
func (h *Host) State() any {
	routes := make([]string, 0)
	for _, t := range h.router.Types() {
		routes = append(routes, string(t))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	st := HostState{
		Attached: h.attached,
		Routes:   routes,
		Handled:  h.handled,
		Failed:   h.failed,
	}
	if h.lastStatus != nil {
		st.LastStatus = h.lastStatus.State
	}
	return st
}

// ComponentType implements introspection.Component.
func (h *Host) ComponentType() string {
	return "host"
}

// ClientState exposes internal state for observability.
type ClientState struct {
	Attached   bool         `json:"attached"`
	Listeners  int          `json:"listeners"`
	LastStatus string       `json:"last_status,omitempty"`
	Tracker    TrackerState `json:"tracker"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	tracker := c.tracker.State().(TrackerState)

	c.mu.Lock()
	defer c.mu.Unlock()
	st := ClientState{
		Attached:  c.attached,
		Listeners: c.listeners.len(),
		Tracker:   tracker,
	}
	if c.lastStatus != nil {
		st.LastStatus = c.lastStatus.State
	}
	return st
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "client"
}

var (
	_ introspection.Introspectable = (*Tracker)(nil)
	_ introspection.Component      = (*Tracker)(nil)
	_ introspection.Introspectable = (*Host)(nil)
	_ introspection.Component      = (*Host)(nil)
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)
