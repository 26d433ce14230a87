package memory

import (
	"context"
	"sync"

	"github.com/aretw0/webclip/pkg/core"
)

// Panel holds a settable active record.
type Panel struct {
	mu     sync.Mutex
	active core.Record
}

// Open makes rec the active record; nil closes it.
func (p *Panel) Open(rec core.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = rec
}

// ActiveRecord implements core.Panel.
func (p *Panel) ActiveRecord(ctx context.Context) (core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

// Notification is one recorded toast.
type Notification struct {
	Title   string
	Message string
}

// Notifications records every notification it receives.
type Notifications struct {
	mu   sync.Mutex
	list []Notification
}

// Notify implements core.Notifier.
func (n *Notifications) Notify(ctx context.Context, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, Notification{Title: title, Message: message})
	return nil
}

// All returns the recorded notifications in order.
func (n *Notifications) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.list...)
}

var (
	_ core.Panel    = (*Panel)(nil)
	_ core.Notifier = (*Notifications)(nil)
)
