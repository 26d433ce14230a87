package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/webclip/pkg/bridge"
	"github.com/aretw0/webclip/pkg/capture"
	"github.com/aretw0/webclip/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a webclip host or client.
type options struct {
	workspace core.Workspace
	panel     core.Panel
	notifier  core.Notifier
	logger    *slog.Logger
	adapter   string
	systemDir string
	autoInit  bool
	mustExist bool
	gitless   *bool // nil: detect from the vault
	watch     bool
	timeout   time.Duration
	now       func() time.Time
}

// Option defines a functional option for configuring webclip.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		watch:   true,
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func (o *options) captureOptions() []capture.Option {
	opts := []capture.Option{capture.WithLogger(o.logger)}
	if o.now != nil {
		opts = append(opts, capture.WithClock(o.now))
	}
	return opts
}

func (o *options) bridgeOptions() []bridge.Option {
	opts := []bridge.Option{bridge.WithLogger(o.logger)}
	if o.timeout > 0 {
		opts = append(opts, bridge.WithTimeout(o.timeout))
	}
	if o.now != nil {
		opts = append(opts, bridge.WithClock(o.now))
	}
	return opts
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithWorkspace injects a ready workspace; the adapter is then ignored.
func WithWorkspace(ws core.Workspace) Option {
	return func(o *options) {
		o.workspace = ws
	}
}

// WithPanel sets the source of the active record, consulted when no journal
// entry can be found.
func WithPanel(p core.Panel) Option {
	return func(o *options) {
		o.panel = p
	}
}

// WithNotifier sets where capture confirmations go.
func WithNotifier(n core.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default), "sqlite"
// or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithAutoInit creates the vault directory (and git repository) when missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithMustExist fails when the vault directory does not exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithVersioning enables or disables git checkpoints for the fs adapter.
// Left unset, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		gitless := !enabled
		o.gitless = &gitless
	}
}

// WithSystemDir sets the hidden directory name (default ".webclip").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithWatch controls whether Serve relays external workspace changes as
// status updates. On by default.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithTimeout sets how long a client waits for a host reply.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithClock sets the time source ("today", title timestamps, deadlines).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
