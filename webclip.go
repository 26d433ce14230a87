package webclip

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/webclip/internal/platform"
	"github.com/aretw0/webclip/pkg/capture"
	"github.com/aretw0/webclip/pkg/core"
)

// --- Types ---

// Session is an attached bridge client. Close it to shut the host side down.
type Session = platform.Session

// --- Configuration ---

// Option defines a functional option for configuring webclip.
type Option = platform.Option

// Adapter names for WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithWorkspace injects a custom workspace (e.g. a host application's index).
func WithWorkspace(ws core.Workspace) Option {
	return platform.WithWorkspace(ws)
}

// WithPanel sets the source of the active record.
func WithPanel(p core.Panel) Option {
	return platform.WithPanel(p)
}

// WithNotifier sets where capture confirmations go.
func WithNotifier(n core.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithAutoInit creates the vault when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist fails when the vault directory does not exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithVersioning enables or disables git checkpoints.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithSystemDir sets the hidden directory name (default ".webclip").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithWatch controls whether a served host relays external changes.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithTimeout sets how long a client waits for a host reply.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// --- Factory ---

// New opens the workspace at uri and returns a capture service bound to it.
func New(ctx context.Context, uri string, opts ...Option) (*capture.Service, io.Closer, error) {
	return platform.New(ctx, uri, opts...)
}

// Serve runs the host side over a JSON-lines reader/writer pair.
func Serve(ctx context.Context, uri string, in io.Reader, out io.Writer, opts ...Option) error {
	return platform.Serve(ctx, uri, in, out, opts...)
}

// Dial spawns a host process and attaches a client to it.
func Dial(ctx context.Context, name string, args []string, opts ...Option) (*Session, error) {
	return platform.Dial(ctx, name, args, opts...)
}

// Connect runs host and client in the same process.
func Connect(ctx context.Context, uri string, opts ...Option) (*Session, error) {
	return platform.Connect(ctx, uri, opts...)
}

// FindRoot looks upwards from dir for a vault root.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
