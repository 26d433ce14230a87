package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	wlifecycle "github.com/aretw0/webclip/pkg/adapters/lifecycle"
	"github.com/aretw0/webclip/pkg/bridge"
	"github.com/aretw0/webclip/pkg/capture"
	"github.com/aretw0/webclip/pkg/core"
)

// detachTimeout bounds how long shutdown waits for in-flight requests.
const detachTimeout = 5 * time.Second

// New opens the workspace at uri and binds a capture service to it.
// The closer releases the workspace.
//
//	svc, closer, err := platform.New(ctx, "./vault", platform.WithAutoInit(true))
func New(ctx context.Context, uri string, opts ...Option) (*capture.Service, io.Closer, error) {
	o := newOptions(opts)
	ws, closer, err := openWorkspace(ctx, uri, o)
	if err != nil {
		return nil, nil, err
	}
	return capture.NewService(ws, o.panel, o.notifier, o.captureOptions()...), closer, nil
}

// Serve runs the host side over a JSON-lines pair (usually stdin/stdout) until
// in is exhausted or ctx ends. External workspace changes are relayed as
// status updates when the workspace can be watched.
func Serve(ctx context.Context, uri string, in io.Reader, out io.Writer, opts ...Option) error {
	o := newOptions(opts)
	ws, closer, err := openWorkspace(ctx, uri, o)
	if err != nil {
		return err
	}
	defer closer.Close()

	svc := capture.NewService(ws, o.panel, o.notifier, o.captureOptions()...)
	stream := bridge.NewStream(in, out, core.TagBridge, o.bridgeOptions()...)
	host := bridge.NewHost(stream, bridge.NewRouter(svc.Routes(), o.bridgeOptions()...), o.bridgeOptions()...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := stream.Start(runCtx); err != nil {
		return err
	}
	if err := host.Attach(runCtx); err != nil {
		return err
	}
	if o.watch {
		follow(runCtx, ws, host, o)
	}

	select {
	case <-ctx.Done():
	case <-stream.Done():
	}

	detachCtx, detachCancel := context.WithTimeout(context.Background(), detachTimeout)
	defer detachCancel()
	if err := host.Detach(detachCtx); err != nil && !errors.Is(err, bridge.ErrNotAttached) {
		o.logger.Warn("detach failed", "error", err)
	}
	return stream.Err()
}

func follow(ctx context.Context, ws core.Workspace, host *bridge.Host, o *options) {
	w, ok := ws.(core.Watchable)
	if !ok {
		return
	}
	events, err := w.Watch(ctx)
	if err != nil {
		o.logger.Warn("workspace watch unavailable", "error", err)
		return
	}
	if err := host.Follow(wlifecycle.NewSource(events)); err != nil {
		o.logger.Warn("failed to relay workspace changes", "error", err)
	}
}

// Session is an attached client plus whatever carries its messages.
type Session struct {
	*bridge.Client
	close func(ctx context.Context) error
}

// Close detaches the client and shuts the host side down.
func (s *Session) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Dial spawns a host process (for example "webclip host") and attaches a
// client to its stdio.
func Dial(ctx context.Context, name string, args []string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	proc := bridge.NewProcess(name, args, o.bridgeOptions()...)
	// Subscribe before the child runs so its ready status is not missed.
	client := bridge.NewClient(proc, o.bridgeOptions()...)
	if err := client.Attach(ctx); err != nil {
		return nil, err
	}
	if err := proc.Start(ctx); err != nil {
		_ = client.Detach(ctx)
		return nil, err
	}
	return &Session{
		Client: client,
		close: func(ctx context.Context) error {
			_ = client.Detach(ctx)
			return proc.Close(ctx)
		},
	}, nil
}

// Connect runs host and client in-process over a bridge.Channel. It backs
// tests, embedders and the CLI's --local mode.
func Connect(ctx context.Context, uri string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	ws, closer, err := openWorkspace(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	svc := capture.NewService(ws, o.panel, o.notifier, o.captureOptions()...)
	ch := bridge.NewChannel()
	host := bridge.NewHost(ch.Endpoint(core.TagBridge), bridge.NewRouter(svc.Routes(), o.bridgeOptions()...), o.bridgeOptions()...)
	client := bridge.NewClient(ch.Endpoint(core.TagHost), o.bridgeOptions()...)

	if err := client.Attach(ctx); err != nil {
		closer.Close()
		return nil, err
	}
	if err := host.Attach(ctx); err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to attach host: %w", err)
	}

	return &Session{
		Client: client,
		close: func(ctx context.Context) error {
			_ = client.Detach(ctx)
			err := host.Detach(ctx)
			ch.Close()
			return errors.Join(err, closer.Close())
		},
	}, nil
}
