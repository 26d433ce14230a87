package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/webclip/pkg/core"
)

// Process runs the host side as a child process and talks to it through a
// Stream over the child's stdin and stdout.
type Process struct {
	name   string
	args   []string
	opts   []Option
	config config
	subs   subscribers

	// Stderr receives the child's stderr. Defaults to os.Stderr.
	Stderr io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stream  *Stream
	running bool
	exited  chan struct{}
	exitErr error
}

// NewProcess prepares a child process transport. Nothing is spawned until Start.
func NewProcess(name string, args []string, opts ...Option) *Process {
	return &Process{
		name:   name,
		args:   args,
		opts:   opts,
		config: newConfig(opts),
		Stderr: os.Stderr,
		exited: make(chan struct{}),
	}
}

// Start spawns the child and begins reading its output.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stderr = p.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start host process %s: %w", p.name, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stream = NewStream(stdout, stdin, core.TagHost, p.opts...)
	p.stream.Subscribe(p.subs.emit)
	p.running = true
	p.config.logger.Debug("host process started", "pid", cmd.Process.Pid, "cmd", p.name)

	if err := p.stream.Start(ctx); err != nil {
		return err
	}

	stream := p.stream
	lifecycle.Go(ctx, func(ctx context.Context) error {
		// All reads must complete before Wait closes the pipe.
		<-stream.Done()
		err := cmd.Wait()

		p.mu.Lock()
		p.running = false
		p.exitErr = err
		p.mu.Unlock()
		close(p.exited)

		if err != nil {
			return fmt.Errorf("host process exited: %w", err)
		}
		p.config.logger.Debug("host process exited")
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		p.config.logger.Warn("host process failed", "error", err)
	}))
	return nil
}

// Deliver writes msg to the child's stdin. It fails synchronously when the
// child is not running.
func (p *Process) Deliver(ctx context.Context, msg core.Message) error {
	p.mu.Lock()
	running, stream := p.running, p.stream
	p.mu.Unlock()
	if !running {
		return ErrNotConnected
	}
	return stream.Deliver(ctx, msg)
}

// Subscribe registers fn for messages written by the child.
func (p *Process) Subscribe(fn func(core.Message)) func() {
	return p.subs.add(fn)
}

// Close ends the child's input and waits for it to exit or ctx to expire.
func (p *Process) Close(ctx context.Context) error {
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()
	if stdin == nil {
		return nil
	}
	_ = stdin.Close()

	select {
	case <-p.exited:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Transport = (*Process)(nil)
