package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/webclip/pkg/core"
)

// maxLineSize bounds a single encoded message.
const maxLineSize = 16 * 1024 * 1024

// Stream speaks newline-delimited JSON messages over a reader/writer pair,
// typically a process's stdio.
type Stream struct {
	r      io.Reader
	w      io.Writer
	expect core.ContextTag
	config config

	wmu  sync.Mutex
	subs subscribers

	mu      sync.Mutex
	started bool
	closed  bool
	err     error
	done    chan struct{}
}

// NewStream creates a stream accepting inbound messages tagged expect.
func NewStream(r io.Reader, w io.Writer, expect core.ContextTag, opts ...Option) *Stream {
	return &Stream{
		r:      r,
		w:      w,
		expect: expect,
		config: newConfig(opts),
		done:   make(chan struct{}),
	}
}

// Start runs the read loop until the reader is exhausted.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("stream already started")
	}
	s.started = true
	s.mu.Unlock()

	lifecycle.Go(ctx, s.readLoop, lifecycle.WithErrorHandler(func(err error) {
		s.config.logger.Error("stream reader failed", "error", err)
	}))
	return nil
}

// Done is closed once the read loop has finished.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the read loop, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Deliver writes msg as one JSON line.
func (s *Stream) Deliver(ctx context.Context, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data = append(data, '\n')

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Subscribe registers fn for inbound messages from the expected counterpart.
func (s *Stream) Subscribe(fn func(core.Message)) func() {
	return s.subs.add(fn)
}

func (s *Stream) readLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var err error
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, decodeErr := core.DecodeMessage(line)
		if decodeErr != nil {
			s.config.logger.Warn("dropping undecodable line", "error", decodeErr)
			continue
		}
		if msg.Source != s.expect {
			s.config.logger.Debug("dropping message from unexpected source", "source", msg.Source)
			continue
		}
		s.subs.emit(msg)
		if ctx.Err() != nil {
			break
		}
	}
	if scanErr := scanner.Err(); scanErr != nil && !errors.Is(scanErr, io.ErrClosedPipe) {
		err = fmt.Errorf("failed to read stream: %w", scanErr)
	}

	s.mu.Lock()
	s.closed = true
	s.err = err
	s.mu.Unlock()
	close(s.done)
	return err
}

var _ Transport = (*Stream)(nil)
