package bridge

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webclip/pkg/core"
)

func testRoutes() Routes {
	return Routes{
		core.TypePing: func(ctx context.Context, msg core.Message) (any, error) {
			return core.PingReply{Connected: true}, nil
		},
		core.TypeSearch: func(ctx context.Context, msg core.Message) (any, error) {
			if msg.Query == "boom" {
				panic("search exploded")
			}
			if msg.Query == "fail" {
				return nil, core.Collaborator("search", errors.New("index locked"))
			}
			return []core.PageRef{{GUID: "g1", Name: msg.Query}}, nil
		},
	}
}

// pair wires a client and an attached host over an in-process channel.
func pair(t *testing.T, opts ...Option) (*Client, *Host) {
	t.Helper()

	ch := NewChannel()
	host := NewHost(ch.Endpoint(core.TagBridge), NewRouter(testRoutes()), opts...)
	client := NewClient(ch.Endpoint(core.TagHost), opts...)

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))
	require.NoError(t, host.Attach(ctx))
	t.Cleanup(func() {
		_ = host.Detach(context.Background())
		_ = client.Detach(context.Background())
		ch.Close()
	})
	return client, host
}

func TestHostClientRoundTrip(t *testing.T) {
	client, host := pair(t, WithTimeout(2*time.Second))
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		ok, err := client.Ping(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Search", func(t *testing.T) {
		refs, err := client.Search(ctx, "notes")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "notes", refs[0].Name)
	})

	t.Run("Unknown Type", func(t *testing.T) {
		res := client.Send(ctx, core.Message{Type: "DELETE_EVERYTHING"})
		require.True(t, res.Failed())
		assert.Equal(t, core.UnknownMessageTypeText, res.Error)
		assert.ErrorIs(t, res.Err(), core.ErrUnknownMessageType)
	})

	t.Run("Unrouted Known Type", func(t *testing.T) {
		_, err := client.Tags(ctx, "go")
		assert.ErrorIs(t, err, core.ErrUnknownMessageType)
	})

	t.Run("Handler Panic Becomes Error", func(t *testing.T) {
		_, err := client.Search(ctx, "boom")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search exploded")
	})

	t.Run("Handler Error Keeps Message", func(t *testing.T) {
		_, err := client.Search(ctx, "fail")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index locked")
	})

	t.Run("Invalid Capture", func(t *testing.T) {
		res := client.Send(ctx, core.Message{Type: core.TypeCapture})
		assert.Equal(t, core.CodeInvalidMessage, res.Code)
	})

	st := host.State().(HostState)
	assert.True(t, st.Attached)
	assert.GreaterOrEqual(t, st.Handled, uint64(6))
}

func TestHostAttachDetach(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()
	host := NewHost(ch.Endpoint(core.TagBridge), NewRouter(testRoutes()))

	ctx := context.Background()
	require.NoError(t, host.Attach(ctx))
	assert.ErrorIs(t, host.Attach(ctx), ErrAlreadyAttached)

	require.NoError(t, host.Detach(ctx))
	assert.ErrorIs(t, host.Detach(ctx), ErrNotAttached)
	assert.ErrorIs(t, host.Broadcast(ctx, core.StatusReady, ""), ErrNotAttached)

	// Re-attaching after a detach is allowed.
	require.NoError(t, host.Attach(ctx))
	require.NoError(t, host.Detach(ctx))
}

func TestReattachWhileDraining(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	routes := testRoutes()
	routes[core.TypeSearch] = func(ctx context.Context, msg core.Message) (any, error) {
		close(started)
		<-release
		return []core.PageRef{}, nil
	}
	host := NewHost(ch.Endpoint(core.TagBridge), NewRouter(routes))
	client := NewClient(ch.Endpoint(core.TagHost), WithTimeout(2*time.Second))

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))
	require.NoError(t, host.Attach(ctx))

	held := make(chan core.Result, 1)
	go func() { held <- client.Send(ctx, core.Message{Type: core.TypeSearch, Query: "hold"}) }()
	<-started

	detachCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, host.Detach(detachCtx), "stuck request outlives the detach deadline")

	// The old attachment is still draining; a new one must serve independently.
	require.NoError(t, host.Attach(ctx))
	ok, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	close(release)
	<-held
	require.NoError(t, host.Detach(ctx))
}

func TestDetachedHostIsUnreachable(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()
	host := NewHost(ch.Endpoint(core.TagBridge), NewRouter(testRoutes()))
	client := NewClient(ch.Endpoint(core.TagHost), WithTimeout(50*time.Millisecond))

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))
	require.NoError(t, host.Attach(ctx))
	require.NoError(t, host.Detach(ctx))

	_, err := client.Ping(ctx)
	assert.ErrorIs(t, err, core.ErrUnreachable)
}

func TestStatusUpdates(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()
	host := NewHost(ch.Endpoint(core.TagBridge), NewRouter(testRoutes()))
	client := NewClient(ch.Endpoint(core.TagHost))

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))

	statuses := make(chan core.Status, 4)
	remove := client.OnStatus(func(s core.Status) { statuses <- s })
	defer remove()

	require.NoError(t, host.Attach(ctx))
	defer host.Detach(ctx)

	select {
	case s := <-statuses:
		assert.Equal(t, core.StatusReady, s.State)
	case <-time.After(time.Second):
		t.Fatal("no ready status received")
	}

	require.NoError(t, host.Broadcast(ctx, core.StatusChanged, "Journal/today.md"))
	s := <-statuses
	assert.Equal(t, "Journal/today.md", s.Detail)

	last, ok := client.LastStatus()
	require.True(t, ok)
	assert.Equal(t, core.StatusChanged, last.State)
}

func TestChannelDropsForeignSources(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()

	hostSide := ch.Endpoint(core.TagBridge)
	got := make(chan core.Message, 4)
	hostSide.Subscribe(func(m core.Message) { got <- m })

	// A page script on the same bus must not reach the host.
	stranger := ch.Endpoint("page")
	require.NoError(t, stranger.Deliver(context.Background(), core.Message{Type: core.TypePing, Source: "page-script"}))
	// Messages from the host itself are not echoed back to it.
	require.NoError(t, hostSide.Deliver(context.Background(), core.Message{Type: core.TypeStatusUpdate, Source: core.TagHost, Status: &core.Status{State: "x"}}))
	require.NoError(t, stranger.Deliver(context.Background(), core.Message{Type: core.TypePing, Source: core.TagBridge}))

	m := <-got
	assert.Equal(t, core.TagBridge, m.Source)
	assert.Len(t, got, 0)

	ch.Close()
	assert.ErrorIs(t, stranger.Deliver(context.Background(), core.Message{Type: core.TypePing, Source: core.TagBridge}), ErrClosed)
}

func TestStreamRoundTrip(t *testing.T) {
	// client writes to hostIn, host writes to clientIn.
	hostIn, clientOut := io.Pipe()
	clientIn, hostOut := io.Pipe()

	ctx := context.Background()
	hostStream := NewStream(hostIn, hostOut, core.TagBridge)
	clientStream := NewStream(clientIn, clientOut, core.TagHost)
	require.NoError(t, hostStream.Start(ctx))
	require.NoError(t, clientStream.Start(ctx))

	host := NewHost(hostStream, NewRouter(testRoutes()))
	client := NewClient(clientStream, WithTimeout(2*time.Second))
	require.NoError(t, client.Attach(ctx))
	require.NoError(t, host.Attach(ctx))

	// Garbage on the wire is dropped without breaking the stream.
	go func() { _, _ = clientOut.Write([]byte("this is not json\n\n")) }()

	refs, err := client.Search(ctx, "inbox")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "g1", refs[0].GUID)

	require.NoError(t, host.Detach(ctx))
	require.NoError(t, client.Detach(ctx))
	require.NoError(t, clientOut.Close())
	require.NoError(t, hostOut.Close())

	for _, s := range []*Stream{hostStream, clientStream} {
		select {
		case <-s.Done():
			assert.NoError(t, s.Err())
		case <-time.After(time.Second):
			t.Fatal("stream reader did not stop")
		}
	}
	assert.ErrorIs(t, hostStream.Deliver(ctx, core.Message{Type: core.TypePing, Source: core.TagHost}), ErrClosed)
}

func TestProcessNotStarted(t *testing.T) {
	p := NewProcess("webclip-binary-that-does-not-exist", []string{"host"})
	err := p.Start(context.Background())
	require.Error(t, err)

	client := NewClient(p, WithTimeout(time.Hour))
	require.NoError(t, client.Attach(context.Background()))

	start := time.Now()
	_, err = client.Ping(context.Background())
	assert.ErrorIs(t, err, core.ErrUnreachable)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, p.Close(context.Background()))
}
