package platform_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webclip/internal/platform"
	"github.com/aretw0/webclip/pkg/adapters/fs"
	"github.com/aretw0/webclip/pkg/adapters/memory"
	"github.com/aretw0/webclip/pkg/adapters/sqlite"
	"github.com/aretw0/webclip/pkg/core"
)

// hostEnv turns the test binary into a memory-backed host speaking on stdio.
const hostEnv = "WEBCLIP_TEST_SERVE"

func TestMain(m *testing.M) {
	if os.Getenv(hostEnv) == "1" {
		err := platform.Serve(context.Background(), "", os.Stdin, os.Stdout,
			platform.WithAdapter(platform.AdapterMemory), platform.WithWatch(false))
		if err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestDialSeesReadyStatus(t *testing.T) {
	t.Setenv(hostEnv, "1")
	ctx := context.Background()

	sess, err := platform.Dial(ctx, os.Args[0], nil, platform.WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer sess.Close(ctx)

	require.Eventually(t, func() bool {
		_, ok := sess.LastStatus()
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	st, _ := sess.LastStatus()
	assert.Equal(t, core.StatusReady, st.State)

	ok, err := sess.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, _, err := platform.OpenWorkspace(ctx, "x", platform.WithAdapter("s3"))
		assert.ErrorContains(t, err, "unknown adapter")
	})

	t.Run("Injected Workspace Wins", func(t *testing.T) {
		mem := memory.New()
		ws, closer, err := platform.OpenWorkspace(ctx, "ignored", platform.WithWorkspace(mem), platform.WithAdapter("s3"))
		require.NoError(t, err)
		assert.Same(t, mem, ws)
		assert.NoError(t, closer.Close())
	})

	t.Run("FS Requires Existing Vault Without AutoInit", func(t *testing.T) {
		_, _, err := platform.OpenWorkspace(ctx, filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("FS Gitless", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "vault")
		ws, _, err := platform.OpenWorkspace(ctx, dir, platform.WithAutoInit(true), platform.WithVersioning(false))
		require.NoError(t, err)
		require.IsType(t, &fs.Workspace{}, ws)
		assert.True(t, ws.(*fs.Workspace).State().(fs.WorkspaceState).Gitless)
	})

	t.Run("SQLite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "db", "webclip.db")
		_, _, err := platform.OpenWorkspace(ctx, dsn, platform.WithAdapter(platform.AdapterSQLite))
		assert.Error(t, err, "missing database without auto-init")

		ws, closer, err := platform.OpenWorkspace(ctx, dsn, platform.WithAdapter(platform.AdapterSQLite), platform.WithAutoInit(true))
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &sqlite.Workspace{}, ws)
	})
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	mem.AddRecord("Pages", "p1", "Reading")
	notes := &memory.Notifications{}

	sess, err := platform.Connect(ctx, "", platform.WithWorkspace(mem), platform.WithNotifier(notes), platform.WithTimeout(2*time.Second))
	require.NoError(t, err)
	defer sess.Close(ctx)

	ok, err := sess.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	reply, err := sess.Capture(ctx, core.CapturePayload{
		Mode:        core.ModeLink,
		URL:         "https://e.co",
		Title:       "Example",
		Destination: core.DestinationRef{Type: core.DestinationPage, PageGUID: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", reply.RecordGUID)
	assert.Len(t, mem.Nodes("p1"), 2)
	require.Len(t, notes.All(), 1)
	assert.Equal(t, "Captured!", notes.All()[0].Title)
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Journal"), 0755))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() {
		served <- platform.Serve(ctx, dir, inR, outW, platform.WithVersioning(false), platform.WithWatch(false))
		outW.Close()
	}()

	lines := bufio.NewScanner(outR)
	next := func() core.Message {
		t.Helper()
		require.True(t, lines.Scan(), "host closed its output")
		var msg core.Message
		require.NoError(t, json.Unmarshal(lines.Bytes(), &msg))
		return msg
	}

	ready := next()
	assert.Equal(t, core.TypeStatusUpdate, ready.Type)
	assert.Equal(t, core.TagHost, ready.Source)

	_, err := io.WriteString(inW, `{"type":"PING","correlationId":"c1","source":"extension-bridge"}`+"\n")
	require.NoError(t, err)
	resp := next()
	assert.Equal(t, core.TypeResponse, resp.Type)
	assert.Equal(t, "c1", resp.CorrelationID)
	var ping core.PingReply
	require.NoError(t, resp.Response.Decode(&ping))
	assert.True(t, ping.Connected)

	_, err = io.WriteString(inW, `{"type":"BOGUS","correlationId":"c2","source":"extension-bridge"}`+"\n")
	require.NoError(t, err)
	resp = next()
	assert.Equal(t, "c2", resp.CorrelationID)
	assert.Equal(t, core.UnknownMessageTypeText, resp.Response.Error)

	require.NoError(t, inW.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after input closed")
	}
}
