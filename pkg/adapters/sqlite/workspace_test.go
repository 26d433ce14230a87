package sqlite_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webclip/pkg/adapters/sqlite"
	"github.com/aretw0/webclip/pkg/capture"
	"github.com/aretw0/webclip/pkg/core"
)

func open(t *testing.T, dsn string) *sqlite.Workspace {
	t.Helper()
	ws, err := sqlite.Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWorkspace_Records(t *testing.T) {
	ctx := context.Background()
	ws := open(t, ":memory:")

	require.NoError(t, ws.AddRecord(ctx, "Pages", "p1", "Go Notes"))
	require.NoError(t, ws.AddRecord(ctx, "", "p2", "100% Rust"))

	cols, err := ws.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "Pages", cols[0].Name())

	recs, err := cols[0].Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0].GUID())

	_, err = ws.Record(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)

	res, err := ws.Search(ctx, "go notes", 10)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	// LIKE wildcards in the query are literal.
	res, err = ws.Search(ctx, "0%", 10)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "p2", res.Records[0].GUID())
	res, err = ws.Search(ctx, "_", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestWorkspace_Outline(t *testing.T) {
	ctx := context.Background()
	ws := open(t, ":memory:")
	require.NoError(t, ws.AddRecord(ctx, "Pages", "p1", "Outline"))
	rec, err := ws.Record(ctx, "p1")
	require.NoError(t, err)

	a, err := rec.CreateNode(ctx, "p1", nil, core.KindText)
	require.NoError(t, err)
	b, err := rec.CreateNode(ctx, "p1", a, core.KindText)
	require.NoError(t, err)
	a1, err := rec.CreateNode(ctx, a.GUID, nil, core.KindQuote)
	require.NoError(t, err)
	first, err := rec.CreateNode(ctx, "p1", nil, core.KindText)
	require.NoError(t, err)

	require.NoError(t, rec.SetSegments(ctx, a1.GUID, []core.Segment{core.Text("quoted "), core.Hashtag("tag")}))
	assert.Error(t, rec.SetSegments(ctx, "nope", nil))

	nodes, err := rec.Nodes(ctx)
	require.NoError(t, err)
	var order []string
	for _, n := range nodes {
		order = append(order, n.GUID)
	}
	assert.Equal(t, []string{first.GUID, a.GUID, a1.GUID, b.GUID}, order)
	assert.Equal(t, core.KindQuote, nodes[2].Kind)
	assert.Equal(t, "quoted tag", nodes[2].PlainText())

	res, err := ws.Search(ctx, "#tag", 10)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, a1.GUID, res.Lines[0].GUID)

	st := ws.State().(sqlite.WorkspaceState)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, 4, st.Lines)
}

func TestWorkspace_CaptureToFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "webclip.db")
	ws := open(t, dsn)
	require.NoError(t, ws.AddCollection(ctx, "Journal"))

	now := time.Date(2025, time.December, 29, 15, 4, 0, 0, time.UTC)
	svc := capture.NewService(ws, nil, nil, capture.WithClock(func() time.Time { return now }))

	reply, err := svc.Capture(ctx, core.CapturePayload{
		Mode:        core.ModeSelection,
		URL:         "https://e.co",
		Title:       "Stored",
		Content:     "one\ntwo",
		Destination: core.DestinationRef{Type: core.DestinationJournal},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(reply.RecordGUID, "20251229"))
	require.NoError(t, ws.Close())

	// Reopen: the capture survived.
	again := open(t, dsn)
	rec, err := again.Record(ctx, reply.RecordGUID)
	require.NoError(t, err)
	assert.Equal(t, "Monday, December 29, 2025", rec.Name())
	nodes, err := rec.Nodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}
