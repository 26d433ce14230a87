package capture_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webclip/pkg/adapters/memory"
	"github.com/aretw0/webclip/pkg/bridge"
	"github.com/aretw0/webclip/pkg/capture"
	"github.com/aretw0/webclip/pkg/core"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Short Query Touches Nothing", func(t *testing.T) {
		ws := memory.New()
		ws.AddRecord("Pages", "p1", "Go notes")
		svc, _ := newService(ws, nil)
		before := ws.Calls()

		for _, q := range []string{"", "g"} {
			refs, err := svc.Search(ctx, q)
			require.NoError(t, err)
			assert.NotNil(t, refs)
			assert.Empty(t, refs)
		}
		assert.Equal(t, before, ws.Calls())
	})

	t.Run("Name Match Is Case Insensitive", func(t *testing.T) {
		ws := memory.New()
		ws.AddRecord("Pages", "p1", "Go Notes")
		ws.AddRecord("", "p2", "Rust notes")
		ws.AddRecord("Pages", "p3", "Recipes")
		svc, _ := newService(ws, nil)

		refs, err := svc.Search(ctx, "NOTES")
		require.NoError(t, err)
		assert.Equal(t, []core.PageRef{
			{GUID: "p1", Name: "Go Notes", Collection: "Pages"},
			{GUID: "p2", Name: "Rust notes"},
		}, refs)
	})

	t.Run("Capped", func(t *testing.T) {
		ws := memory.New()
		for i := 0; i < 30; i++ {
			ws.AddRecord("Pages", fmt.Sprintf("p%d", i), fmt.Sprintf("page %d", i))
		}
		svc, _ := newService(ws, nil)

		refs, err := svc.Search(ctx, "page")
		require.NoError(t, err)
		assert.Len(t, refs, capture.MaxSearchResults)
	})

	t.Run("Falls Back To Full Text", func(t *testing.T) {
		ws := &searchOnly{Workspace: memory.New()}
		ws.AddRecord("Pages", "p1", "Unrelated")
		svc := capture.NewService(ws, nil, nil)

		refs, err := svc.Search(ctx, "kubernetes")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "p1", refs[0].GUID)
		assert.Equal(t, "Pages", refs[0].Collection)
	})
}

// searchOnly answers every full-text query with all records, like a content index.
type searchOnly struct {
	*memory.Workspace
}

func (s *searchOnly) Search(ctx context.Context, query string, limit int) (core.SearchResult, error) {
	recs, err := s.Workspace.Records(ctx)
	return core.SearchResult{Records: recs}, err
}

// brokenSearch fails every listing and full-text query.
type brokenSearch struct {
	*memory.Workspace
}

func (b *brokenSearch) Records(context.Context) ([]core.Record, error) {
	return nil, errors.New("index unavailable")
}

func (b *brokenSearch) Search(context.Context, string, int) (core.SearchResult, error) {
	return core.SearchResult{}, errors.New("index unavailable")
}

func TestSearchRoutesSwallowFailures(t *testing.T) {
	ctx := context.Background()
	ws := &brokenSearch{Workspace: memory.New()}
	svc := capture.NewService(ws, nil, nil)

	_, err := svc.Search(ctx, "anything")
	var collab *core.CollaboratorError
	require.ErrorAs(t, err, &collab)

	router := bridge.NewRouter(svc.Routes())

	res := router.Dispatch(ctx, core.Message{Type: core.TypeSearch, Query: "anything", Source: core.TagBridge})
	require.False(t, res.Failed())
	var refs []core.PageRef
	require.NoError(t, res.Decode(&refs))
	assert.NotNil(t, refs)
	assert.Empty(t, refs)

	res = router.Dispatch(ctx, core.Message{Type: core.TypeGetTags, Query: "go", Source: core.TagBridge})
	require.False(t, res.Failed())
	var tags []string
	require.NoError(t, res.Decode(&tags))
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	ws := memory.New()
	ws.AddRecord("", "rec", "Inbox",
		core.ContentNode{GUID: "l1", ParentGUID: "rec", Segments: []core.Segment{core.Bold("a"), core.Hashtag("golang"), core.Hashtag("#go")}},
		core.ContentNode{GUID: "l2", ParentGUID: "rec", Segments: []core.Segment{core.Text("about go"), core.Hashtag("#tools")}},
	)
	svc, _ := newService(ws, nil)

	t.Run("Empty Query", func(t *testing.T) {
		tags, err := svc.Tags(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("Hashtag Search", func(t *testing.T) {
		tags, err := svc.Tags(ctx, "go")
		require.NoError(t, err)
		// Every hashtag on a matching line counts, normalized and de-duplicated.
		assert.Equal(t, []string{"#golang", "#go"}, tags)
	})

	t.Run("Plain Fallback Filters", func(t *testing.T) {
		tags, err := svc.Tags(ctx, "#ool")
		require.NoError(t, err)
		assert.Equal(t, []string{"#tools"}, tags)
	})

	t.Run("Capped", func(t *testing.T) {
		ws := memory.New()
		var segs []core.Segment
		for i := 0; i < 15; i++ {
			segs = append(segs, core.Hashtag(fmt.Sprintf("#t%02d", i)))
		}
		ws.AddRecord("", "rec", "Tags", core.ContentNode{GUID: "l", ParentGUID: "rec", Segments: segs})
		svc, _ := newService(ws, nil)

		tags, err := svc.Tags(ctx, "t0")
		require.NoError(t, err)
		assert.Len(t, tags, capture.MaxTags)
	})
}

func TestServiceOverBridge(t *testing.T) {
	ws := memory.New()
	ws.AddRecord("Journal", "jrnl-20251229", "Monday, December 29, 2025")
	svc, notes := newService(ws, nil)

	ch := bridge.NewChannel()
	defer ch.Close()
	host := bridge.NewHost(ch.Endpoint(core.TagBridge), bridge.NewRouter(svc.Routes()))
	client := bridge.NewClient(ch.Endpoint(core.TagHost), bridge.WithTimeout(2*time.Second))

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))
	require.NoError(t, host.Attach(ctx))
	defer host.Detach(ctx)

	ok, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	reply, err := client.Capture(ctx, core.CapturePayload{
		Mode:        core.InferMode("first\nsecond"),
		Title:       "Over the wire",
		URL:         "https://e.co",
		Content:     "first\nsecond",
		Destination: core.DestinationRef{Type: core.DestinationJournal},
	})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Len(t, ws.Nodes("jrnl-20251229"), 4)
	assert.Len(t, notes.All(), 1)

	_, err = client.Capture(ctx, core.CapturePayload{
		Mode:        core.ModeLink,
		Destination: core.DestinationRef{Type: core.DestinationPage, PageGUID: "missing"},
	})
	assert.ErrorIs(t, err, core.ErrDestinationNotFound)

	refs, err := client.Search(ctx, "december")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Journal", refs[0].Collection)

	st := svc.State().(capture.ServiceState)
	assert.Equal(t, uint64(1), st.Captures)
	assert.Equal(t, uint64(1), st.Failures)
}
