// Package memory provides an in-process workspace, panel and notifier.
// It backs tests and embedders that keep records elsewhere.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/webclip/pkg/core"
)

// Workspace is a mutex-guarded record index.
type Workspace struct {
	mu          sync.Mutex
	collections []string
	records     []*recordData // insertion order
	byGUID      map[string]*recordData

	// DeclineCreate makes CreateNode return no node when it reports true.
	DeclineCreate func(kind core.NodeKind, parentGUID string) bool
	// FailCreateRecord makes Collection.CreateRecord fail.
	FailCreateRecord bool
	calls int
}

type recordData struct {
	guid       string
	name       string
	collection string
	nodes      []core.ContentNode
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{byGUID: make(map[string]*recordData)}
}

// AddCollection registers a collection by name.
func (w *Workspace) AddCollection(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.collections {
		if c == name {
			return
		}
	}
	w.collections = append(w.collections, name)
}

// AddRecord inserts a record with a given guid. An empty collection leaves it
// outside any collection.
func (w *Workspace) AddRecord(collection, guid, name string, nodes ...core.ContentNode) core.Record {
	if collection != "" {
		w.AddCollection(collection)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	rd := &recordData{guid: guid, name: name, collection: collection, nodes: append([]core.ContentNode(nil), nodes...)}
	w.records = append(w.records, rd)
	w.byGUID[guid] = rd
	return &Record{ws: w, guid: guid, name: name}
}

func (w *Workspace) touch() {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
}

// Calls counts every collaborator call made so far.
func (w *Workspace) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// Collections implements core.Workspace.
func (w *Workspace) Collections(ctx context.Context) ([]core.Collection, error) {
	w.touch()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.Collection, 0, len(w.collections))
	for _, name := range w.collections {
		out = append(out, &Collection{ws: w, name: name})
	}
	return out, nil
}

// Records implements core.Workspace.
func (w *Workspace) Records(ctx context.Context) ([]core.Record, error) {
	w.touch()
	return w.recordsWhere(func(*recordData) bool { return true }), nil
}

func (w *Workspace) recordsWhere(keep func(*recordData) bool) []core.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []core.Record
	for _, rd := range w.records {
		if keep(rd) {
			out = append(out, &Record{ws: w, guid: rd.guid, name: rd.name})
		}
	}
	return out
}

// Record implements core.Workspace.
func (w *Workspace) Record(ctx context.Context, guid string) (core.Record, error) {
	w.touch()
	w.mu.Lock()
	defer w.mu.Unlock()
	rd, ok := w.byGUID[guid]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return &Record{ws: w, guid: rd.guid, name: rd.name}, nil
}

// Search matches records by name and lines by text, case-insensitively.
func (w *Workspace) Search(ctx context.Context, query string, limit int) (core.SearchResult, error) {
	w.touch()
	needle := strings.ToLower(query)
	var res core.SearchResult

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rd := range w.records {
		if len(res.Records) < limit && strings.Contains(strings.ToLower(rd.name), needle) {
			res.Records = append(res.Records, &Record{ws: w, guid: rd.guid, name: rd.name})
		}
		for _, n := range rd.nodes {
			if len(res.Lines) < limit && strings.Contains(strings.ToLower(n.SearchText()), needle) {
				res.Lines = append(res.Lines, n)
			}
		}
	}
	return res, nil
}

// Nodes returns a copy of a record's nodes, for assertions.
func (w *Workspace) Nodes(guid string) []core.ContentNode {
	w.mu.Lock()
	defer w.mu.Unlock()
	rd, ok := w.byGUID[guid]
	if !ok {
		return nil
	}
	return append([]core.ContentNode(nil), rd.nodes...)
}

// Collection is a named group of records.
type Collection struct {
	ws   *Workspace
	name string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Records(ctx context.Context) ([]core.Record, error) {
	c.ws.touch()
	return c.ws.recordsWhere(func(rd *recordData) bool { return rd.collection == c.name }), nil
}

func (c *Collection) CreateRecord(ctx context.Context, name string) (string, error) {
	c.ws.touch()
	if c.ws.FailCreateRecord {
		return "", fmt.Errorf("record creation disabled")
	}
	guid := core.RecordGUID(name)
	c.ws.AddRecord(c.name, guid, name)
	return guid, nil
}

// Record is a handle on a stored record.
type Record struct {
	ws   *Workspace
	guid string
	name string
}

func (r *Record) GUID() string { return r.guid }
func (r *Record) Name() string { return r.name }

func (r *Record) Nodes(ctx context.Context) ([]core.ContentNode, error) {
	r.ws.touch()
	nodes := r.ws.Nodes(r.guid)
	if nodes == nil {
		if _, err := r.ws.Record(ctx, r.guid); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func (r *Record) CreateNode(ctx context.Context, parentGUID string, after *core.ContentNode, kind core.NodeKind) (*core.ContentNode, error) {
	r.ws.touch()
	if r.ws.DeclineCreate != nil && r.ws.DeclineCreate(kind, parentGUID) {
		return nil, nil
	}

	r.ws.mu.Lock()
	defer r.ws.mu.Unlock()
	rd, ok := r.ws.byGUID[r.guid]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	node := core.ContentNode{GUID: core.NewGUID(), ParentGUID: parentGUID, Kind: kind}
	nodes, err := core.InsertNode(rd.nodes, rd.guid, node, after)
	if err != nil {
		return nil, err
	}
	rd.nodes = nodes
	return &node, nil
}

func (r *Record) SetSegments(ctx context.Context, nodeGUID string, segments []core.Segment) error {
	r.ws.touch()
	r.ws.mu.Lock()
	defer r.ws.mu.Unlock()
	rd, ok := r.ws.byGUID[r.guid]
	if !ok {
		return core.ErrRecordNotFound
	}
	for i := range rd.nodes {
		if rd.nodes[i].GUID == nodeGUID {
			rd.nodes[i].Segments = append([]core.Segment(nil), segments...)
			return nil
		}
	}
	return fmt.Errorf("node %s not found in %s", nodeGUID, r.guid)
}

var (
	_ core.Workspace  = (*Workspace)(nil)
	_ core.Collection = (*Collection)(nil)
	_ core.Record     = (*Record)(nil)
)
