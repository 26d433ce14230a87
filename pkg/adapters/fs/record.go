package fs

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/aretw0/webclip/pkg/core"
)

// Collection is a top-level directory of the workspace.
type Collection struct {
	ws   *Workspace
	name string
}

func (c *Collection) Name() string { return c.name }

// Records lists the record files under the collection directory.
func (c *Collection) Records(ctx context.Context) ([]core.Record, error) {
	entries, err := c.ws.scan(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Record
	for _, e := range entries {
		if e.Collection == c.name {
			out = append(out, c.ws.handle(e))
		}
	}
	return out, nil
}

// CreateRecord writes an empty record named name. Names that read as a journal
// date get a guid ending in that date (YYYYMMDD).
func (c *Collection) CreateRecord(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.ws.mu.Lock()
	defer c.ws.mu.Unlock()

	relPath, err := c.freePath(slugify(name))
	if err != nil {
		return "", err
	}

	guid := core.RecordGUID(name)
	if err := c.ws.writeRecord(relPath, &recordFile{GUID: guid, Name: name}); err != nil {
		return "", err
	}
	c.ws.config.Logger.Debug("record created", "guid", guid, "path", relPath)
	return guid, nil
}

// freePath picks "<collection>/<slug>.md", numbering it when taken.
func (c *Collection) freePath(slug string) (string, error) {
	for i := 1; i < 1000; i++ {
		name := slug
		if i > 1 {
			name = fmt.Sprintf("%s-%d", slug, i)
		}
		relPath := path.Join(c.name, name+".md")
		_, err := os.Stat(filepath.Join(c.ws.Path, filepath.FromSlash(relPath)))
		if os.IsNotExist(err) {
			return relPath, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free file name for %q in %s", slug, c.name)
}

// Record is a handle on a record file.
type Record struct {
	ws   *Workspace
	guid string
	name string
	path string // relative, slash separated
}

func (r *Record) GUID() string { return r.guid }
func (r *Record) Name() string { return r.name }

// Nodes reads the outline from disk.
func (r *Record) Nodes(ctx context.Context) ([]core.ContentNode, error) {
	rf, err := r.ws.readRecord(r.path)
	if err != nil {
		return nil, err
	}
	return rf.Lines, nil
}

// CreateNode inserts an empty node and rewrites the file.
func (r *Record) CreateNode(ctx context.Context, parentGUID string, after *core.ContentNode, kind core.NodeKind) (*core.ContentNode, error) {
	var created *core.ContentNode
	err := r.update(ctx, func(rf *recordFile) error {
		node := core.ContentNode{GUID: core.NewGUID(), ParentGUID: parentGUID, Kind: kind}
		lines, err := core.InsertNode(rf.Lines, rf.GUID, node, after)
		if err != nil {
			return err
		}
		rf.Lines = lines
		created = &node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetSegments replaces the content of one node and rewrites the file.
func (r *Record) SetSegments(ctx context.Context, nodeGUID string, segments []core.Segment) error {
	return r.update(ctx, func(rf *recordFile) error {
		for i := range rf.Lines {
			if rf.Lines[i].GUID == nodeGUID {
				rf.Lines[i].Segments = append([]core.Segment(nil), segments...)
				return nil
			}
		}
		return fmt.Errorf("node %s not found in %s", nodeGUID, r.guid)
	})
}

// update runs a read-modify-write cycle under the workspace lock.
func (r *Record) update(ctx context.Context, fn func(*recordFile) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.ws.mu.Lock()
	defer r.ws.mu.Unlock()

	rf, err := r.ws.readRecord(r.path)
	if err != nil {
		return err
	}
	if rf.GUID != r.guid {
		return fmt.Errorf("%s now holds record %s: %w", r.path, rf.GUID, core.ErrRecordNotFound)
	}
	if err := fn(rf); err != nil {
		return err
	}
	return r.ws.writeRecord(r.path, rf)
}

// slugify turns a record name into a file name stem.
func slugify(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

var (
	_ core.Collection = (*Collection)(nil)
	_ core.Record     = (*Record)(nil)
)
