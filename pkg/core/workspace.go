package core

import "context"

// Workspace is the host's record index. Adhering to this interface keeps the
// capture logic independent of where records live (files, SQL, memory).
type Workspace interface {
	// Collections lists the workspace collections.
	Collections(ctx context.Context) ([]Collection, error)

	// Records lists every record across collections.
	Records(ctx context.Context) ([]Record, error)

	// Record looks a record up by guid. Missing records yield ErrRecordNotFound.
	Record(ctx context.Context, guid string) (Record, error)

	// Search runs a full-text query over records and lines.
	Search(ctx context.Context, query string, limit int) (SearchResult, error)
}

// SearchResult holds the matches of Workspace.Search.
type SearchResult struct {
	Records []Record
	Lines   []ContentNode
}

// Collection groups records under a name (e.g. "Journal").
type Collection interface {
	Name() string
	Records(ctx context.Context) ([]Record, error)
	// CreateRecord creates an empty record and returns its guid.
	CreateRecord(ctx context.Context, name string) (string, error)
}

// Record is a page: the root of a tree of content nodes.
type Record interface {
	GUID() string
	Name() string

	// Nodes enumerates the record's nodes in document order.
	Nodes(ctx context.Context) ([]ContentNode, error)

	// CreateNode inserts an empty node under parentGUID (the record guid for
	// root level). With after == nil it becomes the first child, otherwise it
	// follows after. A nil node with a nil error means the host declined.
	CreateNode(ctx context.Context, parentGUID string, after *ContentNode, kind NodeKind) (*ContentNode, error)

	// SetSegments replaces the inline content of a node.
	SetSegments(ctx context.Context, nodeGUID string, segments []Segment) error
}

// Panel exposes the record currently open in the host UI.
type Panel interface {
	// ActiveRecord returns the open record, or nil when nothing is open.
	ActiveRecord(ctx context.Context) (Record, error)
}

// Notifier shows a short confirmation to the user.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Versioned is implemented by workspaces that can record a checkpoint (e.g. a
// git commit) after a mutation. The reason is read from ChangeReasonKey.
type Versioned interface {
	Checkpoint(ctx context.Context) error
}

// Watchable is implemented by workspaces that report external changes.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

type contextKey string

// ChangeReasonKey is the context key for the change reason (commit message)
// used by Versioned.Checkpoint.
const ChangeReasonKey contextKey = "change_reason"
