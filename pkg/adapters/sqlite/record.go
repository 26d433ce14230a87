package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aretw0/webclip/pkg/core"
)

// Collection is a row of the collections table.
type Collection struct {
	ws   *Workspace
	name string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Records(ctx context.Context) ([]core.Record, error) {
	return c.ws.queryRecords(ctx, `SELECT guid, name FROM records WHERE collection = ? ORDER BY rowid`, c.name)
}

func (c *Collection) CreateRecord(ctx context.Context, name string) (string, error) {
	guid := core.RecordGUID(name)
	if err := c.ws.AddRecord(ctx, c.name, guid, name); err != nil {
		return "", err
	}
	c.ws.logger.Debug("record created", "guid", guid, "collection", c.name)
	return guid, nil
}

// Record is a row of the records table with its lines.
type Record struct {
	ws   *Workspace
	guid string
	name string
}

func (r *Record) GUID() string { return r.guid }
func (r *Record) Name() string { return r.name }

const selectLines = `SELECT guid, parent_guid, kind, segments FROM lines WHERE record_guid = ? ORDER BY position`

func (r *Record) Nodes(ctx context.Context) ([]core.ContentNode, error) {
	return r.ws.queryLines(ctx, selectLines, r.guid)
}

// CreateNode inserts a line and renumbers the record's positions in one
// transaction.
func (r *Record) CreateNode(ctx context.Context, parentGUID string, after *core.ContentNode, kind core.NodeKind) (*core.ContentNode, error) {
	r.ws.mu.Lock()
	defer r.ws.mu.Unlock()

	tx, err := r.ws.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE guid = ?`, r.guid).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, core.ErrRecordNotFound
	}

	nodes, err := scanLines(ctx, tx, selectLines, r.guid)
	if err != nil {
		return nil, err
	}
	node := core.ContentNode{GUID: core.NewGUID(), ParentGUID: parentGUID, Kind: kind}
	nodes, err = core.InsertNode(nodes, r.guid, node, after)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lines(guid, record_guid, parent_guid, kind, position) VALUES (?, ?, ?, ?, -1)`,
		node.GUID, r.guid, node.ParentGUID, string(node.Kind)); err != nil {
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}
	if err := renumber(ctx, tx, nodes); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &node, nil
}

func renumber(ctx context.Context, tx *sql.Tx, nodes []core.ContentNode) error {
	stmt, err := tx.PrepareContext(ctx, `UPDATE lines SET position = ? WHERE guid = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, n := range nodes {
		if _, err := stmt.ExecContext(ctx, i, n.GUID); err != nil {
			return fmt.Errorf("failed to renumber: %w", err)
		}
	}
	return nil
}

func (r *Record) SetSegments(ctx context.Context, nodeGUID string, segments []core.Segment) error {
	if segments == nil {
		segments = []core.Segment{}
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	n := core.ContentNode{Segments: segments}
	res, err := r.ws.db.ExecContext(ctx,
		`UPDATE lines SET segments = ?, search_text = ? WHERE guid = ? AND record_guid = ?`,
		string(data), n.SearchText(), nodeGUID, r.guid)
	if err != nil {
		return fmt.Errorf("failed to update line: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("node %s not found in %s", nodeGUID, r.guid)
	}
	return nil
}

var (
	_ core.Collection = (*Collection)(nil)
	_ core.Record     = (*Record)(nil)
)
