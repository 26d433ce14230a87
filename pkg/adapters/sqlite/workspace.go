// Package sqlite keeps webclip records in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aretw0/introspection"

	"github.com/aretw0/webclip/pkg/core"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS records (
	guid       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	collection TEXT REFERENCES collections(name) ON DELETE SET NULL
);
CREATE TABLE IF NOT EXISTS lines (
	guid        TEXT PRIMARY KEY,
	record_guid TEXT NOT NULL REFERENCES records(guid) ON DELETE CASCADE,
	parent_guid TEXT NOT NULL,
	kind        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	segments    TEXT NOT NULL DEFAULT '[]',
	search_text TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS lines_record ON lines(record_guid, position);
`

// Workspace implements core.Workspace over a SQLite database.
type Workspace struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger

	// mu serializes outline rewrites, which renumber positions.
	mu sync.Mutex
}

// Open opens (creating if needed) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway workspace.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection and SQLite has
	// a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	for _, stmt := range []string{"PRAGMA foreign_keys = ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return &Workspace{db: db, dsn: dsn, logger: logger}, nil
}

// Close releases the database.
func (w *Workspace) Close() error {
	return w.db.Close()
}

// AddCollection creates a collection if it does not exist.
func (w *Workspace) AddCollection(ctx context.Context, name string) error {
	_, err := w.db.ExecContext(ctx, `INSERT OR IGNORE INTO collections(name) VALUES (?)`, name)
	return err
}

// AddRecord inserts a record with a known guid. An empty collection leaves it
// outside any collection.
func (w *Workspace) AddRecord(ctx context.Context, collection, guid, name string) error {
	var col sql.NullString
	if collection != "" {
		if err := w.AddCollection(ctx, collection); err != nil {
			return err
		}
		col = sql.NullString{String: collection, Valid: true}
	}
	_, err := w.db.ExecContext(ctx, `INSERT INTO records(guid, name, collection) VALUES (?, ?, ?)`, guid, name, col)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (w *Workspace) Collections(ctx context.Context) ([]core.Collection, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []core.Collection
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, &Collection{ws: w, name: name})
	}
	return out, rows.Err()
}

func (w *Workspace) Records(ctx context.Context) ([]core.Record, error) {
	return w.queryRecords(ctx, `SELECT guid, name FROM records ORDER BY rowid`)
}

func (w *Workspace) Record(ctx context.Context, guid string) (core.Record, error) {
	var name string
	err := w.db.QueryRowContext(ctx, `SELECT name FROM records WHERE guid = ?`, guid).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &Record{ws: w, guid: guid, name: name}, nil
}

// Search uses LIKE, which is case-insensitive for ASCII.
func (w *Workspace) Search(ctx context.Context, query string, limit int) (core.SearchResult, error) {
	pattern := "%" + escapeLike(query) + "%"

	recs, err := w.queryRecords(ctx, `SELECT guid, name FROM records WHERE name LIKE ? ESCAPE '\' ORDER BY rowid LIMIT ?`, pattern, limit)
	if err != nil {
		return core.SearchResult{}, err
	}
	lines, err := w.queryLines(ctx, `SELECT guid, parent_guid, kind, segments FROM lines WHERE search_text LIKE ? ESCAPE '\' ORDER BY record_guid, position LIMIT ?`, pattern, limit)
	if err != nil {
		return core.SearchResult{}, err
	}
	return core.SearchResult{Records: recs, Lines: lines}, nil
}

func (w *Workspace) queryRecords(ctx context.Context, query string, args ...any) ([]core.Record, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		r := &Record{ws: w}
		if err := rows.Scan(&r.guid, &r.name); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (w *Workspace) queryLines(ctx context.Context, query string, args ...any) ([]core.ContentNode, error) {
	return scanLines(ctx, w.db, query, args...)
}

func scanLines(ctx context.Context, q queryer, query string, args ...any) ([]core.ContentNode, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []core.ContentNode
	for rows.Next() {
		var n core.ContentNode
		var kind, segs string
		if err := rows.Scan(&n.GUID, &n.ParentGUID, &kind, &segs); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		n.Kind = core.NodeKind(kind)
		if err := json.Unmarshal([]byte(segs), &n.Segments); err != nil {
			return nil, fmt.Errorf("corrupt segments for %s: %w", n.GUID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// WorkspaceState exposes internal state for observability.
type WorkspaceState struct {
	DSN         string `json:"dsn"`
	Records     int    `json:"records"`
	Lines       int    `json:"lines"`
	OpenConns   int    `json:"open_conns"`
	Collections int    `json:"collections"`
}

// State implements introspection.Introspectable.
func (w *Workspace) State() any {
	st := WorkspaceState{DSN: w.dsn, OpenConns: w.db.Stats().OpenConnections}
	ctx := context.Background()
	_ = w.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM records),
		(SELECT COUNT(*) FROM lines),
		(SELECT COUNT(*) FROM collections)`).Scan(&st.Records, &st.Lines, &st.Collections)
	return st
}

// ComponentType implements introspection.Component.
func (w *Workspace) ComponentType() string {
	return "sqlite-workspace"
}

var (
	_ core.Workspace               = (*Workspace)(nil)
	_ introspection.Introspectable = (*Workspace)(nil)
	_ introspection.Component      = (*Workspace)(nil)
)
