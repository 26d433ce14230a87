// Package fs stores webclip records as markdown files in a directory tree,
// optionally versioned with git.
//
// Each top-level directory is a collection; each markdown file is a record
// whose outline is kept in YAML frontmatter and rendered below it.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/webclip/pkg/core"
	"github.com/aretw0/webclip/pkg/git"
)

// Defaults applied by NewWorkspace.
const (
	DefaultSystemDir = ".webclip"
	DefaultPattern   = "**/*.md"
)

// Config holds the configuration for the filesystem workspace.
type Config struct {
	Path      string
	AutoInit  bool
	Gitless   bool
	MustExist bool
	Logger    *slog.Logger
	SystemDir string // e.g. ".webclip"
	Pattern   string // doublestar glob selecting record files
}

// Workspace implements core.Workspace on top of a directory.
type Workspace struct {
	Path   string
	git    *git.Client
	cache  *cache
	config Config

	// mu serializes read-modify-write cycles on record files.
	mu sync.Mutex

	stateMu       sync.RWMutex
	watcherActive bool
	lastCommit    *time.Time
	lastReconcile *time.Time
}

// NewWorkspace creates a filesystem-backed workspace. Call Initialize before use.
func NewWorkspace(config Config) *Workspace {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		Path:   config.Path,
		git:    git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
	}
}

// Initialize performs the necessary setup for the workspace (mkdir, git init).
func (w *Workspace) Initialize(ctx context.Context) error {
	if w.config.MustExist {
		info, err := os.Stat(w.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", w.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", w.Path)
		}
	} else if err := os.MkdirAll(w.Path, 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	if w.config.Gitless {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !w.git.IsRepo(ctx) {
		if !w.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", w.Path)
		}
		if err := w.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := w.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		if err := w.git.Add(ctx, ".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		msg := git.FormatChangeReason(git.CommitTypeChore, "", fmt.Sprintf("configure %s ignore", w.config.SystemDir), "")
		if err := w.git.Commit(ctx, msg); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system directory and the git lock out of version control.
func (w *Workspace) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(w.Path, ".gitignore")
	entries := []string{w.config.SystemDir + "/", w.config.SystemDir + ".lock"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}
	var missing []string
	for _, e := range entries {
		if !present[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Collections lists the top-level directories, sorted by name.
func (w *Workspace) Collections(ctx context.Context) ([]core.Collection, error) {
	entries, err := os.ReadDir(w.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	var out []core.Collection
	for _, e := range entries {
		if !e.IsDir() || w.isSystemName(e.Name()) {
			continue
		}
		out = append(out, &Collection{ws: w, name: e.Name()})
	}
	return out, nil
}

// Records lists every record in the workspace in path order.
func (w *Workspace) Records(ctx context.Context) ([]core.Record, error) {
	entries, err := w.scan(ctx)
	if err != nil {
		return nil, err
	}
	return w.handles(entries), nil
}

// Record looks a record up by guid.
func (w *Workspace) Record(ctx context.Context, guid string) (core.Record, error) {
	entry, err := w.lookup(ctx, guid)
	if err != nil {
		return nil, err
	}
	return w.handle(entry), nil
}

// Search matches record names and line text case-insensitively.
func (w *Workspace) Search(ctx context.Context, query string, limit int) (core.SearchResult, error) {
	entries, err := w.scan(ctx)
	if err != nil {
		return core.SearchResult{}, err
	}
	needle := strings.ToLower(query)
	var res core.SearchResult
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(res.Records) < limit && strings.Contains(strings.ToLower(e.Name), needle) {
			res.Records = append(res.Records, w.handle(e))
		}
		if len(res.Lines) >= limit {
			continue
		}
		rf, err := w.readRecord(e.Path)
		if err != nil {
			w.config.Logger.Debug("skipping unreadable record", "path", e.Path, "error", err)
			continue
		}
		for _, n := range rf.Lines {
			if len(res.Lines) < limit && strings.Contains(strings.ToLower(n.SearchText()), needle) {
				res.Lines = append(res.Lines, n)
			}
		}
	}
	return res, nil
}

// Checkpoint commits pending changes with the reason stored under
// core.ChangeReasonKey. It is a no-op in gitless mode or on a clean tree.
func (w *Workspace) Checkpoint(ctx context.Context) error {
	if w.config.Gitless {
		return nil
	}
	unlock, err := w.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	changed, err := w.git.HasChanges(ctx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	msg := "update records"
	if reason, ok := ctx.Value(core.ChangeReasonKey).(string); ok && reason != "" {
		msg = reason
	}
	if err := w.git.Add(ctx, "."); err != nil {
		return err
	}
	if err := w.git.Commit(ctx, git.AppendFooter(msg)); err != nil {
		return err
	}

	now := time.Now()
	w.stateMu.Lock()
	w.lastCommit = &now
	w.stateMu.Unlock()
	return nil
}

func (w *Workspace) isSystemName(name string) bool {
	return name == ".git" || name == w.config.SystemDir || strings.HasPrefix(name, ".")
}

// ignored reports whether a slash-separated relative path is outside the record set.
func (w *Workspace) ignored(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if w.isSystemName(part) {
			return true
		}
	}
	return strings.HasPrefix(filepath.Base(relPath), TempFilePrefix)
}

// scan walks the record files, refreshing the index for changed files.
func (w *Workspace) scan(ctx context.Context) ([]*indexEntry, error) {
	if err := w.cache.Load(); err != nil {
		w.config.Logger.Warn("failed to load index", "error", err)
	}

	matches, err := doublestar.Glob(os.DirFS(w.Path), w.config.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	sort.Strings(matches)

	seen := make(map[string]bool, len(matches))
	entries := make([]*indexEntry, 0, len(matches))
	for _, relPath := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.ignored(relPath) {
			continue
		}
		info, err := os.Stat(filepath.Join(w.Path, filepath.FromSlash(relPath)))
		if err != nil {
			continue
		}
		seen[relPath] = true

		if entry, hit := w.cache.Get(relPath, info.ModTime()); hit {
			entries = append(entries, entry)
			continue
		}

		rf, err := w.readRecord(relPath)
		if err != nil {
			w.config.Logger.Debug("skipping unparseable record", "path", relPath, "error", err)
			continue
		}
		entry := &indexEntry{
			GUID:         rf.GUID,
			Name:         rf.Name,
			Path:         relPath,
			Collection:   collectionOf(relPath),
			LastModified: info.ModTime(),
		}
		w.cache.Set(relPath, entry)
		entries = append(entries, entry)
	}

	w.cache.Prune(seen)
	if err := w.cache.Save(); err != nil {
		w.config.Logger.Warn("failed to save index", "error", err)
	}
	return entries, nil
}

func (w *Workspace) lookup(ctx context.Context, guid string) (*indexEntry, error) {
	entries, err := w.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.GUID == guid {
			return e, nil
		}
	}
	return nil, core.ErrRecordNotFound
}

func (w *Workspace) handle(e *indexEntry) *Record {
	return &Record{ws: w, guid: e.GUID, name: e.Name, path: e.Path}
}

func (w *Workspace) handles(entries []*indexEntry) []core.Record {
	out := make([]core.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, w.handle(e))
	}
	return out
}

func (w *Workspace) readRecord(relPath string) (*recordFile, error) {
	f, err := os.Open(filepath.Join(w.Path, filepath.FromSlash(relPath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ErrRecordNotFound
		}
		return nil, err
	}
	defer f.Close()
	return parseRecord(f, relPath)
}

func (w *Workspace) writeRecord(relPath string, rf *recordFile) error {
	data, err := serializeRecord(rf)
	if err != nil {
		return err
	}
	full := filepath.Join(w.Path, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return err
	}
	w.cache.Delete(relPath)
	return nil
}

// collectionOf returns the top-level directory of relPath, or "" for root files.
func collectionOf(relPath string) string {
	if i := strings.Index(relPath, "/"); i >= 0 {
		return relPath[:i]
	}
	return ""
}

var (
	_ core.Workspace = (*Workspace)(nil)
	_ core.Versioned = (*Workspace)(nil)
	_ core.Watchable = (*Workspace)(nil)
)
