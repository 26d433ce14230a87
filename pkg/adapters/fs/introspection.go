package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// WorkspaceState exposes internal state for observability.
type WorkspaceState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Pattern       string     `json:"pattern"`
	IndexSize     int        `json:"index_size"`
	Gitless       bool       `json:"gitless"`
	WatcherActive bool       `json:"watcher_active"`
	LastCommit    *time.Time `json:"last_commit,omitempty"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
}

// State implements introspection.Introspectable.
func (w *Workspace) State() any {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()

	return WorkspaceState{
		Path:          w.Path,
		SystemDir:     w.config.SystemDir,
		Pattern:       w.config.Pattern,
		IndexSize:     w.cache.Len(),
		Gitless:       w.config.Gitless,
		WatcherActive: w.watcherActive,
		LastCommit:    w.lastCommit,
		LastReconcile: w.lastReconcile,
	}
}

// ComponentType implements introspection.Component.
func (w *Workspace) ComponentType() string {
	return "workspace"
}

var (
	_ introspection.Introspectable = (*Workspace)(nil)
	_ introspection.Component      = (*Workspace)(nil)
)
