package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/webclip/pkg/adapters/fs"
	"github.com/aretw0/webclip/pkg/adapters/memory"
	"github.com/aretw0/webclip/pkg/adapters/sqlite"
	"github.com/aretw0/webclip/pkg/core"
	"github.com/aretw0/webclip/pkg/git"
)

// OpenWorkspace opens the workspace selected by the options. The uri is
// adapter specific: a vault directory for "fs", a database path or DSN for
// "sqlite", ignored for "memory".
//
// The returned closer releases adapter resources; it is never nil.
func OpenWorkspace(ctx context.Context, uri string, opts ...Option) (core.Workspace, io.Closer, error) {
	return openWorkspace(ctx, uri, newOptions(opts))
}

func openWorkspace(ctx context.Context, uri string, o *options) (core.Workspace, io.Closer, error) {
	if o.workspace != nil {
		return o.workspace, nopCloser{}, nil
	}

	switch o.adapter {
	case AdapterFS, "":
		ws, err := initFS(ctx, uri, o)
		if err != nil {
			return nil, nil, err
		}
		return ws, nopCloser{}, nil

	case AdapterSQLite:
		if uri != ":memory:" && !o.autoInit {
			if _, err := os.Stat(uri); err != nil {
				return nil, nil, fmt.Errorf("database not found: %s", uri)
			}
		}
		if dir := filepath.Dir(uri); uri != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, err
			}
		}
		ws, err := sqlite.Open(ctx, uri, o.logger)
		if err != nil {
			return nil, nil, err
		}
		return ws, ws, nil

	case AdapterMemory:
		return memory.New(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter: %s", o.adapter)
}

// initFS resolves versioning and initializes a filesystem vault.
func initFS(ctx context.Context, path string, o *options) (*fs.Workspace, error) {
	systemDir := o.systemDir
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}

	var gitless bool
	if o.gitless != nil {
		gitless = *o.gitless
	} else {
		gitless = detectGitless(path, systemDir, o.autoInit)
		if gitless {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}

	ws := fs.NewWorkspace(fs.Config{
		Path:      path,
		AutoInit:  o.autoInit,
		Gitless:   gitless,
		MustExist: o.mustExist || !o.autoInit,
		Logger:    o.logger,
		SystemDir: systemDir,
	})
	if err := ws.Initialize(ctx); err != nil {
		return nil, err
	}
	return ws, nil
}

// detectGitless decides versioning when it was not configured. Without a git
// binary nothing is versioned. An existing .git means versioned; a fresh vault
// created by AutoInit is versioned unless it already has a system directory.
func detectGitless(path, systemDir string, autoInit bool) bool {
	if !git.IsInstalled() {
		return true
	}
	if hasFile(path, ".git") {
		return false
	}
	if autoInit {
		return hasFile(path, systemDir)
	}
	return true
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
