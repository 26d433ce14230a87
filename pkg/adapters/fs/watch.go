package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/webclip/pkg/core"
)

// Watch reports record files changed outside webclip until ctx ends, then
// closes the channel. The watcher is supervised and restarted on failure.
func (w *Workspace) Watch(ctx context.Context) (<-chan core.Event, error) {
	events := make(chan core.Event, 16)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(w, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("fs-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		w.config.Logger.Warn("watcher shutdown", "error", err)
	}))

	return events, nil
}

// recursiveAdd watches the workspace and every non-system directory below it.
func (w *Workspace) recursiveAdd(watcher *fsnotify.Watcher) error {
	return w.addTree(watcher, w.Path)
}

func (w *Workspace) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.Path && w.isSystemName(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// reconcile rescans the workspace and diffs it against the index, yielding
// the events missed while watching was paused.
func (w *Workspace) reconcile(ctx context.Context) ([]core.Event, error) {
	before := make(map[string]time.Time)
	w.cache.Range(func(relPath string, e *indexEntry) bool {
		before[relPath] = e.LastModified
		return true
	})

	entries, err := w.scan(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	var events []core.Event
	for _, e := range entries {
		prev, ok := before[e.Path]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, Path: e.Path, Timestamp: now})
		case !prev.Equal(e.LastModified):
			events = append(events, core.Event{Type: core.EventModify, Path: e.Path, Timestamp: now})
		}
		delete(before, e.Path)
	}
	for relPath := range before {
		events = append(events, core.Event{Type: core.EventDelete, Path: relPath, Timestamp: now})
	}

	w.stateMu.Lock()
	t := time.Now()
	w.lastReconcile = &t
	w.stateMu.Unlock()
	return events, nil
}

func (w *Workspace) setWatcherActive(active bool) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	w.watcherActive = active
}
