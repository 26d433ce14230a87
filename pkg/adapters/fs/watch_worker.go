package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/webclip/pkg/core"
)

// debounceInterval is the quiet time before a file event is delivered.
const debounceInterval = 50 * time.Millisecond

type watchWorker struct {
	*worker.BaseWorker
	ws        *Workspace
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(ws *Workspace, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		ws:         ws,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.ws.recursiveAdd(watcher); err != nil {
		_ = watcher.Close()
		return err
	}
	// Git's index.lock tells us when to pause.
	_ = watcher.Add(filepath.Join(w.ws.Path, ".git"))

	w.watcher = watcher
	w.debouncer = newDebouncer(debounceInterval)
	w.ws.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"path":              w.ws.Path,
		}
	})
}

// gitLockEvent reports whether event is .git/index.lock and, if so, whether
// git now holds the lock.
func gitLockEvent(event fsnotify.Event) (isLock, locked bool) {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false, false
	}
	return true, event.Has(fsnotify.Create)
}

// reconcileAfterGitUnlock replays changes git made while events were paused.
func (w *watchWorker) reconcileAfterGitUnlock(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		events, err := w.ws.reconcile(ctx)
		if err != nil {
			w.ws.config.Logger.Error("reconcile failed", "error", err)
			return err
		}
		for _, e := range events {
			w.sendEvent(ctx, e)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.ws.config.Logger.Error("reconcile panic", "error", err)
	}))
}

// processFilesystemEvent filters and maps one fsnotify event.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.ws.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	// New directories need their own watch.
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if err := w.ws.addTree(w.watcher, event.Name); err != nil {
			w.ws.config.Logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
		}
		return false
	}

	relPath, ok := w.ws.recordPath(event.Name)
	if !ok {
		return false
	}
	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	w.sendEvent(ctx, core.Event{
		Type:      eType,
		Path:      relPath,
		Timestamp: time.Now().Unix(),
	})
	return true
}

// sendEvent enqueues an event via the debouncer; a closed channel during
// shutdown is tolerated.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			// Stacks only at debug level.
			if w.ws.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.ws.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.ws.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.ws.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	// Drain timers before the owner closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	gitLocked := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			if isLock, locked := gitLockEvent(event); isLock {
				if locked {
					w.ws.config.Logger.Debug("git operations detected, pausing watcher")
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					w.ws.config.Logger.Debug("git operations finished, reconciling")
					if gitLocked {
						w.reconcileAfterGitUnlock(ctx)
					}
				} else {
					continue
				}
				gitLocked = locked
				continue
			}
			if gitLocked {
				continue
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.ws.config.Logger.Error("fsnotify error", "error", wErr)
		}
	}
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}

// recordPath maps an absolute event path to a record's relative path, or
// reports false when the file is not a record.
func (ws *Workspace) recordPath(name string) (string, bool) {
	rel, err := filepath.Rel(ws.Path, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if ws.ignored(rel) {
		return "", false
	}
	match, err := doublestar.Match(ws.config.Pattern, rel)
	return rel, err == nil && match
}
