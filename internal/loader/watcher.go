package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// settleDelay is how long the watcher waits after a rename before it rescans
// the sources directory.
const settleDelay = 200 * time.Millisecond

type watcher struct {
	t      Target
	root   string
	fw     *fsnotify.Watcher
	logger *slog.Logger
	emit   EventCallback
	settle *time.Timer
}

// Watch loads, reloads and forgets sources as files under the sources root
// change, until ctx is cancelled. cb, if non-nil, is told about every change
// that reached the index.
//
// Directories created at runtime are watched too. A rename only reports the
// old path, so it schedules a rescan that picks up the new one.
func Watch(ctx context.Context, t Target, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w := &watcher{t: t, root: t.Store().Root(), fw: fw, logger: logger, emit: cb}
	if err := w.watchTree(w.root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", w.root))
	defer logger.Info("watcher: stopped")
	return w.run(ctx)
}

func (w *watcher) run(ctx context.Context) error {
	var rescan <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if w.settle != nil {
				w.settle.Stop()
			}
			return nil

		case <-rescan:
			rescan = nil
			w.rescan(ctx)

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.handle(ctx, ev) {
				rescan = w.schedule()
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handle applies one event and reports whether a rescan is needed.
func (w *watcher) handle(ctx context.Context, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.dirCreated(ctx, ev.Name)
			return false
		}
	}

	rel, ok := w.sourceName(ev.Name)
	if !ok {
		return false
	}

	var c change
	switch {
	case ev.Has(fsnotify.Create):
		c = change{rel, service.ChangeCreated}
	case ev.Has(fsnotify.Write):
		c = change{rel, service.ChangeUpdated}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		c = change{rel, service.ChangeDeleted}
	default:
		return false
	}
	apply(ctx, w.t, w.logger, []change{c}, w.emit)
	return ev.Has(fsnotify.Rename)
}

// dirCreated starts watching a new directory and loads whatever was written
// into it before the watch took effect.
func (w *watcher) dirCreated(ctx context.Context, dir string) {
	if err := w.watchTree(dir); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	w.rescan(ctx)
}

func (w *watcher) rescan(ctx context.Context) {
	changes, err := plan(ctx, w.t)
	if err != nil {
		w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		return
	}
	apply(ctx, w.t, w.logger, changes, w.emit)
}

func (w *watcher) schedule() <-chan time.Time {
	if w.settle == nil {
		w.settle = time.NewTimer(settleDelay)
	} else {
		w.settle.Reset(settleDelay)
	}
	return w.settle.C
}

// sourceName maps an absolute event path to the source path the index knows
// it by. Non-XML files and anything inside a hidden directory are ignored.
func (w *watcher) sourceName(abs string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(abs), storage.Ext) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, dir := range strings.Split(path.Dir(rel), "/") {
		if dir != "." && strings.HasPrefix(dir, ".") {
			return "", false
		}
	}
	return rel, true
}

// watchTree adds dir and every non-hidden directory below it.
func (w *watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}
