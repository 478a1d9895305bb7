// Package loader keeps the index in step with the XML sources on disk: a full
// sync at startup and an fsnotify watcher afterwards.
package loader

import (
	"context"
	"log/slog"
	"sort"

	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/storage"
)

// Target is where source files get loaded. *service.Service implements it.
type Target interface {
	Store() storage.Provider
	SourceChecksums(ctx context.Context) (map[string]string, error)
	LoadSource(ctx context.Context, path, kind string) error
	ForgetSource(ctx context.Context, path string) error
}

var _ Target = (*service.Service)(nil)

// change is one pending load or removal. kind is a service.Change* constant.
type change struct {
	path string
	kind string
}

// plan compares the sources on disk with the recorded checksums. Loads come
// first in path order, then removals of sources no longer on disk.
func plan(ctx context.Context, t Target) ([]change, error) {
	metas, err := t.Store().List("")
	if err != nil {
		return nil, err
	}
	recorded, err := t.SourceChecksums(ctx)
	if err != nil {
		return nil, err
	}

	var out []change
	onDisk := make(map[string]bool, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = true
		prev, known := recorded[m.Path]
		switch {
		case !known:
			out = append(out, change{m.Path, service.ChangeCreated})
		case prev != m.Checksum:
			out = append(out, change{m.Path, service.ChangeUpdated})
		}
	}

	var stale []string
	for p := range recorded {
		if !onDisk[p] {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	for _, p := range stale {
		out = append(out, change{p, service.ChangeDeleted})
	}
	return out, nil
}

// apply runs each change against t. Failures are logged and skipped; emit,
// when set, sees only the changes that went through.
func apply(ctx context.Context, t Target, logger *slog.Logger, changes []change, emit EventCallback) {
	for _, c := range changes {
		var err error
		if c.kind == service.ChangeDeleted {
			err = t.ForgetSource(ctx, c.path)
		} else {
			err = t.LoadSource(ctx, c.path, c.kind)
		}
		if err != nil {
			logger.Warn("loader: apply failed",
				slog.String("path", c.path),
				slog.String("kind", c.kind),
				slog.String("error", err.Error()))
			continue
		}
		logger.Debug("loader: applied", slog.String("path", c.path), slog.String("kind", c.kind))
		if emit != nil {
			emit(c.kind, c.path)
		}
	}
}

// Sync brings the index up to date with the sources directory. Files load
// in path order, so a later file overrides values set by an earlier one under
// the Overwrite policy. A file that fails to load is logged and left out; only
// listing or checksum lookup failures are returned.
func Sync(ctx context.Context, t Target, logger *slog.Logger) error {
	changes, err := plan(ctx, t)
	if err != nil {
		return err
	}
	apply(ctx, t, logger, changes, nil)
	return nil
}
