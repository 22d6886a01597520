package input

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchHotplug watches dir for device nodes matching pattern (a filepath.Match
// pattern on the base name, e.g. "js*") and calls onChange whenever one is
// created or removed. It blocks until ctx is canceled.
func WatchHotplug(ctx context.Context, dir, pattern string, onChange func(), logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create hotplug watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("hotplug watcher started", "dir", dir, "pattern", pattern)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if match, _ := filepath.Match(pattern, filepath.Base(ev.Name)); !match {
				continue
			}
			logger.Debug("hotplug event", "path", ev.Name, "op", ev.Op.String())
			onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("hotplug watcher error", "error", err)
		}
	}
}
