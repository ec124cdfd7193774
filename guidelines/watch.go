package guidelines

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/mcp-toolbox/middleware"
)

// Watch reloads svc from dir whenever a *.json file in dir changes. It
// blocks until ctx is done. A failed reload keeps the previous guidelines.
func Watch(ctx context.Context, svc *Service, dir string, logger middleware.Logger) error {
	if logger == nil {
		logger = middleware.NopLogger{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("guidelines: watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("guidelines: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := svc.Reload(dir); err != nil {
				logger.Warn("guidelines reload failed",
					middleware.F("path", ev.Name),
					middleware.F("error", err.Error()),
				)
				continue
			}
			logger.Info("guidelines reloaded",
				middleware.F("path", ev.Name),
				middleware.F("count", len(svc.All())),
			)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("guidelines watcher error", middleware.F("error", err.Error()))
		}
	}
}
