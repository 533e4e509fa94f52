package wages

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// TableWatcher reloads a StaticProvider's table when its file changes
type TableWatcher struct {
	path     string
	provider *StaticProvider
	watcher  *fsnotify.Watcher
	log      *logrus.Logger
}

// NewTableWatcher watches the directory holding path, so that editors which
// save through a rename are still picked up.
func NewTableWatcher(path string, provider *StaticProvider, log *logrus.Logger) (*TableWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wage table path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &TableWatcher{path: abs, provider: provider, watcher: w, log: log}, nil
}

// Run processes file events until ctx is done or the watcher is closed
func (w *TableWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.reload(); err != nil {
				w.log.WithError(err).Warn("Keeping previous wage table")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("Wage table watcher error")
		}
	}
}

// Close stops watching
func (w *TableWatcher) Close() error {
	return w.watcher.Close()
}

func (w *TableWatcher) reload() error {
	t, err := LoadTableFile(w.path)
	if err != nil {
		return err
	}
	w.provider.Replace(t)
	w.log.Infof("Reloaded wage table %s (%d states)", t.Name, len(t.States))
	return nil
}
