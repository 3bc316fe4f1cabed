package refdata

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SnapshotWatcher watches the snapshot database file and invalidates the
// cache when another process rewrites it (e.g. an out-of-band refresh
// job). Watching the parent directory rather than the file itself survives
// rename-based replacement.
type SnapshotWatcher struct {
	path    string
	cache   *Cache
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSnapshotWatcher creates a watcher for the snapshot file at path.
func NewSnapshotWatcher(path string, cache *Cache, logger *zap.Logger) *SnapshotWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotWatcher{
		path:   filepath.Clean(path),
		cache:  cache,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins watching. Call Stop to clean up.
func (w *SnapshotWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	go w.loop()
	w.logger.Info("watching snapshot file for external changes", zap.String("path", w.path))
	return nil
}

// Stop stops watching and releases the underlying watcher.
func (w *SnapshotWatcher) Stop() {
	close(w.done)
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *SnapshotWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Info("snapshot file changed externally, invalidating cache",
				zap.String("op", event.Op.String()))
			w.cache.Invalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}
