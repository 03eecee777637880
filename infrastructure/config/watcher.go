package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
)

// Watcher holds the active configuration and swaps it when the file
// changes on disk. Readers get a point-in-time snapshot; no consistency
// is guaranteed for requests already in flight when a reload lands.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu  sync.RWMutex
	cfg Config
}

// NewWatcher loads the file once and starts watching it for changes.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save
	// and a watch on the old inode would go stale.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		done:    make(chan struct{}),
		cfg:     cfg,
	}
	go w.run()
	return w, nil
}

// Current returns a snapshot of the active configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Policy returns the guard policy of the active configuration. Callers
// capture it once per request.
func (w *Watcher) Policy() query.Policy {
	return w.Current().Policy()
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Add(logging.ErrorField(err)).Msg("config watcher error")
		}
	}
}

// reload re-reads the file and swaps the snapshot. A file that fails to
// load keeps the previous configuration active.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("config reload failed, keeping previous configuration")
		return
	}

	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()

	logging.Info().
		Add(logging.AllowWrites(cfg.AllowWrites)).
		Msg("configuration reloaded")
}
