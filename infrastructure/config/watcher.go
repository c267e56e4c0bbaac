package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/logging"
)

// Watcher reloads a transition table file whenever it changes and hands the
// new table to a callback. Swapping the engine over to the new table is the
// caller's concern.
type Watcher struct {
	path     string
	loader   *Loader
	watcher  *fsnotify.Watcher
	onReload func(*transition.Table)
	done     chan struct{}
}

// NewWatcher creates a watcher for the given table file. The callback is
// invoked with every successfully loaded table; load failures are logged
// and the previous table stays in effect.
func NewWatcher(path string, loader *Loader, onReload func(*transition.Table)) (*Watcher, error) {
	if loader == nil {
		loader = NewLoader()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the file: editors and config
	// managers replace files via rename, which drops a direct watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		loader:   loader,
		watcher:  fw,
		onReload: onReload,
		done:     make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// run processes filesystem events until Close is called.
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("config-watcher")).
				Add(logging.ErrorField(err)).
				Msg("file watcher error")
		}
	}
}

// reload loads the table and invokes the callback on success.
func (w *Watcher) reload() {
	table, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config-watcher")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("transition table reload failed, keeping previous table")
		return
	}

	logging.Info().
		Add(logging.Component("config-watcher")).
		Add(logging.Str("path", w.path)).
		Add(logging.Count(table.Len())).
		Msg("transition table reloaded")

	if w.onReload != nil {
		w.onReload(table)
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
