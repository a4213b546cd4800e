package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration when the file changes on disk. Editors
// often replace the file rather than write in place, so the parent directory
// is watched and events are filtered by name.
type Watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// WatchConfig invokes onChange with the freshly loaded configuration each
// time the file at path is written or recreated. Load errors are ignored so a
// half-saved file cannot wipe the running configuration.
func WatchConfig(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fs: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if cfg, err := LoadConfig(path); err == nil {
					onChange(cfg)
				}
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w, nil
}

// Close stops watching and waits for the event loop to exit
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
