// File: control/hotreload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// File-driven hot reload: a watcher on the config file re-reads it on
// every write and pushes the result through the store's listeners.

package control

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-loads a config file into a Store whenever it changes.
type Watcher struct {
	path  string
	store *Store
	fsw   *fsnotify.Watcher
	done  chan struct{}
}

// NewWatcher starts watching path. Reload errors are logged and the
// previous configuration stays live.
func NewWatcher(path string, store *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{path: path, store: store, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.Reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[control] watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Reload re-reads the config file once, synchronously.
func (w *Watcher) Reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.Printf("[control] reload %s: %v", w.path, err)
		return
	}
	w.store.Update(cfg)
	log.Printf("[control] config reloaded from %s", w.path)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
