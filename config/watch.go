package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Settings whenever a configuration file in the base path changes.
type Watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch calls onChange with freshly loaded Settings after every change. Settings are
// never updated in place; callers build a new pipeline from the value they receive.
// A failed reload is passed as err with nil settings.
func Watch(opts ConfigOptions, onChange func(s *Settings, err error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(opts.BasePath); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{w: fw, done: make(chan struct{})}
	w.wg.Add(1)
	go w.loop(opts, onChange)
	return w, nil
}

func (w *Watcher) loop(opts ConfigOptions, onChange func(*Settings, error)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case e, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !relevant(opts, e) {
				continue
			}
			onChange(Load(opts))
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			onChange(nil, err)
		}
	}
}

func relevant(opts ConfigOptions, e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) && !e.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(e.Name)
	if !strings.HasSuffix(name, "."+opts.FileType) {
		return false
	}
	return opts.LoadAll || strings.HasPrefix(name, opts.FileName+".")
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.w.Close()
		w.wg.Wait()
	})
	return err
}
