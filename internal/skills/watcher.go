package skills

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watcher reloads the registry when the skills dir changes on disk.
// Development convenience; the sweep of events is debounced so a burst of
// writes triggers one Reload.
type Watcher struct {
	registry *Registry
	fw       *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching the registry's root directory and every skill
// subdirectory, so manifest edits inside a skill dir trigger a reload too.
func NewWatcher(registry *Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(registry.Dir()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{registry: registry, fw: fw, done: make(chan struct{})}
	w.watchSkillDirs()
	go w.loop()
	return w, nil
}

// watchSkillDirs adds a watch per skill subdirectory. fsnotify is not
// recursive, so the root watch alone only sees directories coming and going.
// Adding an already-watched path is a no-op; removed paths drop out on their
// own.
func (w *Watcher) watchSkillDirs() {
	entries, err := os.ReadDir(w.registry.Dir())
	if err != nil {
		slog.Warn("skills watcher scan failed", "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.fw.Add(filepath.Join(w.registry.Dir(), e.Name())); err != nil {
			slog.Warn("skills watcher add failed", "dir", e.Name(), "error", err)
		}
	}
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.registry.Reload(); err != nil {
				slog.Warn("skill registry reload failed", "error", err)
			} else {
				slog.Debug("skill registry reloaded", "skills", len(w.registry.List()))
			}
			w.watchSkillDirs()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("skills watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
