package ingestor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename

// watcher coalesces file system events under the input root into debounced
// scan triggers.
type watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	out      chan struct{}
	done     chan struct{}
	logger   logger.Logger
}

func newWatcher(root string, debounce time.Duration, log logger.Logger) (*watcher, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create input dir %s: %w", root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err = fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w := &watcher{
		fsw:      fsw,
		root:     filepath.Clean(root),
		debounce: debounce,
		out:      make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   log,
	}

	entries, err := os.ReadDir(root)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				w.add(filepath.Join(root, e.Name()))
			}
		}
	}

	go w.loop()
	return w, nil
}

// Events delivers at most one pending trigger at a time.
func (w *watcher) Events() <-chan struct{} {
	return w.out
}

// Close stops watching.
func (w *watcher) Close() {
	close(w.done)
	_ = w.fsw.Close()
}

func (w *watcher) add(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("Failed to watch source dir", logger.String("dir", dir), logger.Error(err))
	}
}

func (w *watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-w.done:
			timer.Stop()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&watchedOps == 0 {
				continue
			}
			if ev.Op.Has(fsnotify.Create) && filepath.Dir(ev.Name) == w.root {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.add(ev.Name)
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", logger.Error(err))
		case <-timer.C:
			select {
			case w.out <- struct{}{}:
			default:
			}
		}
	}
}
