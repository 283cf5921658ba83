// Package watch rebuilds when local override sources or the loader template
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// BuildFunc runs one build. Errors are logged and watching continues.
type BuildFunc func(ctx context.Context) error

// Watcher triggers debounced builds on filesystem changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	debounce time.Duration
	build    BuildFunc
}

// New watches every existing path in paths. Directories are watched
// recursively; for files the parent directory is watched and events are
// filtered to the file.
func New(paths []string, debounce time.Duration, build BuildFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{watcher: fw, debounce: debounce, build: build}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve watch path: %w", err)
		}
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Watch path does not exist, ignoring", "path", abs)
			continue
		}
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		if info.IsDir() {
			err = w.addTree(abs)
		} else {
			err = fw.Add(filepath.Dir(abs))
		}
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		w.roots = append(w.roots, abs)
	}
	if len(w.roots) == 0 {
		_ = fw.Close()
		return nil, errors.New("nothing to watch")
	}
	return w, nil
}

// Roots returns the absolute paths being watched.
func (w *Watcher) Roots() []string {
	return w.roots
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

// Relevant reports whether a change to name should trigger a rebuild.
func (w *Watcher) Relevant(name string) bool {
	for _, root := range w.roots {
		if name == root || strings.HasPrefix(name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run blocks until ctx is done. Builds run one at a time on the calling
// goroutine; events that arrive during a build schedule one more.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}()

	slog.Info("Watching for changes", "paths", w.roots, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !w.Relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			slog.Debug("Change detected", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)

		case <-timer.C:
			slog.Info("Rebuilding after change")
			if err := w.build(ctx); err != nil {
				slog.Error("Rebuild failed", "error", err)
			}
		}
	}
}
