// Package watcher observes the EDF archive directory and emits debounced
// rescan requests when files appear, change, or disappear.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem events on the library directory into scan
// triggers. A burst of copies lands as one trigger once the directory has
// been quiet for the debounce interval.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	triggers chan struct{}
}

// New creates a watcher for the given directory. A non-positive debounce
// falls back to five seconds.
func New(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   logger,
		triggers: make(chan struct{}, 1),
	}
}

// Triggers returns the channel scan requests are delivered on. The channel
// holds at most one pending trigger; coalescing is intended.
func (w *Watcher) Triggers() <-chan struct{} {
	return w.triggers
}

// Run watches until the context is canceled. Subdirectories present at
// start or created later are watched too.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.path); err != nil {
		return err
	}
	w.logger.Info("watching library directory", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("library change", "op", event.Op.String(), "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				// A fired-but-unread timer leaves a stale tick in the
				// channel; drain it so Reset starts a fresh window.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			select {
			case w.triggers <- struct{}{}:
			default:
				// A trigger is already queued; the pending scan covers this change.
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// relevant filters events down to EDF file changes and directory creation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Chmod) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.EqualFold(filepath.Ext(name), ".edf") {
		return true
	}
	// Directory events have no extension; pick up creates and removes so
	// moved-in folders of recordings trigger a scan.
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		if info, err := os.Stat(event.Name); err == nil {
			return info.IsDir()
		}
	}
	return false
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
