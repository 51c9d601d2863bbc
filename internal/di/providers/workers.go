package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/neurovault/neurovault-server/internal/config"
	"github.com/neurovault/neurovault-server/internal/logger"
	"github.com/neurovault/neurovault-server/internal/scanner"
	"github.com/neurovault/neurovault-server/internal/service"
	"github.com/neurovault/neurovault-server/internal/watcher"
)

// LibraryWatcherHandle wraps the filesystem watcher with its context for
// lifecycle management. When watching is disabled the handle is inert.
type LibraryWatcherHandle struct {
	watcher *watcher.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideLibraryWatcher provides the archive watcher and the background
// loop that turns debounced change triggers into library scans.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	if !cfg.Watcher.Enabled || cfg.Library.EDFPath == "" {
		log.Info("Library watcher disabled")
		return &LibraryWatcherHandle{}, nil
	}

	w := watcher.New(cfg.Library.EDFPath, cfg.Watcher.Debounce, log.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Library watcher stopped", "error", err)
		}
	}()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.Triggers():
				result, err := library.Scan(ctx, scanner.Options{Workers: cfg.Scanner.Workers})
				if err != nil {
					// A manual scan may already hold the library; the next
					// trigger retries.
					log.Warn("Watcher-initiated scan failed", "error", err)
					continue
				}
				log.Info("Watcher-initiated scan finished",
					"discovered", result.Discovered,
					"added", result.Added,
					"corrupt", result.Corrupt,
				)
			}
		}
	}()

	return &LibraryWatcherHandle{watcher: w, cancel: cancel, done: done}, nil
}
