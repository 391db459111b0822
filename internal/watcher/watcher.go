// Package watcher monitors the patchwatch configuration file for on-disk
// changes. Target configuration is immutable for the lifetime of the
// process, so a change is only reported: the operator is told a restart is
// required to apply it.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/patchwatch/patchwatch/internal/ports"
)

const defaultDebounceDelay = 500 * time.Millisecond

// Watcher watches one configuration file.
type Watcher struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	logger        ports.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher for the given config file path.
func New(path string, logger ports.Logger) *Watcher {
	return &Watcher{
		path:          path,
		debounceDelay: defaultDebounceDelay,
		logger:        logger,
	}
}

// Start begins watching. Watch setup failures are logged, not fatal: the
// watcher is an operator convenience, not part of the update core.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.watchLoop(ctx)
}

// Stop stops the watcher and waits for its loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("config watcher: failed to create watcher", ports.Err(err))
		return
	}
	defer fsw.Close()

	// Watch the directory: editors often replace the file, which drops a
	// watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Error("config watcher: failed to watch directory", ports.Err(err))
		return
	}

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReport()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher: watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReport() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, func() {
		w.logger.Warn("configuration file changed on disk; restart to apply",
			ports.String("path", w.path),
		)
	})
}
