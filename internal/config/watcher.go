package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/enercomp/enercomp/internal/logging"
)

// WatcherConfig holds configuration for the agent config directory watcher.
type WatcherConfig struct {
	// Dir is the agent config directory to watch
	Dir string

	// DebounceMillis coalesces bursts of file events into a single reload.
	// Default: 500ms.
	DebounceMillis int
}

// Watcher watches the agent config directory and triggers a reload callback
// with debouncing, so editor save sequences do not cause reload storms.
// Reload failures are logged; the watcher keeps running with the previous
// configuration.
type Watcher struct {
	config   WatcherConfig
	callback func()
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	mu      sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher over the agent config directory. The callback
// is invoked after each debounced change burst.
func NewWatcher(config WatcherConfig, callback func()) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}

	return &Watcher{
		config:   config,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the underlying fsnotify watcher is
// installed, so changes made after Start are never missed.
func (w *Watcher) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
}

func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.Dir); err != nil {
		w.logger.Error("failed to watch %s: %v", w.config.Dir, err)
		return
	}

	w.logger.Info("watching %s for agent config changes (debounce: %dms)",
		w.config.Dir, w.config.DebounceMillis)
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover normal saves; Rename and Remove cover
			// atomic replace, where the old file is unlinked first.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.handleChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(
		time.Duration(w.config.DebounceMillis)*time.Millisecond,
		func() {
			w.logger.Info("agent config directory changed, reloading")
			w.callback()
		},
	)
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.stopped:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for watcher to stop")
	}
}
