package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDuration = 100 * time.Millisecond

// ConfigWatcher reloads the runtime-tunable graph limits when the YAML
// config file changes. Every other section needs a restart.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  aggregates.Limits
	mu       sync.RWMutex
	onChange []func(aggregates.Limits)
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewConfigWatcher creates a watcher for configPath seeded with the limits
// already in effect
func NewConfigWatcher(configPath string, initial aggregates.Limits, logger *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so editors that save by rename are still seen.
	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &ConfigWatcher{
		path:    configPath,
		watcher: watcher,
		current: initial,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

func (w *ConfigWatcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.Reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// Reload re-reads the graph limits and notifies listeners when the limits
// changed. Invalid files keep the current limits.
func (w *ConfigWatcher) Reload() {
	limits, err := loadGraphLimits(w.path)
	if err != nil {
		w.logger.Error("Invalid configuration, keeping current limits", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	if old == limits {
		w.mu.Unlock()
		return
	}
	w.current = limits
	handlers := append([]func(aggregates.Limits){}, w.onChange...)
	w.mu.Unlock()

	w.logger.Info("Graph limits changed",
		zap.Int("oldMaxAddedNodes", old.MaxAddedNodes),
		zap.Int("newMaxAddedNodes", limits.MaxAddedNodes),
		zap.String("oldPolicy", string(old.Policy)),
		zap.String("newPolicy", string(limits.Policy)),
	)

	for _, handler := range handlers {
		handler(limits)
	}
}

// OnChange registers a callback for limit changes
func (w *ConfigWatcher) OnChange(handler func(aggregates.Limits)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// GetLimits returns the limits last loaded
func (w *ConfigWatcher) GetLimits() aggregates.Limits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// loadGraphLimits layers the file and the environment the same way
// LoadConfig does, so env-set limits survive a reload.
func loadGraphLimits(path string) (aggregates.Limits, error) {
	if _, err := os.Stat(path); err != nil {
		return aggregates.Limits{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return aggregates.Limits{}, err
	}
	cfg.applyEnv()
	return cfg.Graph.Limits()
}
