package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syncfix/syncfix/internal/app/orchestrator"
	"github.com/syncfix/syncfix/internal/domain"
)

const configReloadDebounce = 500 * time.Millisecond

// ConfigStore holds the last-known-good configuration and hands out
// snapshots. A reload that fails to parse keeps the previous value.
type ConfigStore struct {
	path string
	log  domain.Emitter

	mu  sync.RWMutex
	cfg Config
}

// NewConfigStore wraps an already loaded config.
func NewConfigStore(path string, initial Config, sink domain.EventSink) *ConfigStore {
	return &ConfigStore{
		path: path,
		log:  domain.Emitter{Sink: sink, Source: "config"},
		cfg:  initial,
	}
}

// Path returns the watched file.
func (s *ConfigStore) Path() string { return s.path }

// Config returns the current configuration.
func (s *ConfigStore) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// TriggerConfig implements domain.ConfigSource.
func (s *ConfigStore) TriggerConfig() domain.TriggerConfig {
	return s.Config().TriggerConfig()
}

// OrchestratorSettings returns the settings for the next run.
func (s *ConfigStore) OrchestratorSettings() orchestrator.Settings {
	return s.Config().OrchestratorSettings()
}

// RetryPolicy returns the retry policy for the next run.
func (s *ConfigStore) RetryPolicy() orchestrator.RetryPolicy {
	return s.Config().RetryPolicy()
}

// Reload re-reads the file. On failure the previous config stays active.
func (s *ConfigStore) Reload() error {
	cfg, err := LoadConfigFile(s.path)
	if err != nil {
		s.log.Warnf("config reload failed, keeping previous config: %v", err)
		return err
	}
	for _, w := range cfg.Warnings {
		s.log.Warnf("config: %s", w)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.log.Infof("config reloaded from %s", s.path)
	return nil
}

// Watch reloads the config whenever the file is written, created or
// renamed into place, until ctx is cancelled. Bursts of events are
// debounced into one reload.
func (s *ConfigStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors replace the file by rename.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(configReloadDebounce, func() { s.Reload() }) //nolint:errcheck
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("config watcher error: %v", err)
		}
	}
}
