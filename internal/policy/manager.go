package policy

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager keeps a Store in sync with a policy bundle file. Reloads are
// debounced and a periodic reload covers missed events; a bad bundle
// keeps the last known good policy set.
type Manager struct {
	filePath string
	dirPath  string
	baseName string
	store    *Store

	log      *slog.Logger
	debounce time.Duration
	interval time.Duration
}

func NewManager(filePath string, store *Store) *Manager {
	return &Manager{
		filePath: filePath,
		dirPath:  filepath.Dir(filePath),
		baseName: filepath.Base(filePath),
		store:    store,
		log:      slog.Default(),
		debounce: 200 * time.Millisecond,
		interval: 30 * time.Second,
	}
}

func (m *Manager) Start(ctx context.Context) error {
	if err := m.reload(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := w.Add(m.dirPath); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		trigger := func() {
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, func() {
				if err := m.reload(); err != nil {
					m.log.Error("policy reload failed (keeping last known good)", "err", err)
				} else {
					m.log.Info("policy reloaded", "version", m.store.Version())
				}
			})
		}

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.reload(); err != nil {
					m.log.Error("policy periodic reload failed (keeping last known good)", "err", err)
				}
			case ev := <-w.Events:
				// Watch the directory so symlink swaps (mounted
				// secrets/configmaps) are caught too.
				name := filepath.Base(ev.Name)
				if name == m.baseName || name == "..data" {
					trigger()
				}
			case err := <-w.Errors:
				if err != nil {
					m.log.Error("policy watcher error", "err", err)
				}
			}
		}
	}()

	return nil
}

func (m *Manager) reload() error {
	bundle, err := LoadFromFile(m.filePath)
	if err != nil {
		return err
	}
	m.store.Replace(bundle)
	return nil
}
