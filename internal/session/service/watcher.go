package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"turnstile/internal/session/models"
)

const defaultWatchInterval = 60 * time.Second

// Watcher revalidates an identity's session on a fixed interval and reports
// the first non-valid result. Each watched session gets its own cancellable
// ticker; there is no process-wide sweep.
type Watcher struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWatcher(svc *Service, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	return &Watcher{
		svc:      svc,
		interval: interval,
		logger:   logger,
		watches:  make(map[string]*watch),
	}
}

// Watch starts periodic revalidation for the identity. onInvalid runs once,
// with the terminal result, after which the watch stops itself. Starting a
// watch for an identity that already has one replaces it.
func (w *Watcher) Watch(ctx context.Context, identityID string, onInvalid func(*models.ValidationResult)) {
	ctx, cancel := context.WithCancel(ctx)
	entry := &watch{ctx: ctx, cancel: cancel}

	w.mu.Lock()
	if prev, ok := w.watches[identityID]; ok {
		prev.cancel()
	}
	w.watches[identityID] = entry
	w.mu.Unlock()

	go w.run(entry, identityID, onInvalid)
}

// Unwatch cancels the identity's watch, if any. Called on logout so a
// destroyed session does not fire a spurious invalidation.
func (w *Watcher) Unwatch(identityID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.watches[identityID]; ok {
		entry.cancel()
		delete(w.watches, identityID)
	}
}

// Close cancels every active watch.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, entry := range w.watches {
		entry.cancel()
		delete(w.watches, id)
	}
}

func (w *Watcher) run(entry *watch, identityID string, onInvalid func(*models.ValidationResult)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.remove(identityID, entry)

	for {
		select {
		case <-entry.ctx.Done():
			return
		case <-ticker.C:
			result, err := w.svc.Validate(entry.ctx, identityID)
			if err != nil {
				w.logger.Warn("session revalidation failed", "error", err)
				continue
			}
			if !result.Valid() {
				onInvalid(result)
				return
			}
		}
	}
}

// remove drops the entry only if it still owns the identity's slot, so a
// finished watch never cancels a replacement started in the meantime.
func (w *Watcher) remove(identityID string, entry *watch) {
	entry.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if current, ok := w.watches[identityID]; ok && current == entry {
		delete(w.watches, identityID)
	}
}
