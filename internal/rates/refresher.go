// internal/rates/refresher.go
package rates

import (
	"context"
	"log/slog"
	"time"
)

// SnapshotStore persists rate snapshots outside the process.
type SnapshotStore interface {
	Save(ctx context.Context, t *Table) error
	Load(ctx context.Context) (*Table, error)
}

// RefreshObserver is told about every refresh attempt.
type RefreshObserver interface {
	ObserveRateRefresh(source string, err error, t *Table)
}

// Refresher periodically replaces the cached snapshot with a fresh one.
// A failed fetch keeps the last known snapshot; ledger operations never wait on it.
type Refresher struct {
	provider Provider
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger
	store    SnapshotStore
	observer RefreshObserver
}

// NewRefresher creates a Refresher. store and observer may be nil.
func NewRefresher(provider Provider, cache *Cache, interval time.Duration, store SnapshotStore, observer RefreshObserver, logger *slog.Logger) *Refresher {
	return &Refresher{
		provider: provider,
		cache:    cache,
		interval: interval,
		logger:   logger,
		store:    store,
		observer: observer,
	}
}

// Restore seeds the cache from the snapshot store, if one is configured and holds a table.
func (r *Refresher) Restore(ctx context.Context) {
	if r.store == nil {
		return
	}
	t, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Warn("Failed to restore rate snapshot", "error", err)
		return
	}
	if t != nil {
		r.cache.Replace(t)
		r.logger.Info("Rate snapshot restored", "source", t.Source(), "updated_at", t.UpdatedAt())
	}
}

// Refresh fetches once and swaps the snapshot in on success.
func (r *Refresher) Refresh(ctx context.Context) error {
	t, err := r.provider.Fetch(ctx)
	if r.observer != nil {
		r.observer.ObserveRateRefresh(r.provider.Name(), err, t)
	}
	if err != nil {
		r.logger.Warn("Rate refresh failed, keeping last snapshot",
			"provider", r.provider.Name(), "error", err, "snapshot_age", time.Since(r.cache.Current().UpdatedAt()))
		return err
	}
	r.cache.Replace(t)
	if r.store != nil {
		if err := r.store.Save(ctx, t); err != nil {
			r.logger.Warn("Failed to persist rate snapshot", "error", err)
		}
	}
	r.logger.Debug("Rates refreshed", "provider", r.provider.Name())
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	_ = r.Refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}
