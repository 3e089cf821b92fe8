package snapshot

import (
	"bytes"
	"context"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

// TieredStore pairs a durable primary with a cache mirror.
//
// Saves must reach the primary. A cache write that fails is followed by an
// invalidation of the cache key, so the mirror is either current or empty,
// never an older snapshot. Loads trust the primary: its copy is returned and
// the cache is rewritten when it is missing or differs. A primary failure is
// returned as an error and never papered over with the cache.
type TieredStore struct {
	primary Store
	cache   Store
}

// NewTieredStore builds a write-through store. A nil cache degrades to the
// primary alone.
func NewTieredStore(primary, cache Store) *TieredStore {
	return &TieredStore{primary: primary, cache: cache}
}

func (t *TieredStore) Load(ctx context.Context) (ledger.State, bool, error) {
	s, ok, err := t.primary.Load(ctx)
	if err != nil {
		return s, false, err
	}
	if t.cache == nil {
		return s, ok, nil
	}
	if !ok {
		// Nothing durable yet; whatever the cache holds predates it.
		t.invalidateCache(ctx)
		return s, false, nil
	}

	if t.cacheMatches(ctx, s) {
		return s, true, nil
	}
	t.saveCache(ctx, s, "snapshot cache warm failed")
	return s, true, nil
}

func (t *TieredStore) Save(ctx context.Context, state ledger.State) error {
	if err := t.primary.Save(ctx, state); err != nil {
		return err
	}
	if t.cache != nil {
		t.saveCache(ctx, state, "snapshot cache save failed")
	}
	return nil
}

func (t *TieredStore) cacheMatches(ctx context.Context, want ledger.State) bool {
	cached, ok, err := t.cache.Load(ctx)
	if err != nil {
		observability.IncrementSnapshotFailure("cache_load")
		zap.L().Warn("snapshot cache load failed", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	a, errA := Encode(cached)
	b, errB := Encode(want)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

func (t *TieredStore) saveCache(ctx context.Context, state ledger.State, msg string) {
	err := t.cache.Save(ctx, state)
	if err == nil {
		return
	}
	observability.IncrementSnapshotFailure("cache_save")
	zap.L().Warn(msg, zap.Error(err))
	t.invalidateCache(ctx)
}

func (t *TieredStore) invalidateCache(ctx context.Context) {
	inv, ok := t.cache.(Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		observability.IncrementSnapshotFailure("cache_invalidate")
		zap.L().Warn("snapshot cache invalidate failed", zap.Error(err))
	}
}
