package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/snapshot"
)

// SnapshotRepository stores the ledger state as one jsonb row.
type SnapshotRepository struct {
	store *Store
	key   string
}

// NewSnapshotRepository binds the repository to key, or to the default
// state key when key is empty.
func NewSnapshotRepository(store *Store, key string) *SnapshotRepository {
	if key == "" {
		key = domain.DefaultStateKey
	}
	return &SnapshotRepository{store: store, key: key}
}

func (r *SnapshotRepository) Load(ctx context.Context) (ledger.State, bool, error) {
	row, err := r.store.Queries().GetSnapshot(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return ledger.NewState(), false, nil
	}
	if err != nil {
		return ledger.NewState(), false, fmt.Errorf("load snapshot: %w", err)
	}
	s, err := snapshot.Decode(row.Payload)
	if err != nil {
		return ledger.NewState(), false, err
	}
	return s, true, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, state ledger.State) error {
	payload, err := snapshot.Encode(state)
	if err != nil {
		return err
	}
	rows, err := r.store.Queries().UpsertSnapshot(ctx, r.key, payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return requireExactlyOne(rows, "upsert snapshot")
}
