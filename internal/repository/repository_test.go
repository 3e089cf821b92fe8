package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/snapshot"
	"github.com/ayo6706/wallet-ledger/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	release := dblock.Acquire()
	t.Cleanup(release)

	pool, err := db.ConnectAndMigrate(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func TestSnapshotRepositoryRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	repo := NewSnapshotRepository(store, "test_"+uuid.NewString())

	_, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	engine := ledger.NewEngine(ledger.Policy{})
	out, err := engine.Apply(ledger.NewState(), ledger.RecordDeposit{UserID: "u1", Amount: decimal.RequireFromString("12.34")})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, out.State))

	// Saving twice updates the same row.
	require.NoError(t, repo.Save(ctx, out.State))

	loaded, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	want, err := snapshot.Encode(out.State)
	require.NoError(t, err)
	got, err := snapshot.Encode(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestAuditLogInsideTx(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	entityID := uuid.NewString()
	actor := "admin-1"
	next := string(domain.StatusApproved)

	err := store.RunInTx(ctx, func(q *Queries) error {
		_, err := q.InsertAuditLog(ctx, InsertAuditLogParams{
			EntityType: string(domain.KindDeposit),
			EntityID:   entityID,
			ActorID:    &actor,
			Action:     "status.changed",
			NextState:  &next,
			Metadata:   []byte(`{"amount":"10"}`),
		})
		return err
	})
	require.NoError(t, err)

	rows, err := store.Queries().ListAuditLogByEntity(ctx, entityID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "status.changed", rows[0].Action)
	assert.Equal(t, actor, *rows[0].ActorID)
	assert.Nil(t, rows[0].PrevState)

	rollback := errors.New("rollback")
	err = store.RunInTx(ctx, func(q *Queries) error {
		if _, err := q.InsertAuditLog(ctx, InsertAuditLogParams{EntityType: "deposit", EntityID: entityID, Action: "ignored"}); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	rows, err = store.Queries().ListAuditLogByEntity(ctx, entityID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRequireExactlyOne(t *testing.T) {
	assert.NoError(t, requireExactlyOne(1, "upsert"))
	assert.EqualError(t, requireExactlyOne(0, "upsert"), "upsert affected 0 rows")
}
