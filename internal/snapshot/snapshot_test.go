package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(t *testing.T) ledger.State {
	t.Helper()
	n := 0
	e := ledger.NewEngine(ledger.Policy{},
		ledger.WithIDGenerator(func() string {
			n++
			return []string{"d1", "t1", "w1"}[n-1]
		}),
		ledger.WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	s := ledger.NewState()
	for _, cmd := range []ledger.Command{
		ledger.RequestDeposit{UserID: "alice", Amount: decimal.RequireFromString("100.50")},
		ledger.InitiateTransfer{From: "alice", To: "bob", Amount: decimal.RequireFromString("40"), Type: domain.TxTypeLocal},
		ledger.RequestWithdrawal{UserID: "bob", Amount: decimal.RequireFromString("5")},
		ledger.Approve{ID: "d1"},
		ledger.Approve{ID: "t1"},
	} {
		out, err := e.Apply(s, cmd)
		require.NoError(t, err)
		s = out.State
	}
	return s
}

func mustEncode(t *testing.T, s ledger.State) []byte {
	t.Helper()
	payload, err := Encode(s)
	require.NoError(t, err)
	return payload
}

func TestEncodeShape(t *testing.T) {
	payload := mustEncode(t, sampleState(t))

	s := string(payload)
	assert.Contains(t, s, `"wallet":{"balances":{"alice":"100.5"}`)
	assert.Contains(t, s, `"txns":{"txns":[`)
	assert.Contains(t, s, `"commissions":{"commissions":[`)
	assert.Contains(t, s, `"from":null`)
	assert.Contains(t, s, `"action":"deposit"`)
	assert.Contains(t, s, `"txnId":"t1"`)
}

func TestDecodeRoundTrip(t *testing.T) {
	original := sampleState(t)
	payload := mustEncode(t, original)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, mustEncode(t, decoded))
	assert.True(t, decoded.Balance("alice").Equal(original.Balance("alice")))
	assert.Empty(t, ledger.Verify(decoded, ledger.Policy{}))
}

func TestDecodeNormalizesMissingCollections(t *testing.T) {
	s, err := Decode([]byte(`{"wallet":{"balances":{"u1":"3"}}}`))
	require.NoError(t, err)
	assert.NotNil(t, s.Wallet.PendingDeposits)
	assert.NotNil(t, s.Log.Txns)
	assert.NotNil(t, s.Commissions.Entries)
	assert.Equal(t, "3", s.Balance("u1").String())

	_, err = Decode([]byte(`{"wallet":`))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	s := sampleState(t)
	require.NoError(t, store.Save(ctx, s))

	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustEncode(t, s), mustEncode(t, loaded))

	// Loaded values are independent copies.
	loaded.Wallet.Credit("alice", decimal.NewFromInt(1))
	again, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100.5", again.Balance("alice").String())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	s := sampleState(t)
	require.NoError(t, store.Save(ctx, s))

	loaded, ok, err := NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustEncode(t, s), mustEncode(t, loaded))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, _, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "")

	mock.ExpectGet(domain.DefaultStateKey).RedisNil()
	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	s := sampleState(t)
	payload := mustEncode(t, s)
	mock.ExpectSet(domain.DefaultStateKey, string(payload), 0).SetVal("OK")
	require.NoError(t, store.Save(ctx, s))

	mock.ExpectGet(domain.DefaultStateKey).SetVal(string(payload))
	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, mustEncode(t, loaded))

	mock.ExpectGet(domain.DefaultStateKey).SetErr(errors.New("connection refused"))
	_, _, err = store.Load(ctx)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context) (ledger.State, bool, error) {
	return ledger.NewState(), false, f.err
}

func (f failingStore) Save(context.Context, ledger.State) error { return f.err }

// flakyStore wraps a MemoryStore whose Save can be switched to fail.
type flakyStore struct {
	*MemoryStore
	failSave bool
}

func (f *flakyStore) Save(ctx context.Context, state ledger.State) error {
	if f.failSave {
		return errors.New("cache write refused")
	}
	return f.MemoryStore.Save(ctx, state)
}

func balanceState(t *testing.T, amount string) ledger.State {
	t.Helper()
	out, err := ledger.NewEngine(ledger.Policy{}).Apply(ledger.NewState(),
		ledger.RecordDeposit{UserID: "alice", Amount: decimal.RequireFromString(amount)})
	require.NoError(t, err)
	return out.State
}

func TestTieredStore(t *testing.T) {
	ctx := context.Background()
	s := sampleState(t)

	t.Run("warms cache from primary", func(t *testing.T) {
		primary, cache := NewMemoryStore(), NewMemoryStore()
		require.NoError(t, primary.Save(ctx, s))

		loaded, ok, err := NewTieredStore(primary, cache).Load(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, mustEncode(t, s), mustEncode(t, loaded))

		_, cached, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.True(t, cached)
	})

	t.Run("cache failure is not fatal", func(t *testing.T) {
		primary := NewMemoryStore()
		tiered := NewTieredStore(primary, failingStore{err: errors.New("redis down")})
		require.NoError(t, tiered.Save(ctx, s))

		loaded, ok, err := tiered.Load(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, mustEncode(t, s), mustEncode(t, loaded))
	})

	t.Run("failed cache write does not leave an older snapshot", func(t *testing.T) {
		primary := NewMemoryStore()
		cache := &flakyStore{MemoryStore: NewMemoryStore()}
		tiered := NewTieredStore(primary, cache)

		require.NoError(t, tiered.Save(ctx, balanceState(t, "100")))
		cache.failSave = true
		require.NoError(t, tiered.Save(ctx, balanceState(t, "250")))

		_, cached, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.False(t, cached, "cache must be invalidated after a failed write")

		loaded, ok, err := NewTieredStore(primary, cache).Load(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "250", loaded.Balance("alice").String())
	})

	t.Run("load repairs a stale cache", func(t *testing.T) {
		primary, cache := NewMemoryStore(), NewMemoryStore()
		require.NoError(t, cache.Save(ctx, balanceState(t, "100")))
		require.NoError(t, primary.Save(ctx, balanceState(t, "250")))

		loaded, ok, err := NewTieredStore(primary, cache).Load(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "250", loaded.Balance("alice").String())

		cached, _, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "250", cached.Balance("alice").String())
	})

	t.Run("cache without a durable copy is dropped", func(t *testing.T) {
		primary, cache := NewMemoryStore(), NewMemoryStore()
		require.NoError(t, cache.Save(ctx, s))

		_, ok, err := NewTieredStore(primary, cache).Load(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		_, cached, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.False(t, cached)
	})

	t.Run("primary load failure is returned", func(t *testing.T) {
		cache := NewMemoryStore()
		require.NoError(t, cache.Save(ctx, s))
		_, _, err := NewTieredStore(failingStore{err: errors.New("db down")}, cache).Load(ctx)
		require.Error(t, err)
	})

	t.Run("primary failure is fatal", func(t *testing.T) {
		cache := NewMemoryStore()
		tiered := NewTieredStore(failingStore{err: errors.New("db down")}, cache)
		require.Error(t, tiered.Save(ctx, s))

		_, cached, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.False(t, cached)
	})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		m := NewMemoryStore()
		require.NoError(t, m.Save(ctx, sampleState(t)))
		require.NoError(t, m.Invalidate(ctx))
		_, ok, err := m.Load(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("file", func(t *testing.T) {
		f := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
		require.NoError(t, f.Invalidate(ctx), "missing file is fine")
		require.NoError(t, f.Save(ctx, sampleState(t)))
		require.NoError(t, f.Invalidate(ctx))
		_, ok, err := f.Load(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectDel(domain.DefaultStateKey).SetVal(1)
		require.NoError(t, NewRedisStore(db, "").Invalidate(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
