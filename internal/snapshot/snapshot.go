// Package snapshot persists the whole ledger state as a single JSON document
// under one key, with memory, file, Redis and Postgres backends.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
)

// ErrCorrupt is returned when a stored snapshot cannot be decoded.
var ErrCorrupt = errors.New("snapshot is corrupt")

// Store loads and saves ledger snapshots. Load reports false when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (ledger.State, bool, error)
	Save(ctx context.Context, state ledger.State) error
}

// Encode serializes s. Amounts are written as decimal strings.
func Encode(s ledger.State) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return payload, nil
}

// Decode parses a snapshot and fills any missing collections.
func Decode(payload []byte) (ledger.State, error) {
	var s ledger.State
	if err := json.Unmarshal(payload, &s); err != nil {
		return ledger.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.Normalize()
	return s, nil
}

// Invalidator is implemented by stores that can drop their copy, so a
// reader sees "nothing saved" rather than an outdated snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// MemoryStore keeps the encoded snapshot in process memory. It stores
// bytes rather than the value so callers never share state with it.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (ledger.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.payload == nil {
		return ledger.NewState(), false, nil
	}
	s, err := Decode(m.payload)
	if err != nil {
		return ledger.NewState(), false, err
	}
	return s, true, nil
}

func (m *MemoryStore) Save(_ context.Context, state ledger.State) error {
	payload, err := Encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.payload = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context) error {
	m.mu.Lock()
	m.payload = nil
	m.mu.Unlock()
	return nil
}
