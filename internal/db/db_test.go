package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/wallet?sslmode=disable", migrateURL("postgres://u:p@localhost:5432/wallet?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/wallet", migrateURL("postgresql://localhost/wallet"))
	assert.Equal(t, "pgx5://localhost/wallet", migrateURL("pgx5://localhost/wallet"))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_ledger.up.sql")
	assert.Contains(t, names, "000001_ledger.down.sql")
}
