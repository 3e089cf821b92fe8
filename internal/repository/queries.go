package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrNotMigrated = errors.New("database schema is not migrated")
	ErrConflict    = errors.New("record conflicts with existing data")
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds the hand-written statements used by the service.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Snapshot is one stored ledger state document.
type Snapshot struct {
	StateKey  string
	Payload   []byte
	UpdatedAt time.Time
}

const getSnapshot = `-- name: GetSnapshot
SELECT state_key, payload, updated_at
FROM ledger_snapshots
WHERE state_key = $1
`

func (q *Queries) GetSnapshot(ctx context.Context, key string) (Snapshot, error) {
	var s Snapshot
	err := q.db.QueryRow(ctx, getSnapshot, key).Scan(&s.StateKey, &s.Payload, &s.UpdatedAt)
	if err != nil {
		return s, mapError(err)
	}
	return s, nil
}

const upsertSnapshot = `-- name: UpsertSnapshot
INSERT INTO ledger_snapshots (state_key, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (state_key) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = NOW()
`

func (q *Queries) UpsertSnapshot(ctx context.Context, key string, payload []byte) (int64, error) {
	tag, err := q.db.Exec(ctx, upsertSnapshot, key, json.RawMessage(payload))
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// InsertAuditLogParams is one audit trail row.
type InsertAuditLogParams struct {
	EntityType string
	EntityID   string
	ActorID    *string
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

// AuditLog is a stored audit trail row.
type AuditLog struct {
	ID         int64
	EntityType string
	EntityID   string
	ActorID    *string
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
	CreatedAt  time.Time
}

const insertAuditLog = `-- name: InsertAuditLog
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (int64, error) {
	var metadata any
	if len(arg.Metadata) > 0 {
		metadata = json.RawMessage(arg.Metadata)
	}
	var id int64
	err := q.db.QueryRow(ctx, insertAuditLog,
		arg.EntityType,
		arg.EntityID,
		arg.ActorID,
		arg.Action,
		arg.PrevState,
		arg.NextState,
		metadata,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

const listAuditLogByEntity = `-- name: ListAuditLogByEntity
SELECT id, entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at
FROM audit_log
WHERE entity_id = $1
ORDER BY id
LIMIT $2
`

func (q *Queries) ListAuditLogByEntity(ctx context.Context, entityID string, limit int32) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogByEntity, entityID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.ActorID, &a.Action, &a.PrevState, &a.NextState, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("%w: %s", ErrNotMigrated, pgErr.Message)
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}
