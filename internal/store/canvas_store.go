// Package store persists one schema-versioned canvas document per thread in
// Postgres. The canvas column is the only shared mutable resource the core
// touches; every read-modify-write cycle runs inside one transaction holding
// the thread row's exclusive lock, which is the serialization primitive for
// concurrent editors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
)

// ErrThreadNotFound is returned when the target thread row does not exist.
var ErrThreadNotFound = errors.New("Thread not found")

// ErrLockTimeout is returned when the row lock could not be acquired within
// the configured timeout, instead of blocking the worker indefinitely.
var ErrLockTimeout = errors.New("canvas lock timeout")

const pgLockNotAvailable = "55P03"

type ThreadRow struct {
	ID           identity.ThreadID
	TenantScope  uint32
	CollectionID identity.CollectionID
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CanvasStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewCanvasStore(db *sql.DB, lockTimeout time.Duration) *CanvasStore {
	return &CanvasStore{db: db, lockTimeout: lockTimeout}
}

func (s *CanvasStore) DB() *sql.DB {
	return s.db
}

// CreateThread provisions a thread row with no canvas. The canvas document
// itself is created lazily by the first mutation.
func (s *CanvasStore) CreateThread(ctx context.Context, row ThreadRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, tenant_scope, collection_id, title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, string(row.ID), int64(row.TenantScope), string(row.CollectionID), row.Title)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

// GetThread reads thread metadata without touching the canvas column.
func (s *CanvasStore) GetThread(ctx context.Context, tenantScope uint32, threadID identity.ThreadID) (ThreadRow, error) {
	var row ThreadRow
	var scope int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_scope, collection_id, title, created_at, updated_at
		FROM threads
		WHERE id=$1 AND tenant_scope=$2
	`, string(threadID), int64(tenantScope)).Scan(&row.ID, &scope, &row.CollectionID, &row.Title, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ThreadRow{}, ErrThreadNotFound
	}
	if err != nil {
		return ThreadRow{}, fmt.Errorf("get thread: %w", err)
	}
	row.TenantScope = uint32(scope)
	return row, nil
}

// LoadCanvas reads the stored canvas without locking, for read-only callers.
// A thread with no stored canvas yields a fresh empty state.
func (s *CanvasStore) LoadCanvas(ctx context.Context, tenantScope uint32, threadID identity.ThreadID) (*canvas.State, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT canvas_json FROM threads WHERE id=$1 AND tenant_scope=$2
	`, string(threadID), int64(tenantScope)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load canvas: %w", err)
	}
	if raw == nil {
		return canvas.NewState(), nil
	}
	return canvas.Decode(raw)
}

// Mutate runs fn against the thread's current canvas while holding the row's
// exclusive lock, then persists fn's result and commits. The sequence is
// lock, load-or-initialize, mutate, encode, persist, commit; any failure
// before commit rolls back with nothing written. fn returning an error
// aborts the transaction and the error passes through unwrapped.
func (s *CanvasStore) Mutate(
	ctx context.Context,
	tenantScope uint32,
	threadID identity.ThreadID,
	fn func(state *canvas.State) (*canvas.State, error),
) (*canvas.State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin canvas tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.lockTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, timeout); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT canvas_json FROM threads
		WHERE id=$1 AND tenant_scope=$2
		FOR UPDATE
	`, string(threadID), int64(tenantScope)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		if isLockTimeout(err) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("lock thread canvas: %w", err)
	}

	state := canvas.NewState()
	if raw != nil {
		if state, err = canvas.Decode(raw); err != nil {
			return nil, err
		}
	}

	next, err := fn(state)
	if err != nil {
		return nil, err
	}

	encoded, err := next.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE threads SET canvas_json=$3, updated_at=NOW()
		WHERE id=$1 AND tenant_scope=$2
	`, string(threadID), int64(tenantScope), encoded); err != nil {
		return nil, fmt.Errorf("write canvas: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit canvas tx: %w", err)
	}
	return next, nil
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}

// Ping verifies the database connection is alive
func (s *CanvasStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
