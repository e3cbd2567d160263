package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"namereg/internal/registry/models"
	"namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
	txcontext "namereg/pkg/platform/tx"
)

// Postgres persists records in the two-table layout: a records table keyed by
// name, plus an owner index that is fully derived from it by querying on the
// owner column. Deriving the index trades the memory store's O(1) removal for
// an indexed scan, and removes the index-sync invariant entirely.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	name          TEXT PRIMARY KEY,
	owner         TEXT NOT NULL,
	target        TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS records_owner_idx ON records (owner);
`

// EnsureSchema creates the records table and owner index if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return p.db
}

// Create inserts a new record. The primary key makes double registration a
// unique violation, which maps to sentinel.ErrConflict.
func (p *Postgres) Create(ctx context.Context, record *models.Record) error {
	_, err := p.execer(ctx).ExecContext(ctx,
		`INSERT INTO records (name, owner, target, content_hash, registered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		record.Name, record.Owner.String(), record.Target.String(),
		record.ContentHash, record.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Find loads the record for a name.
func (p *Postgres) Find(ctx context.Context, name string) (*models.Record, error) {
	row := p.execer(ctx).QueryRowContext(ctx,
		`SELECT name, owner, target, content_hash, registered_at
		 FROM records WHERE name = $1`,
		name,
	)
	var record models.Record
	var owner, target string
	err := row.Scan(&record.Name, &owner, &target, &record.ContentHash, &record.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	record.Owner = domain.Identity(owner)
	record.Target = domain.Identity(target)
	return &record, nil
}

// UpdateTarget sets the record's resolution target.
func (p *Postgres) UpdateTarget(ctx context.Context, name string, target domain.Identity) error {
	return p.updateColumn(ctx, "target", name, target.String())
}

// UpdateContentHash sets the record's content hash.
func (p *Postgres) UpdateContentHash(ctx context.Context, name string, contentHash string) error {
	return p.updateColumn(ctx, "content_hash", name, contentHash)
}

// Transfer reassigns ownership. The owner index is derived from the table, so
// the single UPDATE moves the name between owners atomically.
func (p *Postgres) Transfer(ctx context.Context, name string, newOwner domain.Identity) error {
	return p.updateColumn(ctx, "owner", name, newOwner.String())
}

func (p *Postgres) updateColumn(ctx context.Context, column, name, value string) error {
	// column is one of the fixed identifiers above, never caller input.
	res, err := p.execer(ctx).ExecContext(ctx,
		fmt.Sprintf(`UPDATE records SET %s = $2 WHERE name = $1`, column),
		name, value,
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %s: %w", column, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListByOwner derives the owner's name list by querying the records table.
// Registration order is preserved as far as the table can express it; callers
// must not rely on order surviving transfers.
func (p *Postgres) ListByOwner(ctx context.Context, owner domain.Identity) ([]string, error) {
	rows, err := p.execer(ctx).QueryContext(ctx,
		`SELECT name FROM records WHERE owner = $1 ORDER BY registered_at, name`,
		owner.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list records by owner: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan owned name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records by owner: %w", err)
	}
	return names, nil
}
