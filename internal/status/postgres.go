package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresTracker persists lifecycle records in a documents table.
type PostgresTracker struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresTracker, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	t := &PostgresTracker{db: db}
	if err := t.migrate(context.Background()); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *PostgresTracker) migrate(ctx context.Context) error {
	// Advisory lock prevents concurrent migrations from multiple instances.
	const lockID = 727150421

	var acquired bool
	if err := t.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		_, _ = t.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	_, err := t.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (t *PostgresTracker) Create(ctx context.Context, id uuid.UUID, filename string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO documents(id, filename, state) VALUES($1,$2,$3)`,
		id, filename, StatePending)
	return err
}

func (t *PostgresTracker) SetState(ctx context.Context, id uuid.UUID, state State) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE documents SET state=$1, updated_at=now() WHERE id=$2`, state, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUnknownDocument
	}
	return nil
}

func (t *PostgresTracker) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var rec Record
	row := t.db.QueryRowContext(ctx,
		`SELECT id, filename, state, created_at, updated_at FROM documents WHERE id=$1`, id)
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.State, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrUnknownDocument
		}
		return Record{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return rec, nil
}

func (t *PostgresTracker) Close() error { return t.db.Close() }
