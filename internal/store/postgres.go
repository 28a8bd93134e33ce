package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the recordings table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS recordings (
    id          UUID PRIMARY KEY,
    path        TEXT NOT NULL,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    sample_rate INTEGER NOT NULL DEFAULT 16000,
    text        TEXT NOT NULL DEFAULT '',
    provider    TEXT NOT NULL DEFAULT '',
    language    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// recordings table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Create inserts a new recording.
func (s *PostgresStore) Create(ctx context.Context, rec *Recording) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO recordings (id, path, duration_ms, sample_rate, text, provider, language)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		rec.ID, rec.Path, rec.Duration.Milliseconds(), rec.SampleRate,
		rec.Text, rec.Provider, rec.Language,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("store: recording %s already exists", rec.ID)
		}
		return fmt.Errorf("store: create: %w", err)
	}
	return nil
}

// Get retrieves a recording by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Recording, error) {
	const query = `
		SELECT id, path, duration_ms, sample_rate, text, provider, language, created_at
		FROM recordings WHERE id = $1`

	rec, err := scanRecording(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return rec, nil
}

// SetTranscription attaches a transcription to an existing recording.
func (s *PostgresStore) SetTranscription(ctx context.Context, id uuid.UUID, text, provider, language string) error {
	const query = `
		UPDATE recordings SET text = $2, provider = $3, language = $4
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, text, provider, language)
	if err != nil {
		return fmt.Errorf("store: set transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the most recent recordings, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Recording, error) {
	query := `
		SELECT id, path, duration_ms, sample_rate, text, provider, language, created_at
		FROM recordings ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return out, nil
}

// Delete removes a recording by ID. Deleting a non-existent recording is not
// an error.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM recordings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func scanRecording(row pgx.Row) (*Recording, error) {
	var (
		rec        Recording
		durationMs int64
	)
	err := row.Scan(&rec.ID, &rec.Path, &durationMs, &rec.SampleRate,
		&rec.Text, &rec.Provider, &rec.Language, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
