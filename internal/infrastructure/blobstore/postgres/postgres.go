// Package postgres keeps the complaint collection as a single JSONB row,
// one row per bucket. The revision column only serves change detection:
// merge-writes stay last-writer-wins, matching the reference behavior.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore"
)

const (
	DefaultBucket       = "complaints"
	defaultPollInterval = 2 * time.Second
)

type Store struct {
	db           *sql.DB
	bucket       string
	pollInterval time.Duration

	mu           sync.Mutex
	selfRevision int64
	seenRevision int64
}

func NewStore(db *sql.DB, bucket string, pollInterval time.Duration) *Store {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Store{db: db, bucket: bucket, pollInterval: pollInterval}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across instance startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS complaint_snapshots (
	bucket TEXT PRIMARY KEY,
	payload JSONB NOT NULL DEFAULT '[]'::jsonb,
	revision BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Complaint, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT payload FROM complaint_snapshots WHERE bucket = $1
`, s.bucket)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Complaint{}, nil
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return blobstore.Decode(raw)
}

func (s *Store) SaveAll(ctx context.Context, all []domain.Complaint) error {
	raw, err := blobstore.Encode(all)
	if err != nil {
		return err
	}
	return s.writeBlob(ctx, raw)
}

func (s *Store) MergeWrite(ctx context.Context, changed []domain.Complaint, deletedIDs []string) error {
	current, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	raw, err := blobstore.Encode(blobstore.Merge(current, changed, deletedIDs))
	if err != nil {
		return err
	}
	return s.writeBlob(ctx, raw)
}

// Subscribe polls the bucket revision, firing the callback whenever the
// persisted revision moved past the one this handle last wrote.
func (s *Store) Subscribe(ctx context.Context, onExternalChange func()) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := s.externallyChanged(ctx)
			if err != nil {
				continue
			}
			if changed {
				onExternalChange()
			}
		}
	}
}

func (s *Store) externallyChanged(ctx context.Context) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT revision FROM complaint_snapshots WHERE bucket = $1
`, s.bucket)

	var revision int64
	if err := row.Scan(&revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scan revision: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if revision == s.seenRevision {
		return false, nil
	}
	s.seenRevision = revision
	return revision != s.selfRevision, nil
}

func (s *Store) writeBlob(ctx context.Context, raw []byte) error {
	row := s.db.QueryRowContext(ctx, `
INSERT INTO complaint_snapshots (bucket, payload, revision, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (bucket) DO UPDATE
SET payload = EXCLUDED.payload,
    revision = complaint_snapshots.revision + 1,
    updated_at = now()
RETURNING revision
`, s.bucket, raw)

	var revision int64
	if err := row.Scan(&revision); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.mu.Lock()
	s.selfRevision = revision
	s.seenRevision = revision
	s.mu.Unlock()
	return nil
}
