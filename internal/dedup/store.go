// internal/dedup/store.go
package dedup

import (
	"context"
	"database/sql"

	commonerrors "formsync/internal/common/errors"
)

// Store tracks which record identifiers have already been delivered.
// There is one namespace per deployment; sources share the identifier
// space of the upstream system, so the table is not partitioned per
// source.
type Store interface {
	// Init creates the backing table if absent. Safe to call repeatedly.
	Init(ctx context.Context) error

	// IsNew reports whether the record id has never been marked delivered.
	IsNew(ctx context.Context, recordID string) (bool, error)

	// MarkDelivered records the id as delivered. Marking an id twice is
	// a no-op, not an error.
	MarkDelivered(ctx context.Context, recordID string) error

	// Reset drops all delivered ids. Admin operation, not used by the
	// sync path.
	Reset(ctx context.Context) error
}

type sqlStore struct {
	db         *sql.DB
	initStmt   string
	existsStmt string
	insertStmt string
	resetStmt  string
}

// NewSQLiteStore returns a Store backed by an embedded database handle.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqlStore{
		db:         db,
		initStmt:   `CREATE TABLE IF NOT EXISTS delivered_records (record_id TEXT PRIMARY KEY)`,
		existsStmt: `SELECT 1 FROM delivered_records WHERE record_id = ?`,
		insertStmt: `INSERT OR IGNORE INTO delivered_records (record_id) VALUES (?)`,
		resetStmt:  `DELETE FROM delivered_records`,
	}
}

// NewPostgresStore returns a Store backed by a PostgreSQL handle.
func NewPostgresStore(db *sql.DB) Store {
	return &sqlStore{
		db:         db,
		initStmt:   `CREATE TABLE IF NOT EXISTS delivered_records (record_id TEXT PRIMARY KEY)`,
		existsStmt: `SELECT 1 FROM delivered_records WHERE record_id = $1`,
		insertStmt: `INSERT INTO delivered_records (record_id) VALUES ($1) ON CONFLICT (record_id) DO NOTHING`,
		resetStmt:  `DELETE FROM delivered_records`,
	}
}

func (s *sqlStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.initStmt); err != nil {
		return commonerrors.NewStoreError("init", err)
	}
	return nil
}

func (s *sqlStore) IsNew(ctx context.Context, recordID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.existsStmt, recordID).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return true, nil
	case err != nil:
		return false, commonerrors.NewStoreError("lookup", err)
	default:
		return false, nil
	}
}

func (s *sqlStore) MarkDelivered(ctx context.Context, recordID string) error {
	if _, err := s.db.ExecContext(ctx, s.insertStmt, recordID); err != nil {
		return commonerrors.NewStoreError("mark", err)
	}
	return nil
}

func (s *sqlStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.resetStmt); err != nil {
		return commonerrors.NewStoreError("reset", err)
	}
	return nil
}
