package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertBackupSQL = `INSERT INTO ledger_backups (name, payload) VALUES ($1, $2::jsonb)
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, created_at = now()`

	pruneBackupsSQL = `DELETE FROM ledger_backups WHERE id NOT IN (
	SELECT id FROM ledger_backups ORDER BY created_at DESC, id DESC LIMIT $1
)`

	latestBackupSQL = `SELECT payload FROM ledger_backups ORDER BY created_at DESC, id DESC LIMIT 1`
)

type backupPool interface {
	pgxPool
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BackupStore implements usecase.BackupStore on the ledger_backups table.
// Bundles are stored as jsonb; only the newest retention rows are kept.
type BackupStore struct {
	pool      backupPool
	tx        *txRunner
	retention int
}

// NewBackupStore creates a BackupStore. A non-positive retention keeps every backup.
func NewBackupStore(pool *pgxpool.Pool, retention int) *BackupStore {
	return newBackupStoreWithPool(pool, retention)
}

func newBackupStoreWithPool(pool backupPool, retention int) *BackupStore {
	return &BackupStore{
		pool:      pool,
		tx:        newTxRunner(pool),
		retention: retention,
	}
}

// Save inserts the payload and prunes old rows in one transaction.
func (s *BackupStore) Save(ctx context.Context, name string, payload []byte) error {
	return s.tx.Run(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertBackupSQL, name, payload); err != nil {
			return fmt.Errorf("insert backup %s: %w", name, err)
		}
		if s.retention > 0 {
			if _, err := tx.Exec(ctx, pruneBackupsSQL, s.retention); err != nil {
				return fmt.Errorf("prune backups: %w", err)
			}
		}
		return nil
	})
}

// Latest returns the newest payload, or nil when the table is empty.
func (s *BackupStore) Latest(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, latestBackupSQL).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest backup: %w", err)
	}
	return payload, nil
}
