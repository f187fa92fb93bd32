package usecase

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// AssetRepository defines data access for banks, assets and their balances.
// Balances change only through ApplyPostings.
type AssetRepository interface {
	CreateBank(ctx context.Context, tx Transaction, bank *domain.Bank) error
	GetBank(ctx context.Context, id string) (*domain.Bank, error)
	ListBanks(ctx context.Context) ([]*domain.Bank, error)
	Create(ctx context.Context, tx Transaction, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Asset, error)
	List(ctx context.Context) ([]*domain.Asset, error)
	// ApplyPostings moves balances all-or-nothing; an unknown asset fails the whole batch.
	ApplyPostings(ctx context.Context, tx Transaction, postings []domain.Posting) error
	Remove(ctx context.Context, tx Transaction, id string) error
}

// TransactionRepository defines data access for the transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Transaction, error)
	ListByGroupForUpdate(ctx context.Context, tx Transaction, groupID string) ([]*domain.Transaction, error)
	SetDeleted(ctx context.Context, tx Transaction, ids []string, deleted bool) error
	// Query returns a restartable sequence over a snapshot of matching transactions.
	Query(ctx context.Context, filter domain.TransactionFilter) (iter.Seq[*domain.Transaction], error)
}

// DebtRepository defines data access for debts and receivables.
type DebtRepository interface {
	Create(ctx context.Context, tx Transaction, debt *domain.Debt) error
	GetByID(ctx context.Context, id string) (*domain.Debt, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Debt, error)
	List(ctx context.Context, direction domain.DebtDirection) ([]*domain.Debt, error)
	AddInstallment(ctx context.Context, tx Transaction, debtID string, inst domain.Installment) error
	AdjustPaid(ctx context.Context, tx Transaction, debtID, installmentID string, delta decimal.Decimal) error
	Archive(ctx context.Context, tx Transaction, debtID, installmentID string) error
}

// CapitalHistoryRepository defines data access for capital closings.
type CapitalHistoryRepository interface {
	Append(ctx context.Context, tx Transaction, entry *domain.CapitalHistoryEntry) error
	Query(ctx context.Context, r domain.DateRange) ([]*domain.CapitalHistoryEntry, error)
	// LatestAtOrBefore returns nil, nil when no closing exists at or before ts.
	LatestAtOrBefore(ctx context.Context, ts time.Time) (*domain.CapitalHistoryEntry, error)
	// LatestBefore returns nil, nil when no closing exists strictly before ts.
	LatestBefore(ctx context.Context, ts time.Time) (*domain.CapitalHistoryEntry, error)
}

// SettingsRepository stores opaque layout blobs carried by exports.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, tx Transaction, key string, value json.RawMessage) error
}

// StateRepository snapshots and replaces the whole engine state.
type StateRepository interface {
	Snapshot(ctx context.Context) (*domain.Bundle, error)
	Restore(ctx context.Context, tx Transaction, bundle *domain.Bundle) error
}

// Transaction represents a unit of work.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// PermissionChecker gates domain operations by (category, action).
type PermissionChecker interface {
	HasPermission(ctx context.Context, category, action string) bool
}

// BackupStore persists exported bundles.
type BackupStore interface {
	Save(ctx context.Context, name string, payload []byte) error
	// Latest returns nil, nil when no backup exists.
	Latest(ctx context.Context) ([]byte, error)
}

// Retrier retries an operation on transient errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
