package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// ErrBackupDisabled is returned when a backup is requested without a store.
var ErrBackupDisabled = errors.New("backup store not configured")

// BackupFileLayout names stored backups; the timestamp sorts lexically.
const BackupFileLayout = "20060102T150405.000Z"

// BackupUseCase exports, imports and persists whole-state bundles.
type BackupUseCase struct {
	txManager TransactionManager
	state     StateRepository
	store     BackupStore
	retrier   Retrier
	clock     Clock
	perms     PermissionChecker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewBackupUseCase creates a new BackupUseCase. Store and retrier may be nil.
func NewBackupUseCase(
	txManager TransactionManager,
	state StateRepository,
	store BackupStore,
	retrier Retrier,
	perms PermissionChecker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *BackupUseCase {
	return &BackupUseCase{
		txManager: txManager,
		state:     state,
		store:     store,
		retrier:   retrier,
		clock:     ClockFunc(systemNow),
		perms:     perms,
		metrics:   metrics,
		logger:    logger,
	}
}

// WithClock replaces the time source.
func (uc *BackupUseCase) WithClock(clock Clock) *BackupUseCase {
	uc.clock = clock
	return uc
}

// Export snapshots the whole state. A non-nil history replaces the stored
// capital history in the bundle.
func (uc *BackupUseCase) Export(ctx context.Context, history []*domain.CapitalHistoryEntry) (*domain.Bundle, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryBackup, domain.ActionExport); err != nil {
		return nil, err
	}
	return uc.export(ctx, history)
}

func (uc *BackupUseCase) export(ctx context.Context, history []*domain.CapitalHistoryEntry) (*domain.Bundle, error) {
	bundle, err := uc.state.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}
	if history != nil {
		bundle.CapitalHistory = history
	}
	bundle.Version = domain.BundleVersion
	bundle.ExportedAt = uc.clock.Now()
	return bundle, nil
}

// ExportJSON exports the whole state as indented JSON.
func (uc *BackupUseCase) ExportJSON(ctx context.Context) ([]byte, error) {
	bundle, err := uc.Export(ctx, nil)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(bundle, "", "  ")
}

// Import replaces every collection with the bundle's contents. Currency codes
// in bundle are normalized in place.
func (uc *BackupUseCase) Import(ctx context.Context, bundle *domain.Bundle) error {
	if err := authorize(ctx, uc.perms, domain.CategoryBackup, domain.ActionImport); err != nil {
		return err
	}
	return uc.restore(ctx, bundle)
}

// ImportJSON decodes and imports a bundle.
func (uc *BackupUseCase) ImportJSON(ctx context.Context, data []byte) error {
	if err := authorize(ctx, uc.perms, domain.CategoryBackup, domain.ActionImport); err != nil {
		return err
	}
	bundle, err := decodeBundle(data)
	if err != nil {
		return err
	}
	return uc.restore(ctx, bundle)
}

func (uc *BackupUseCase) restore(ctx context.Context, bundle *domain.Bundle) error {
	bundle.Normalize()
	if err := bundle.Validate(); err != nil {
		return err
	}

	if err := runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.state.Restore(txCtx, tx, bundle)
	}); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.StateImported.Inc()
	}
	uc.logger.Info().
		Int("assets", len(bundle.Assets)).
		Int("transactions", len(bundle.Transactions)).
		Int("closings", len(bundle.CapitalHistory)).
		Msg("state imported")
	return nil
}

// Backup exports the state and saves it to the backup store.
func (uc *BackupUseCase) Backup(ctx context.Context) (string, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryBackup, domain.ActionExport); err != nil {
		return "", err
	}
	if uc.store == nil {
		return "", ErrBackupDisabled
	}
	return uc.backup(ctx, nil)
}

// AutoBackup saves a bundle carrying history right after a capital closing.
// It is a no-op without a store.
func (uc *BackupUseCase) AutoBackup(ctx context.Context, history []*domain.CapitalHistoryEntry) error {
	if uc.store == nil {
		return nil
	}
	_, err := uc.backup(ctx, history)
	return err
}

func (uc *BackupUseCase) backup(ctx context.Context, history []*domain.CapitalHistoryEntry) (string, error) {
	bundle, err := uc.export(ctx, history)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("encode bundle: %w", err)
	}

	name := "fxledger-" + bundle.ExportedAt.UTC().Format(BackupFileLayout) + ".json"
	save := func() error { return uc.store.Save(ctx, name, payload) }

	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, save)
	} else {
		err = save()
	}
	if err != nil {
		uc.recordBackup("failure")
		return "", fmt.Errorf("save backup %s: %w", name, err)
	}

	uc.recordBackup("success")
	uc.logger.Info().Str("name", name).Int("bytes", len(payload)).Msg("backup saved")
	return name, nil
}

// RestoreLatest imports the most recent stored backup.
func (uc *BackupUseCase) RestoreLatest(ctx context.Context) error {
	if err := authorize(ctx, uc.perms, domain.CategoryBackup, domain.ActionImport); err != nil {
		return err
	}
	if uc.store == nil {
		return ErrBackupDisabled
	}

	payload, err := uc.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest backup: %w", err)
	}
	if payload == nil {
		return &domain.NotFoundError{Resource: "backup", ID: "latest"}
	}

	bundle, err := decodeBundle(payload)
	if err != nil {
		return err
	}
	return uc.restore(ctx, bundle)
}

func (uc *BackupUseCase) recordBackup(status string) {
	if uc.metrics != nil {
		uc.metrics.Backups.WithLabelValues(status).Inc()
	}
}

func decodeBundle(data []byte) (*domain.Bundle, error) {
	var bundle domain.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, domain.NewValidationError("bundle", "invalid JSON: %v", err)
	}
	return &bundle, nil
}
