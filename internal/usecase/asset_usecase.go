package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// AssetUseCase handles the bank and asset registry.
type AssetUseCase struct {
	txManager TransactionManager
	assetRepo AssetRepository
	idGen     IDGenerator
	clock     Clock
	perms     PermissionChecker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewAssetUseCase creates a new AssetUseCase.
func NewAssetUseCase(
	txManager TransactionManager,
	assetRepo AssetRepository,
	idGen IDGenerator,
	perms PermissionChecker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *AssetUseCase {
	return &AssetUseCase{
		txManager: txManager,
		assetRepo: assetRepo,
		idGen:     idGen,
		clock:     ClockFunc(systemNow),
		perms:     perms,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateBank registers a bank.
func (uc *AssetUseCase) CreateBank(ctx context.Context, name string) (*domain.Bank, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionCreate); err != nil {
		return nil, err
	}

	bank := &domain.Bank{
		ID:        uc.idGen.Generate(),
		Name:      strings.TrimSpace(name),
		CreatedAt: uc.clock.Now(),
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}

	if err := uc.inUnit(ctx, func(txCtx context.Context, tx Transaction) error {
		return uc.assetRepo.CreateBank(txCtx, tx, bank)
	}); err != nil {
		return nil, err
	}

	uc.logger.Info().Str("bank_id", bank.ID).Str("name", bank.Name).Msg("bank created")
	return bank, nil
}

// CreateAssetInput represents input for creating an asset.
type CreateAssetInput struct {
	Name           string
	Currency       string
	Kind           domain.AssetKind
	BankID         string
	OpeningBalance decimal.Decimal
}

// CreateAsset registers a cash vault or bank account. Its balance starts at
// the opening balance.
func (uc *AssetUseCase) CreateAsset(ctx context.Context, input CreateAssetInput) (*domain.Asset, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionCreate); err != nil {
		return nil, err
	}

	kind := input.Kind
	if kind == "" {
		kind = domain.AssetKindCash
	}

	asset := &domain.Asset{
		ID:             uc.idGen.Generate(),
		Name:           strings.TrimSpace(input.Name),
		Currency:       domain.NormalizeCurrency(input.Currency),
		Kind:           kind,
		BankID:         input.BankID,
		OpeningBalance: input.OpeningBalance,
		Balance:        input.OpeningBalance,
		CreatedAt:      uc.clock.Now(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	if err := uc.inUnit(ctx, func(txCtx context.Context, tx Transaction) error {
		return uc.assetRepo.Create(txCtx, tx, asset)
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AssetsCreated.Inc()
	}
	uc.logger.Info().
		Str("asset_id", asset.ID).
		Str("currency", asset.Currency).
		Str("kind", string(asset.Kind)).
		Msg("asset created")

	return asset, nil
}

// RemoveAsset drops an asset from the registry. Its transactions stay in the
// log, but their groups can no longer be reversed.
func (uc *AssetUseCase) RemoveAsset(ctx context.Context, id string) error {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionDelete); err != nil {
		return err
	}

	if err := uc.inUnit(ctx, func(txCtx context.Context, tx Transaction) error {
		return uc.assetRepo.Remove(txCtx, tx, id)
	}); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.AssetsRemoved.Inc()
	}
	uc.logger.Info().Str("asset_id", id).Msg("asset removed")
	return nil
}

// GetAsset retrieves an asset by ID.
func (uc *AssetUseCase) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.assetRepo.GetByID(ctx, id)
}

// ListAssets lists assets in creation order.
func (uc *AssetUseCase) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.assetRepo.List(ctx)
}

// ListBanks lists banks in creation order.
func (uc *AssetUseCase) ListBanks(ctx context.Context) ([]*domain.Bank, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.assetRepo.ListBanks(ctx)
}

func (uc *AssetUseCase) inUnit(ctx context.Context, fn func(context.Context, Transaction) error) error {
	return runInUnit(ctx, uc.txManager, fn)
}

// runInUnit runs fn in a unit of work and commits it when fn succeeds.
func runInUnit(ctx context.Context, txManager TransactionManager, fn func(context.Context, Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(txCtx)

	if err := fn(txCtx, tx); err != nil {
		return err
	}
	return tx.Commit(txCtx)
}
