package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// ReconciliationUseCase checks that stored balances match the transaction log.
type ReconciliationUseCase struct {
	assetRepo AssetRepository
	txRepo    TransactionRepository
	clock     Clock
	perms     PermissionChecker
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(assetRepo AssetRepository, txRepo TransactionRepository, perms PermissionChecker) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		assetRepo: assetRepo,
		txRepo:    txRepo,
		clock:     ClockFunc(systemNow),
		perms:     perms,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AssetID           string
	Currency          string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAsset recomputes an asset balance as opening balance plus every
// active transaction and compares it with the stored balance.
func (uc *ReconciliationUseCase) ReconcileAsset(ctx context.Context, assetID string) (*ReconciliationResult, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}

	asset, err := uc.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	sums, err := uc.activeSums(ctx, domain.TransactionFilter{AssetID: assetID, Deleted: domain.ActiveOnly()})
	if err != nil {
		return nil, err
	}
	return uc.result(asset, sums[asset.ID]), nil
}

// ReconcileAllAssets reconciles every asset in the registry.
func (uc *ReconciliationUseCase) ReconcileAllAssets(ctx context.Context) ([]*ReconciliationResult, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}

	assets, err := uc.assetRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := uc.activeSums(ctx, domain.TransactionFilter{Deleted: domain.ActiveOnly()})
	if err != nil {
		return nil, err
	}

	results := make([]*ReconciliationResult, 0, len(assets))
	for _, asset := range assets {
		results = append(results, uc.result(asset, sums[asset.ID]))
	}
	return results, nil
}

// CheckLedgerConsistency fails when an active transaction references an
// asset that is no longer registered.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	assets, err := uc.assetRepo.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(assets))
	for _, a := range assets {
		known[a.ID] = true
	}

	seq, err := uc.txRepo.Query(ctx, domain.TransactionFilter{Deleted: domain.ActiveOnly()})
	if err != nil {
		return err
	}

	orphans := 0
	var first *domain.Transaction
	for t := range seq {
		if !known[t.AssetID] {
			if first == nil {
				first = t
			}
			orphans++
		}
	}

	if orphans > 0 {
		return fmt.Errorf(
			"ledger inconsistency detected: %d active transactions reference unknown assets (first: transaction %s, asset %s)",
			orphans, first.ID, first.AssetID,
		)
	}
	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAssets      int
	ReconciledAssets int
	Discrepancies    []*ReconciliationResult
	LedgerConsistent bool
	CheckedAt        time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAssets(ctx)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx)

	report := &ReconciliationReport{
		TotalAssets:      len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        uc.clock.Now(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAssets++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}

func (uc *ReconciliationUseCase) activeSums(ctx context.Context, filter domain.TransactionFilter) (map[string]decimal.Decimal, error) {
	seq, err := uc.txRepo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal)
	for t := range seq {
		sums[t.AssetID] = sums[t.AssetID].Add(t.Amount)
	}
	return sums, nil
}

func (uc *ReconciliationUseCase) result(asset *domain.Asset, activeSum decimal.Decimal) *ReconciliationResult {
	calculated := asset.OpeningBalance.Add(activeSum)
	diff := asset.Balance.Sub(calculated)
	return &ReconciliationResult{
		AssetID:           asset.ID,
		Currency:          asset.Currency,
		RecordedBalance:   asset.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       uc.clock.Now(),
	}
}
