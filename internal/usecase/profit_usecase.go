package usecase

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
)

// ProfitUseCase runs the profit and cost analysis over the live ledger.
type ProfitUseCase struct {
	txRepo    TransactionRepository
	threshold decimal.Decimal
	perms     PermissionChecker
}

// NewProfitUseCase creates a new ProfitUseCase. A non-positive threshold
// falls back to domain.DefaultBreakdownThreshold.
func NewProfitUseCase(txRepo TransactionRepository, threshold decimal.Decimal, perms PermissionChecker) *ProfitUseCase {
	if !threshold.IsPositive() {
		threshold = domain.DefaultBreakdownThreshold
	}
	return &ProfitUseCase{txRepo: txRepo, threshold: threshold, perms: perms}
}

// Analyze reports profit and costs for the inclusive window. Cost basis is
// computed over the whole ledger.
func (uc *ProfitUseCase) Analyze(ctx context.Context, window domain.DateRange) (domain.ProfitReport, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryProfit, domain.ActionView); err != nil {
		return domain.ProfitReport{}, err
	}
	if err := window.Validate(); err != nil {
		return domain.ProfitReport{}, err
	}

	seq, err := uc.txRepo.Query(ctx, domain.TransactionFilter{
		Deleted: domain.ActiveOnly(),
		Order:   domain.OrderAscending,
	})
	if err != nil {
		return domain.ProfitReport{}, err
	}

	return domain.AnalyzeProfit(slices.Collect(seq), window, uc.threshold), nil
}
