package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// CapitalUseCase computes, closes and tracks capital.
type CapitalUseCase struct {
	txManager   TransactionManager
	assetRepo   AssetRepository
	txRepo      TransactionRepository
	debtRepo    DebtRepository
	historyRepo CapitalHistoryRepository
	backup      *BackupUseCase
	idGen       IDGenerator
	clock       Clock
	policy      domain.ClosingPolicy
	perms       PermissionChecker
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewCapitalUseCase creates a new CapitalUseCase.
func NewCapitalUseCase(
	txManager TransactionManager,
	assetRepo AssetRepository,
	txRepo TransactionRepository,
	debtRepo DebtRepository,
	historyRepo CapitalHistoryRepository,
	idGen IDGenerator,
	policy domain.ClosingPolicy,
	perms PermissionChecker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *CapitalUseCase {
	if policy.ReferenceCurrency == "" {
		policy.ReferenceCurrency = domain.DefaultReferenceCurrency
	}
	policy.ReferenceCurrency = domain.NormalizeCurrency(policy.ReferenceCurrency)

	return &CapitalUseCase{
		txManager:   txManager,
		assetRepo:   assetRepo,
		txRepo:      txRepo,
		debtRepo:    debtRepo,
		historyRepo: historyRepo,
		idGen:       idGen,
		clock:       ClockFunc(systemNow),
		policy:      policy,
		perms:       perms,
		metrics:     metrics,
		logger:      logger,
	}
}

// WithClock replaces the time source.
func (uc *CapitalUseCase) WithClock(clock Clock) *CapitalUseCase {
	uc.clock = clock
	return uc
}

// WithAutoBackup saves a backup after every successful closing.
func (uc *CapitalUseCase) WithAutoBackup(backup *BackupUseCase) *CapitalUseCase {
	uc.backup = backup
	return uc
}

// Policy returns the closing policy in effect.
func (uc *CapitalUseCase) Policy() domain.ClosingPolicy {
	return uc.policy
}

// CurrentCapital computes per-currency capital from the live ledger.
func (uc *CapitalUseCase) CurrentCapital(ctx context.Context) (domain.CapitalTotals, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryCapital, domain.ActionView); err != nil {
		return domain.CapitalTotals{}, err
	}

	var (
		in  domain.CapitalInputs
		err error
	)
	if in.Assets, err = uc.assetRepo.List(ctx); err != nil {
		return domain.CapitalTotals{}, err
	}
	if in.Debts, err = uc.debtRepo.List(ctx, domain.DebtOwedToUs); err != nil {
		return domain.CapitalTotals{}, err
	}
	if in.Receivables, err = uc.debtRepo.List(ctx, domain.DebtOwedByUs); err != nil {
		return domain.CapitalTotals{}, err
	}

	withdrawals, err := uc.txRepo.Query(ctx, domain.TransactionFilter{
		Kind:    domain.KindWithdrawal,
		Deleted: domain.ActiveOnly(),
	})
	if err != nil {
		return domain.CapitalTotals{}, err
	}
	for t := range withdrawals {
		in.InFlight = append(in.InFlight, t)
	}

	return domain.ComputeCapital(in), nil
}

// CloseCapitalInput represents input for a capital closing. Rates are keyed by currency.
type CloseCapitalInput struct {
	Rates map[string]domain.RateInput
	Note  string
}

// CloseCapital closes the live capital into the reference currency.
func (uc *CapitalUseCase) CloseCapital(ctx context.Context, input CloseCapitalInput) (*domain.CapitalHistoryEntry, error) {
	totals, err := uc.CurrentCapital(ctx)
	if err != nil {
		return nil, err
	}
	return uc.CloseCapitalFromTotals(ctx, totals, input)
}

// CloseCapitalFromTotals converts the given totals and appends the closing to
// history. Nothing is stored when conversion fails.
func (uc *CapitalUseCase) CloseCapitalFromTotals(ctx context.Context, totals domain.CapitalTotals, input CloseCapitalInput) (*domain.CapitalHistoryEntry, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryCapital, domain.ActionClose); err != nil {
		return nil, err
	}

	rates := make(map[string]domain.RateInput, len(input.Rates))
	for cur, rate := range input.Rates {
		rates[domain.NormalizeCurrency(cur)] = rate
	}

	entry, err := domain.CloseCapital(totals, rates, uc.policy)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ClosingsRejected.WithLabelValues(errorType(err)).Inc()
		}
		uc.logger.Warn().Err(err).Msg("capital closing rejected")
		return nil, err
	}

	entry.ID = uc.idGen.Generate()
	entry.Timestamp = uc.clock.Now()
	entry.Note = input.Note

	if err := runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.historyRepo.Append(txCtx, tx, entry)
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CapitalClosings.Inc()
		for cur, v := range entry.PerCurrency {
			uc.metrics.CapitalTotal.WithLabelValues(cur).Set(v.InexactFloat64())
		}
	}
	uc.logger.Info().
		Str("entry_id", entry.ID).
		Str("reference_currency", entry.ReferenceCurrency).
		Str("total", entry.Total.String()).
		Msg("capital closed")

	uc.autoBackup(ctx)

	return entry, nil
}

func (uc *CapitalUseCase) autoBackup(ctx context.Context) {
	if uc.backup == nil {
		return
	}
	history, err := uc.historyRepo.Query(ctx, domain.DateRange{})
	if err == nil {
		err = uc.backup.AutoBackup(ctx, history)
	}
	if err != nil {
		uc.logger.Error().Err(err).Msg("auto backup after closing failed")
	}
}

// History lists closings inside the window, oldest first.
func (uc *CapitalUseCase) History(ctx context.Context, window domain.DateRange) ([]*domain.CapitalHistoryEntry, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryCapital, domain.ActionView); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return uc.historyRepo.Query(ctx, window)
}

// Evolution compares the latest closing at or before window.To with the
// latest closing strictly before window.From. An open end means now.
func (uc *CapitalUseCase) Evolution(ctx context.Context, window domain.DateRange) (domain.CapitalEvolution, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryCapital, domain.ActionView); err != nil {
		return domain.CapitalEvolution{}, err
	}
	if err := window.Validate(); err != nil {
		return domain.CapitalEvolution{}, err
	}

	to := window.To
	if to.IsZero() {
		to = uc.clock.Now()
	}

	end, err := uc.historyRepo.LatestAtOrBefore(ctx, to)
	if err != nil {
		return domain.CapitalEvolution{}, err
	}
	if end == nil {
		return domain.CapitalEvolution{}, &domain.NotFoundError{Resource: "capital closing", ID: to.Format(time.RFC3339)}
	}

	var start *domain.CapitalHistoryEntry
	if !window.From.IsZero() {
		if start, err = uc.historyRepo.LatestBefore(ctx, window.From); err != nil {
			return domain.CapitalEvolution{}, err
		}
	}

	return domain.NewCapitalEvolution(start, end), nil
}
