package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// LedgerUseCase posts transaction groups and serves balance and log reads.
type LedgerUseCase struct {
	txManager TransactionManager
	assetRepo AssetRepository
	txRepo    TransactionRepository
	debtRepo  DebtRepository
	idGen     IDGenerator
	clock     Clock
	perms     PermissionChecker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	assetRepo AssetRepository,
	txRepo TransactionRepository,
	debtRepo DebtRepository,
	idGen IDGenerator,
	perms PermissionChecker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager: txManager,
		assetRepo: assetRepo,
		txRepo:    txRepo,
		debtRepo:  debtRepo,
		idGen:     idGen,
		clock:     ClockFunc(systemNow),
		perms:     perms,
		metrics:   metrics,
		logger:    logger,
	}
}

// WithClock replaces the time source.
func (uc *LedgerUseCase) WithClock(clock Clock) *LedgerUseCase {
	uc.clock = clock
	return uc
}

// PostingLeg is one balance movement of a group.
type PostingLeg struct {
	AssetID     string
	Description string
	Amount      decimal.Decimal
}

// PostInput represents input for posting a transaction group.
// Operation is attached to the first leg, which becomes the group's primary transaction.
type PostInput struct {
	At          *time.Time
	Operation   domain.Operation
	GroupID     string
	Description string
	Party       string
	Actor       string
	Legs        []PostingLeg
}

// Post appends one transaction per leg and applies their postings in a single
// unit of work. Debt payments also move the installment's paid amount.
func (uc *LedgerUseCase) Post(ctx context.Context, input PostInput) ([]*domain.Transaction, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryTransactions, domain.ActionCreate); err != nil {
		uc.recordError(err)
		return nil, err
	}

	if err := validateLegs(input.Legs); err != nil {
		uc.recordError(err)
		return nil, err
	}

	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(txCtx)

	created, err := uc.post(txCtx, tx, input)
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		uc.recordError(err)
		return nil, err
	}

	kind := string(created[0].Kind())
	if kind == "" {
		kind = "manual"
	}
	if uc.metrics != nil {
		uc.metrics.OperationsRecorded.WithLabelValues(kind).Inc()
		uc.metrics.OperationDuration.Observe(time.Since(start).Seconds())
	}

	uc.logger.Info().
		Str("group_id", created[0].GroupID).
		Str("kind", kind).
		Int("legs", len(created)).
		Msg("transaction group posted")

	return created, nil
}

func (uc *LedgerUseCase) post(txCtx context.Context, tx Transaction, input PostInput) ([]*domain.Transaction, error) {
	assets, err := uc.assetRepo.GetByIDsForUpdate(txCtx, tx, uniqueAssetIDs(input.Legs))
	if err != nil {
		return nil, err
	}
	assetMap := make(map[string]*domain.Asset, len(assets))
	for _, a := range assets {
		assetMap[a.ID] = a
	}

	groupID := input.GroupID
	if groupID == "" {
		groupID = uc.idGen.Generate()
	} else {
		existing, err := uc.txRepo.ListByGroupForUpdate(txCtx, tx, groupID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, domain.NewValidationError("group_id", "group %q already exists", groupID)
		}
	}

	at := uc.clock.Now()
	if input.At != nil {
		at = input.At.UTC()
	}
	actor := actorLabel(txCtx, input.Actor)

	created := make([]*domain.Transaction, 0, len(input.Legs))
	postings := make([]domain.Posting, 0, len(input.Legs))
	for i, leg := range input.Legs {
		asset := assetMap[leg.AssetID]

		description := leg.Description
		if description == "" {
			description = input.Description
		}

		t := &domain.Transaction{
			ID:          uc.idGen.Generate(),
			GroupID:     groupID,
			CreatedAt:   at,
			Currency:    asset.Currency,
			AssetID:     asset.ID,
			Amount:      leg.Amount,
			Description: description,
			Party:       input.Party,
			Actor:       actor,
		}
		if i == 0 {
			t.Operation = input.Operation
		}

		if err := uc.txRepo.Append(txCtx, tx, t); err != nil {
			return nil, err
		}

		created = append(created, t)
		postings = append(postings, t.Posting())
	}

	if err := uc.assetRepo.ApplyPostings(txCtx, tx, postings); err != nil {
		return nil, err
	}

	if payment, ok := input.Operation.(domain.DebtPaymentOperation); ok {
		if err := uc.debtRepo.AdjustPaid(txCtx, tx, payment.DebtID, payment.InstallmentID, payment.Amount); err != nil {
			return nil, err
		}
	}

	return created, nil
}

func (uc *LedgerUseCase) recordError(err error) {
	if uc.metrics != nil {
		uc.metrics.OperationErrors.WithLabelValues(errorType(err)).Inc()
	}
}

// GetBalances returns read-only snapshots of every asset.
func (uc *LedgerUseCase) GetBalances(ctx context.Context) ([]*domain.Asset, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.assetRepo.List(ctx)
}

// GetTransaction retrieves a transaction by ID.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryTransactions, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.txRepo.GetByID(ctx, id)
}

// QueryTransactions returns a restartable sequence over the matching transactions.
func (uc *LedgerUseCase) QueryTransactions(ctx context.Context, filter domain.TransactionFilter) (iter.Seq[*domain.Transaction], error) {
	if err := authorize(ctx, uc.perms, domain.CategoryTransactions, domain.ActionView); err != nil {
		return nil, err
	}
	return uc.txRepo.Query(ctx, filter)
}

// ListTransactionsInput represents input for a paged transaction listing.
type ListTransactionsInput struct {
	Filter domain.TransactionFilter
	Limit  int
	Offset int
}

// ListTransactions pages through the matching transactions.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	seq, err := uc.QueryTransactions(ctx, input.Filter)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, limit)
	i := 0
	for t := range seq {
		if i >= offset {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
		i++
	}
	return out, nil
}

// GetHistoricalBalance returns the balance an asset had at a point in time,
// counting only transactions that are active now.
func (uc *LedgerUseCase) GetHistoricalBalance(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryAssets, domain.ActionView); err != nil {
		return decimal.Zero, err
	}

	asset, err := uc.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	seq, err := uc.txRepo.Query(ctx, domain.TransactionFilter{
		AssetID: assetID,
		Deleted: domain.ActiveOnly(),
		Range:   domain.DateRange{To: at},
	})
	if err != nil {
		return decimal.Zero, err
	}

	balance := asset.OpeningBalance
	for t := range seq {
		balance = balance.Add(t.Amount)
	}
	return balance, nil
}

func validateLegs(legs []PostingLeg) error {
	if len(legs) == 0 {
		return domain.NewValidationError("legs", "at least one leg is required")
	}
	for i, leg := range legs {
		if leg.AssetID == "" {
			return domain.NewValidationError("legs", "leg %d has no asset", i)
		}
		if leg.Amount.IsZero() {
			return domain.NewValidationError("legs", "leg %d has a zero amount", i)
		}
	}
	return nil
}

func uniqueAssetIDs(legs []PostingLeg) []string {
	seen := make(map[string]bool)

	var ids []string
	for _, leg := range legs {
		if !seen[leg.AssetID] {
			seen[leg.AssetID] = true
			ids = append(ids, leg.AssetID)
		}
	}

	return ids
}
