package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// GroupState summarizes the soft-delete flags of a group's members.
type GroupState string

const (
	GroupActive  GroupState = "active"
	GroupDeleted GroupState = "deleted"
	GroupMixed   GroupState = "mixed"
)

// GroupView is a transaction group with its primary transaction.
type GroupView struct {
	Primary *domain.Transaction
	ID      string
	Kind    domain.OperationKind
	State   GroupState
	Members []*domain.Transaction
}

func newGroupView(id string, members []*domain.Transaction) *GroupView {
	view := &GroupView{ID: id, Members: members}

	deleted := 0
	for _, m := range members {
		if m.Deleted {
			deleted++
		}
		if view.Primary == nil && m.Operation != nil {
			view.Primary = m
		}
	}
	if view.Primary == nil && len(members) > 0 {
		view.Primary = members[0]
	}
	if view.Primary != nil {
		view.Kind = view.Primary.Kind()
	}

	switch deleted {
	case 0:
		view.State = GroupActive
	case len(members):
		view.State = GroupDeleted
	default:
		view.State = GroupMixed
	}
	return view
}

// GroupUseCase reverses and restores transaction groups atomically.
type GroupUseCase struct {
	txManager TransactionManager
	assetRepo AssetRepository
	txRepo    TransactionRepository
	debtRepo  DebtRepository
	perms     PermissionChecker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewGroupUseCase creates a new GroupUseCase.
func NewGroupUseCase(
	txManager TransactionManager,
	assetRepo AssetRepository,
	txRepo TransactionRepository,
	debtRepo DebtRepository,
	perms PermissionChecker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *GroupUseCase {
	return &GroupUseCase{
		txManager: txManager,
		assetRepo: assetRepo,
		txRepo:    txRepo,
		debtRepo:  debtRepo,
		perms:     perms,
		metrics:   metrics,
		logger:    logger,
	}
}

// GetGroup returns the members of a group. ID is a group id or, for an
// ungrouped transaction, its transaction id.
func (uc *GroupUseCase) GetGroup(ctx context.Context, id string) (*GroupView, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryGroups, domain.ActionView); err != nil {
		return nil, err
	}

	members, err := uc.txRepo.ListByGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, &domain.NotFoundError{Resource: "group", ID: id}
	}
	return newGroupView(id, members), nil
}

// DeleteGroup soft-deletes every active member of a group and reverses its
// balance effects. Either every member is reversed or nothing changes.
func (uc *GroupUseCase) DeleteGroup(ctx context.Context, id string) (*GroupView, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryGroups, domain.ActionDelete); err != nil {
		return nil, err
	}
	return uc.flip(ctx, id, true)
}

// RestoreGroup re-activates every deleted member of a group and reapplies
// its balance effects. Either every member is restored or nothing changes.
func (uc *GroupUseCase) RestoreGroup(ctx context.Context, id string) (*GroupView, error) {
	if err := authorize(ctx, uc.perms, domain.CategoryGroups, domain.ActionRestore); err != nil {
		return nil, err
	}
	return uc.flip(ctx, id, false)
}

func (uc *GroupUseCase) flip(ctx context.Context, id string, deleting bool) (*GroupView, error) {
	action := "restore"
	if deleting {
		action = "delete"
	}
	log := uc.logger.With().Str("group_id", id).Str("action", action).Logger()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(txCtx)

	members, err := uc.txRepo.ListByGroupForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, &domain.NotFoundError{Resource: "group", ID: id}
	}

	// Members to flip are those whose flag differs from the target state.
	var targets []*domain.Transaction
	for _, m := range members {
		if m.Deleted != deleting {
			targets = append(targets, m)
		}
	}
	if len(targets) == 0 {
		err := uc.stateError(id, deleting)
		uc.rejected(err)
		log.Warn().Err(err).Msg("group reversal rejected")
		return nil, err
	}

	if err := uc.precheck(txCtx, tx, id, targets, deleting); err != nil {
		uc.rejected(err)
		log.Warn().Err(err).Msg("group reversal rejected")
		return nil, err
	}

	if err := uc.apply(txCtx, tx, targets, deleting); err != nil {
		err = &domain.PartialReversalError{GroupID: id, TransactionID: targets[0].ID, Err: err}
		uc.rejected(err)
		log.Error().Err(err).Msg("group reversal failed")
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	for _, m := range targets {
		m.Deleted = deleting
	}

	if uc.metrics != nil {
		if deleting {
			uc.metrics.GroupsDeleted.Inc()
		} else {
			uc.metrics.GroupsRestored.Inc()
		}
	}
	log.Info().Int("members", len(targets)).Msg("group flipped")

	return newGroupView(id, members), nil
}

func (uc *GroupUseCase) stateError(id string, deleting bool) error {
	if deleting {
		return &domain.AlreadyDeletedError{GroupID: id}
	}
	return &domain.AlreadyActiveError{GroupID: id}
}

// precheck verifies that every target can be flipped before anything is mutated.
func (uc *GroupUseCase) precheck(ctx context.Context, tx Transaction, groupID string, targets []*domain.Transaction, deleting bool) error {
	for _, t := range targets {
		if _, err := uc.assetRepo.GetByIDsForUpdate(ctx, tx, []string{t.AssetID}); err != nil {
			return &domain.PartialReversalError{GroupID: groupID, TransactionID: t.ID, Err: err}
		}

		payment, ok := t.Operation.(domain.DebtPaymentOperation)
		if !ok {
			continue
		}
		debt, err := uc.debtRepo.GetByIDForUpdate(ctx, tx, payment.DebtID)
		if err != nil {
			return &domain.PartialReversalError{GroupID: groupID, TransactionID: t.ID, Err: err}
		}
		inst, err := debt.Installment(payment.InstallmentID)
		if err != nil {
			return &domain.PartialReversalError{GroupID: groupID, TransactionID: t.ID, Err: err}
		}
		if err := inst.ValidatePaidDelta(paymentDelta(payment, deleting)); err != nil {
			return &domain.PartialReversalError{GroupID: groupID, TransactionID: t.ID, Err: err}
		}
	}
	return nil
}

func (uc *GroupUseCase) apply(ctx context.Context, tx Transaction, targets []*domain.Transaction, deleting bool) error {
	postings := make([]domain.Posting, 0, len(targets))
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if deleting {
			postings = append(postings, t.Reversal())
		} else {
			postings = append(postings, t.Posting())
		}
		ids = append(ids, t.ID)
	}

	if err := uc.assetRepo.ApplyPostings(ctx, tx, postings); err != nil {
		return err
	}

	for _, t := range targets {
		if payment, ok := t.Operation.(domain.DebtPaymentOperation); ok {
			if err := uc.debtRepo.AdjustPaid(ctx, tx, payment.DebtID, payment.InstallmentID, paymentDelta(payment, deleting)); err != nil {
				return err
			}
		}
	}

	return uc.txRepo.SetDeleted(ctx, tx, ids, deleting)
}

func (uc *GroupUseCase) rejected(err error) {
	if uc.metrics != nil {
		uc.metrics.ReversalsRejected.WithLabelValues(errorType(err)).Inc()
	}
}

func paymentDelta(p domain.DebtPaymentOperation, deleting bool) decimal.Decimal {
	if deleting {
		return p.Amount.Neg()
	}
	return p.Amount
}
