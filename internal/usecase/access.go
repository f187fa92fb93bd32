package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/fxledger/internal/domain"
)

// authorize returns ErrPermissionDenied when checker denies the action.
// A nil checker allows everything.
func authorize(ctx context.Context, checker PermissionChecker, category, action string) error {
	if checker == nil || checker.HasPermission(ctx, category, action) {
		return nil
	}
	return fmt.Errorf("%w: %s.%s", domain.ErrPermissionDenied, category, action)
}

// actorLabel prefers an explicit label, then the calling user.
func actorLabel(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if user, ok := domain.UserFromContext(ctx); ok {
		return user.Label()
	}
	return ""
}

// errorType classifies an error for metric labels.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyDeleted):
		return "already_deleted"
	case errors.Is(err, domain.ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, domain.ErrPartialReversal):
		return "partial_reversal"
	case errors.Is(err, domain.ErrAllocationMismatch):
		return "allocation_mismatch"
	case errors.Is(err, domain.ErrMissingRate):
		return "missing_rate"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}
