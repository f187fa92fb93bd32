package auth

import (
	"context"

	"github.com/iho/fxledger/internal/domain"
)

// RoleChecker grants (category, action) pairs by the role of the user
// carried in the context. A context without a user is denied.
type RoleChecker struct{}

// HasPermission implements usecase.PermissionChecker.
func (RoleChecker) HasPermission(ctx context.Context, category, action string) bool {
	user, ok := domain.UserFromContext(ctx)
	if !ok || user == nil {
		return false
	}
	return user.Role.Can(category, action)
}
