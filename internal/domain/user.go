package domain

import (
	"context"
	"errors"
)

// User is the caller an operation is performed on behalf of.
type User struct {
	ID   string
	Name string
	Role Role
}

// Label returns the actor label recorded on transactions.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"

	// RoleOperator records operations and closes capital, but cannot reverse groups or import state
	RoleOperator Role = "operator"

	// RoleViewer can only view resources, no mutations
	RoleViewer Role = "viewer"
)

// Permission categories.
const (
	CategoryAssets       = "assets"
	CategoryTransactions = "transactions"
	CategoryGroups       = "groups"
	CategoryDebts        = "debts"
	CategoryCapital      = "capital"
	CategoryProfit       = "profit"
	CategoryBackup       = "backup"
	CategorySettings     = "settings"
)

// Permission actions.
const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionDelete  = "delete"
	ActionRestore = "restore"
	ActionClose   = "close"
	ActionExport  = "export"
	ActionImport  = "import"
	ActionUpdate  = "update"
)

// Permission is one (category, action) grant.
type Permission struct {
	Category string
	Action   string
}

var viewAll = []Permission{
	{CategoryAssets, ActionView},
	{CategoryTransactions, ActionView},
	{CategoryGroups, ActionView},
	{CategoryDebts, ActionView},
	{CategoryCapital, ActionView},
	{CategoryProfit, ActionView},
	{CategorySettings, ActionView},
}

var grants = map[Role]map[Permission]bool{
	RoleViewer: permissionSet(viewAll),
	RoleOperator: permissionSet(viewAll,
		Permission{CategoryTransactions, ActionCreate},
		Permission{CategoryDebts, ActionCreate},
		Permission{CategoryCapital, ActionClose},
		Permission{CategoryBackup, ActionExport},
		Permission{CategorySettings, ActionUpdate},
	),
}

func permissionSet(base []Permission, extra ...Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(base)+len(extra))
	for _, p := range base {
		set[p] = true
	}
	for _, p := range extra {
		set[p] = true
	}
	return set
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleViewer
}

// Can reports whether the role grants action on category. Admins are granted everything.
func (r Role) Can(category, action string) bool {
	if r == RoleAdmin {
		return true
	}
	return grants[r][Permission{Category: category, Action: action}]
}

type userContextKey struct{}

// WithUser attaches the calling user to ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the calling user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
