// ABOUTME: Account types and the AccountStore contract used by the auth core
// ABOUTME: Defines roles, the public account view, and store sentinel errors

package store

import (
	"context"
	"errors"
	"time"
)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = errors.New("account not found")

// Role is the enumerated account role.
type Role string

const (
	// RoleAdmin is the single privileged role, unlocked by the shared access code.
	RoleAdmin Role = "admin"
	// RoleViewer is a non-privileged role. Role gates that require admin reject it.
	RoleViewer Role = "viewer"
)

// ValidRoles lists all valid roles.
var ValidRoles = []Role{RoleAdmin, RoleViewer}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// currentSchemaVersion is stamped on every account row written by this package.
const currentSchemaVersion = 1

// Account is a back-office account. The store is its sole mutator.
type Account struct {
	ID            string
	Username      string
	Email         string
	Role          Role
	IsActive      bool
	LastLogin     *time.Time
	SchemaVersion int // internal, never exposed to clients
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicAccount is the account view returned to clients.
type PublicAccount struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Public returns the client-facing view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		LastLogin: a.LastLogin,
	}
}

// AccountDefaults are the attributes used when an account is created for a role.
type AccountDefaults struct {
	Username string
	Email    string
}

// AccountStore is the persistence contract the auth core depends on.
type AccountStore interface {
	// GetAccount returns the account with the given ID, or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*Account, error)

	// GetAccountByRole returns the account holding role, or ErrAccountNotFound.
	GetAccountByRole(ctx context.Context, role Role) (*Account, error)

	// EnsureAccountForRole returns the account for role, creating an active
	// one from defaults if none exists. Concurrent callers observe the same
	// account.
	EnsureAccountForRole(ctx context.Context, role Role, defaults AccountDefaults) (*Account, error)

	// RecordLogin sets the account's last login time and returns the updated account.
	RecordLogin(ctx context.Context, id string, at time.Time) (*Account, error)
}

// AuditStore records and lists authentication audit entries.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}
