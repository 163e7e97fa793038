// ABOUTME: Account store methods: lookup by id and role, create-if-absent, login stamping
// ABOUTME: EnsureAccountForRole relies on the unique role index for idempotent upserts

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRoleTaken is returned when creating an account for a role that already has one.
var ErrRoleTaken = errors.New("role already has an account")

const accountColumns = `id, username, email, role, is_active, last_login, schema_version, created_at, updated_at`

// scanAccount scans a row into an Account.
func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	var a Account
	var role, createdAtStr, updatedAtStr string
	var lastLoginStr sql.NullString
	var isActive int

	if err := scanner.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&role,
		&isActive,
		&lastLoginStr,
		&a.SchemaVersion,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	a.Role = Role(role)
	a.IsActive = isActive != 0

	var err error
	a.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if lastLoginStr.Valid {
		t, err := time.Parse(time.RFC3339, lastLoginStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_login: %w", err)
		}
		a.LastLogin = &t
	}

	return &a, nil
}

// GetAccount retrieves an account by ID.
// Returns ErrAccountNotFound if the account doesn't exist.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return scanAccount(s.db.QueryRowContext(ctx, query, id))
}

// GetAccountByRole retrieves the account holding role.
// Returns ErrAccountNotFound if no account has the role.
func (s *SQLiteStore) GetAccountByRole(ctx context.Context, role Role) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = ?`
	return scanAccount(s.db.QueryRowContext(ctx, query, role))
}

// CreateAccount inserts a new account. The ID and timestamps are generated
// if not set. Returns ErrRoleTaken if the role already has an account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *Account) error {
	if !a.Role.Valid() {
		return fmt.Errorf("invalid role %q", a.Role)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	a.SchemaVersion = currentSchemaVersion

	var lastLogin *string
	if a.LastLogin != nil {
		str := a.LastLogin.UTC().Format(time.RFC3339)
		lastLogin = &str
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.Username,
		a.Email,
		a.Role,
		boolToInt(a.IsActive),
		lastLogin,
		a.SchemaVersion,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrRoleTaken
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Debug("created account", "id", a.ID, "role", a.Role)
	return nil
}

// EnsureAccountForRole returns the account for role, inserting an active
// account built from defaults when none exists. The insert is a single
// INSERT ... ON CONFLICT DO NOTHING against the unique role index, so
// concurrent first logins converge on one row. Only the caller whose insert
// took effect writes the account_created audit entry.
func (s *SQLiteStore) EnsureAccountForRole(ctx context.Context, role Role, defaults AccountDefaults) (*Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, 1, NULL, ?, ?, ?)
		ON CONFLICT(role) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		defaults.Username,
		defaults.Email,
		role,
		currentSchemaVersion,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("ensuring account for role: %w", err)
	}

	account, err := s.GetAccountByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("created default account", "role", role, "username", defaults.Username)
		entry := &AuditEntry{
			ActorAccountID: &account.ID,
			Action:         AuditAccountCreated,
			Detail:         map[string]any{"role": string(role)},
		}
		if err := s.AppendAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to audit account creation", "error", err)
		}
	}

	return account, nil
}

// RecordLogin stamps the account's last login time.
// Returns ErrAccountNotFound if the account doesn't exist.
func (s *SQLiteStore) RecordLogin(ctx context.Context, id string, at time.Time) (*Account, error) {
	ts := at.UTC().Format(time.RFC3339)
	query := `UPDATE accounts SET last_login = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, ts, ts, id)
	if err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrAccountNotFound
	}

	s.logger.Debug("recorded login", "id", id)
	return s.GetAccount(ctx, id)
}

// SetAccountActive enables or disables an account. A disabled account fails
// authentication even when it presents a valid token.
func (s *SQLiteStore) SetAccountActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, boolToInt(active), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating account status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}

	s.logger.Debug("updated account status", "id", id, "active", active)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
