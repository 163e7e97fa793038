// ABOUTME: Mock account and audit store for testing
// ABOUTME: Allows tests to run without SQLite while keeping the one-account-per-role rule

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory AccountStore and AuditStore for testing.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by account ID
	byRole   map[Role]string     // role -> account ID
	audit    []AuditEntry
}

var (
	_ AccountStore = (*MockStore)(nil)
	_ AuditStore   = (*MockStore)(nil)
)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
		byRole:   make(map[Role]string),
	}
}

// CreateAccount stores a new account. Returns ErrRoleTaken if the role already has one.
func (m *MockStore) CreateAccount(ctx context.Context, a *Account) error {
	if !a.Role.Valid() {
		return fmt.Errorf("invalid role %q", a.Role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byRole[a.Role]; ok {
		return ErrRoleTaken
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

	// Make a copy to avoid external modification
	stored := *a
	m.accounts[stored.ID] = &stored
	m.byRole[stored.Role] = stored.ID
	return nil
}

// GetAccount retrieves an account by ID.
func (m *MockStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return copyAccount(a), nil
}

// GetAccountByRole retrieves the account holding role.
func (m *MockStore) GetAccountByRole(ctx context.Context, role Role) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byRole[role]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return copyAccount(m.accounts[id]), nil
}

// EnsureAccountForRole returns the account for role, creating an active one if absent.
func (m *MockStore) EnsureAccountForRole(ctx context.Context, role Role, defaults AccountDefaults) (*Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byRole[role]; ok {
		return copyAccount(m.accounts[id]), nil
	}

	now := time.Now().UTC().Truncate(time.Second)
	a := &Account{
		ID:            uuid.New().String(),
		Username:      defaults.Username,
		Email:         defaults.Email,
		Role:          role,
		IsActive:      true,
		SchemaVersion: currentSchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.accounts[a.ID] = a
	m.byRole[role] = a.ID
	m.audit = append(m.audit, AuditEntry{
		ID:             uuid.New().String(),
		ActorAccountID: &a.ID,
		Action:         AuditAccountCreated,
		Timestamp:      now,
		Detail:         map[string]any{"role": string(role)},
	})
	return copyAccount(a), nil
}

// RecordLogin stamps the account's last login time.
func (m *MockStore) RecordLogin(ctx context.Context, id string, at time.Time) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	ts := at.UTC().Truncate(time.Second)
	a.LastLogin = &ts
	a.UpdatedAt = ts
	return copyAccount(a), nil
}

// SetAccountActive enables or disables an account.
func (m *MockStore) SetAccountActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.IsActive = active
	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return nil
}

// AppendAuditLog appends an audit entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns matching audit entries, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []AuditEntry{}
	// Walk backwards so equal timestamps keep newest-append-first order after the stable sort
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Until != nil && e.Timestamp.After(*f.Until) {
			continue
		}
		if f.ActorAccountID != nil && (e.ActorAccountID == nil || *e.ActorAccountID != *f.ActorAccountID) {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit := NormalizeAuditLimit(f.Limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func copyAccount(a *Account) *Account {
	c := *a
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	return &c
}
