// ABOUTME: Shared fixtures for auth tests: codecs, clocks, observers and store wrappers
// ABOUTME: Store wrappers count lookups and inject failures without SQLite

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classifieds/backoffice/internal/store"
)

// testSecret is a 32-byte HS256 secret.
var testSecret = []byte("backoffice-test-secret-32-bytes!")

var testAdmin = store.AccountDefaults{Username: "admin", Email: "admin@example.com"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seedAdmin creates the admin account in s and returns it.
func seedAdmin(t *testing.T, s *store.MockStore) *store.Account {
	t.Helper()
	a, err := s.EnsureAccountForRole(context.Background(), store.RoleAdmin, testAdmin)
	require.NoError(t, err)
	return a
}

// seedViewer creates an active viewer account in s and returns it.
func seedViewer(t *testing.T, s *store.MockStore) *store.Account {
	t.Helper()
	a := &store.Account{Username: "viewer", Email: "viewer@example.com", Role: store.RoleViewer, IsActive: true}
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return a
}

func signFor(t *testing.T, codec *Codec, a *store.Account) string {
	t.Helper()
	token, err := codec.Sign(Identity{AccountID: a.ID, Username: a.Username, Role: a.Role})
	require.NoError(t, err)
	return token
}

func bearer(token string) string { return "Bearer " + token }

// tamperSignature flips the first character of the signature segment.
func tamperSignature(token string) string {
	i := strings.LastIndex(token, ".") + 1
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

// countingStore counts account lookups.
type countingStore struct {
	store.AccountStore
	lookups atomic.Int32
}

func (c *countingStore) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	c.lookups.Add(1)
	return c.AccountStore.GetAccount(ctx, id)
}

// brokenStore fails every call with err.
type brokenStore struct {
	err error
}

func (b brokenStore) GetAccount(context.Context, string) (*store.Account, error) { return nil, b.err }
func (b brokenStore) GetAccountByRole(context.Context, store.Role) (*store.Account, error) {
	return nil, b.err
}
func (b brokenStore) EnsureAccountForRole(context.Context, store.Role, store.AccountDefaults) (*store.Account, error) {
	return nil, b.err
}
func (b brokenStore) RecordLogin(context.Context, string, time.Time) (*store.Account, error) {
	return nil, b.err
}

// brokenAudit fails every append.
type brokenAudit struct{}

func (brokenAudit) AppendAuditLog(context.Context, *store.AuditEntry) error {
	return errors.New("audit unavailable")
}
func (brokenAudit) ListAuditLog(context.Context, store.AuditFilter) ([]store.AuditEntry, error) {
	return nil, errors.New("audit unavailable")
}

// recordingObserver captures observer calls.
type recordingObserver struct {
	mu       sync.Mutex
	failures []string
	issued   []string
}

func (o *recordingObserver) RecordFailure(_ context.Context, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, kind)
}

func (o *recordingObserver) RecordTokenIssued(_ context.Context, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued = append(o.issued, reason)
}

// requireKind asserts err is a *Failure of kind k.
func requireKind(t *testing.T, err error, k Kind) {
	t.Helper()
	require.Error(t, err)
	var f *Failure
	require.True(t, errors.As(err, &f), "expected *Failure, got %T: %v", err, err)
	require.Equal(t, k, f.Kind, "failure: %v", err)
}
