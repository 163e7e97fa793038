// ABOUTME: End-to-end scenario tests for auth using real SQLite
// ABOUTME: Validates login, verification, expiry and refresh without any mocking

package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classifieds/backoffice/internal/store"
)

// createTestStore creates a real SQLite store in a temp directory.
func createTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestScenario_LoginThenAuthenticate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	codec := NewCodec(testSecret, 7*24*time.Hour)

	login := NewLoginFlow(codec, s, s, LoginConfig{AccessCode: "secret123", DefaultAdmin: testAdmin}, nil, nil)
	before := time.Now().Add(-time.Second)
	session, err := login.Login(ctx, "secret123", "127.0.0.1:9000")
	require.NoError(t, err)

	// Account was created lazily, active, with lastLogin set to now
	account, err := s.GetAccountByRole(ctx, store.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	require.NotNil(t, session.User.LastLogin)
	assert.WithinDuration(t, time.Now(), *session.User.LastLogin, 5*time.Second)
	assert.True(t, session.User.LastLogin.After(before))

	gate := NewGate(codec, s, nil, nil)
	p, err := gate.RequireRole(ctx, bearer(session.Token), store.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, account.ID, p.ID)
	assert.Equal(t, store.RoleAdmin, p.Role)
	assert.Equal(t, "admin@example.com", p.Email)
}

func TestScenario_EightDayOldTokenRefreshed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	admin, err := s.EnsureAccountForRole(ctx, store.RoleAdmin, testAdmin)
	require.NoError(t, err)

	codec := NewCodec(testSecret, 7*24*time.Hour)
	old, err := codec.WithClock(fixedClock(time.Now().Add(-8*24*time.Hour))).
		Sign(Identity{AccountID: admin.ID, Username: admin.Username, Role: admin.Role})
	require.NoError(t, err)

	gate := NewGate(codec, s, nil, nil)
	_, err = gate.Authenticate(ctx, bearer(old))
	requireKind(t, err, KindTokenExpired)

	refresh := NewRefreshFlow(codec, s, s, nil, nil)
	session, err := refresh.Refresh(ctx, bearer(old), "")
	require.NoError(t, err)

	claims, err := codec.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AccountID)
	assert.Equal(t, store.RoleAdmin, claims.Role)

	// The new token passes the gate
	_, err = gate.Authenticate(ctx, bearer(session.Token))
	require.NoError(t, err)
}

func TestScenario_AlteredSignatureRejectedEverywhere(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	admin, err := s.EnsureAccountForRole(ctx, store.RoleAdmin, testAdmin)
	require.NoError(t, err)

	codec := NewCodec(testSecret, time.Hour)
	token, err := codec.Sign(Identity{AccountID: admin.ID, Username: admin.Username, Role: admin.Role})
	require.NoError(t, err)
	forged := tamperSignature(token)

	counting := &countingStore{AccountStore: s}

	_, err = NewGate(codec, counting, nil, nil).Authenticate(ctx, bearer(forged))
	requireKind(t, err, KindInvalidToken)

	_, err = NewRefreshFlow(codec, counting, s, nil, nil).Refresh(ctx, bearer(forged), "")
	requireKind(t, err, KindInvalidToken)

	assert.Equal(t, int32(0), counting.lookups.Load(), "account lookup must not be reached")
}

func TestScenario_DeactivatedAccountLosesAccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	codec := NewCodec(testSecret, time.Hour)

	login := NewLoginFlow(codec, s, s, LoginConfig{AccessCode: "secret123", DefaultAdmin: testAdmin}, nil, nil)
	session, err := login.Login(ctx, "secret123", "")
	require.NoError(t, err)

	require.NoError(t, s.SetAccountActive(ctx, session.User.ID, false))

	_, err = NewGate(codec, s, nil, nil).Authenticate(ctx, bearer(session.Token))
	requireKind(t, err, KindUnauthorized)

	_, err = NewRefreshFlow(codec, s, s, nil, nil).Refresh(ctx, bearer(session.Token), "")
	requireKind(t, err, KindUnauthorized)
}

func TestScenario_AuditTrail(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	codec := NewCodec(testSecret, time.Hour)

	login := NewLoginFlow(codec, s, s, LoginConfig{AccessCode: "secret123", DefaultAdmin: testAdmin}, nil, nil)
	login.sleep = func(context.Context, time.Duration) {}

	_, err := login.Login(ctx, "nope", "198.51.100.7:1")
	requireKind(t, err, KindInvalidCredentials)
	session, err := login.Login(ctx, "secret123", "198.51.100.7:2")
	require.NoError(t, err)
	_, err = NewRefreshFlow(codec, s, s, nil, nil).Refresh(ctx, bearer(session.Token), "198.51.100.7:3")
	require.NoError(t, err)

	entries, err := s.ListAuditLog(ctx, store.AuditFilter{})
	require.NoError(t, err)

	counts := map[store.AuditAction]int{}
	for _, e := range entries {
		counts[e.Action]++
	}
	assert.Equal(t, map[store.AuditAction]int{
		store.AuditLoginFailed:    1,
		store.AuditAccountCreated: 1,
		store.AuditLogin:          1,
		store.AuditTokenRefreshed: 1,
	}, counts)
}
