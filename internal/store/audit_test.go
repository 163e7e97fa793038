// ABOUTME: Tests for audit log store operations
// ABOUTME: Covers Append and List with filtering for the audit_log table

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAuditStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := &AuditEntry{
		ActorAccountID: strPtr("account-123"),
		Action:         AuditLogin,
		RemoteAddr:     "10.0.0.1:5555",
		Detail:         map[string]any{"role": "admin"},
	}

	err := store.AppendAuditLog(ctx, entry)
	require.NoError(t, err)

	// Should have generated ID and timestamp
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "account-123", *entries[0].ActorAccountID)
	assert.Equal(t, "10.0.0.1:5555", entries[0].RemoteAddr)
	assert.Equal(t, "admin", entries[0].Detail["role"])
}

func TestAuditStore_Append_NoActor(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: AuditLoginFailed}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorAccountID)
	assert.Empty(t, entries[0].RemoteAddr)
	assert.Nil(t, entries[0].Detail)
}

func TestAuditStore_Append_UnknownAction(t *testing.T) {
	store := setupTestStore(t)

	err := store.AppendAuditLog(context.Background(), &AuditEntry{Action: AuditAction("delete_everything")})
	assert.Error(t, err)
}

func TestAuditStore_List_NoFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, action := range []AuditAction{AuditAccountCreated, AuditLogin, AuditTokenRefreshed} {
		entry := &AuditEntry{
			ActorAccountID: strPtr("account-123"),
			Action:         action,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Should be newest first
	assert.Equal(t, AuditTokenRefreshed, entries[0].Action)
	assert.Equal(t, AuditAccountCreated, entries[2].Action)
}

func TestAuditStore_List_SameSecondNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: AuditAccountCreated, Timestamp: ts}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: AuditLogin, Timestamp: ts}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, AuditLogin, entries[0].Action)
}

func TestAuditStore_List_BySince(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	baseTime := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &AuditEntry{
			Action:    AuditLogin,
			Timestamp: baseTime.Add(time.Duration(i) * 10 * time.Minute),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	// Filter to entries after 15 minutes in
	since := baseTime.Add(15 * time.Minute)
	entries, err := store.ListAuditLog(ctx, AuditFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, entries, 1) // Only entry at 20 minutes
}

func TestAuditStore_List_ByUntil(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	baseTime := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &AuditEntry{
			Action:    AuditLogin,
			Timestamp: baseTime.Add(time.Duration(i) * 10 * time.Minute),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))
	}

	until := baseTime.Add(5 * time.Minute)
	entries, err := store.ListAuditLog(ctx, AuditFilter{Until: &until})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAuditStore_List_ByActor(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, actor := range []string{"actor-1", "actor-2", "actor-1"} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ActorAccountID: strPtr(actor),
			Action:         AuditLogin,
		}))
	}
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: AuditLoginFailed}))

	entries, err := store.ListAuditLog(ctx, AuditFilter{ActorAccountID: strPtr("actor-1")})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	for _, e := range entries {
		assert.Equal(t, "actor-1", *e.ActorAccountID)
	}
}

func TestAuditStore_List_ByAction(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, action := range []AuditAction{AuditLogin, AuditLoginFailed, AuditLoginFailed} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: action}))
	}

	action := AuditLoginFailed
	entries, err := store.ListAuditLog(ctx, AuditFilter{Action: &action})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditStore_List_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{Action: AuditLogin}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditStore_List_Empty(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.ListAuditLog(context.Background(), AuditFilter{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestNormalizeAuditLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-3, 50},
		{1, 1},
		{50, 50},
		{500, 500},
		{501, 500},
		{10000, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAuditLimit(tt.in), "limit %d", tt.in)
	}
}
