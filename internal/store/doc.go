// Package store provides persistent storage for back-office accounts using SQLite.
//
// # Interfaces
//
//   - AccountStore: account lookup, create-if-absent per role, login stamping
//   - AuditStore: append-only authentication audit log
//
// SQLiteStore implements both in a single struct. MockStore is an in-memory
// implementation for unit tests.
//
// # Data Models
//
//   - Account: a back-office account with exactly one Role
//   - PublicAccount: the client-facing view of an Account
//   - AuditEntry: one authentication event (login, login_failed, ...)
//
// Each role has at most one account. The accounts table carries a unique
// index on role, and EnsureAccountForRole is an INSERT ... ON CONFLICT DO
// NOTHING followed by a read, so concurrent first logins see the same row.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Database file locations:
//
//   - Production: /var/lib/backoffice/backoffice.db
//   - Development: ~/.local/share/backoffice/backoffice.db
//   - Testing: a file under t.TempDir() or :memory:
//
// # Errors
//
//   - ErrAccountNotFound: no account matches the lookup
//   - ErrRoleTaken: CreateAccount for a role that already has an account
package store
