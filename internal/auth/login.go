// ABOUTME: Access-code login: exchanges the shared code for a signed admin token
// ABOUTME: A wrong code waits a fixed delay before failing; this is not rate limiting

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/classifieds/backoffice/internal/store"
)

// DefaultFailedLoginDelay is the wait applied before rejecting a wrong access code.
const DefaultFailedLoginDelay = time.Second

// Token issue reasons reported to the Observer.
const (
	IssuedForLogin   = "login"
	IssuedForRefresh = "refresh"
)

// Session is the result of a successful login or refresh.
type Session struct {
	Token string              `json:"token"`
	User  store.PublicAccount `json:"user"`
}

// LoginConfig holds the login flow settings.
type LoginConfig struct {
	AccessCode     string                // plain shared code
	AccessCodeHash string                // bcrypt hash, takes precedence over AccessCode
	FailureDelay   time.Duration         // 0 means DefaultFailedLoginDelay
	DefaultAdmin   store.AccountDefaults // used when the admin account is first created
}

// LoginFlow exchanges the shared access code for an admin session.
type LoginFlow struct {
	codec    *Codec
	accounts store.AccountStore
	audit    store.AuditStore
	cfg      LoginConfig
	observer Observer
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewLoginFlow creates a LoginFlow. audit, observer and logger may be nil.
func NewLoginFlow(codec *Codec, accounts store.AccountStore, audit store.AuditStore, cfg LoginConfig, observer Observer, logger *slog.Logger) *LoginFlow {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureDelay <= 0 {
		cfg.FailureDelay = DefaultFailedLoginDelay
	}
	return &LoginFlow{
		codec:    codec,
		accounts: accounts,
		audit:    audit,
		cfg:      cfg,
		observer: observerOrNop(observer),
		logger:   logger.With("component", "login"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Configured reports whether both the signing secret and an access code are set.
func (l *LoginFlow) Configured() bool {
	return l.codec.Configured() && (l.cfg.AccessCode != "" || l.cfg.AccessCodeHash != "")
}

// Login validates code and issues a token for the admin account, creating
// the account on first use. The returned error is always a *Failure.
func (l *LoginFlow) Login(ctx context.Context, code, remoteAddr string) (*Session, error) {
	session, f := l.login(ctx, code, remoteAddr)
	if f != nil {
		l.observer.RecordFailure(ctx, f.Kind.String())
		logFailure(ctx, l.logger, f, "remote_addr", remoteAddr)
		return nil, f
	}
	l.observer.RecordTokenIssued(ctx, IssuedForLogin)
	return session, nil
}

func (l *LoginFlow) login(ctx context.Context, code, remoteAddr string) (*Session, *Failure) {
	if code == "" {
		return nil, fail(KindBadRequest, nil)
	}
	if !l.Configured() {
		return nil, fail(KindServerMisconfigured, errors.New("jwt secret or access code not configured"))
	}

	if !l.matches(code) {
		l.record(ctx, &store.AuditEntry{Action: store.AuditLoginFailed, RemoteAddr: remoteAddr})
		l.sleep(ctx, l.cfg.FailureDelay)
		return nil, fail(KindInvalidCredentials, nil)
	}

	account, err := l.accounts.EnsureAccountForRole(ctx, store.RoleAdmin, l.cfg.DefaultAdmin)
	if err != nil {
		return nil, fail(KindInternalError, err)
	}
	if !account.IsActive {
		return nil, fail(KindUnauthorized, errors.New("admin account is inactive"))
	}

	account, err = l.accounts.RecordLogin(ctx, account.ID, l.now())
	if err != nil {
		return nil, fail(KindInternalError, err)
	}

	token, err := l.codec.Sign(Identity{AccountID: account.ID, Username: account.Username, Role: account.Role})
	if err != nil {
		return nil, fail(KindInternalError, err)
	}

	l.record(ctx, &store.AuditEntry{
		ActorAccountID: &account.ID,
		Action:         store.AuditLogin,
		RemoteAddr:     remoteAddr,
	})

	l.logger.InfoContext(ctx, "admin logged in", "account_id", account.ID, "remote_addr", remoteAddr)
	return &Session{Token: token, User: account.Public()}, nil
}

// matches compares code with the configured access code in constant time,
// or against the bcrypt hash when one is configured.
func (l *LoginFlow) matches(code string) bool {
	if l.cfg.AccessCodeHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(l.cfg.AccessCodeHash), []byte(code)) == nil
	}
	// Hash both sides so the comparison does not leak the code length
	got := sha256.Sum256([]byte(code))
	want := sha256.Sum256([]byte(l.cfg.AccessCode))
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// record appends an audit entry. Failures are logged and never fail the flow.
func (l *LoginFlow) record(ctx context.Context, e *store.AuditEntry) {
	appendAudit(ctx, l.audit, l.logger, e)
}

func appendAudit(ctx context.Context, audit store.AuditStore, logger *slog.Logger, e *store.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.AppendAuditLog(ctx, e); err != nil {
		logger.WarnContext(ctx, "failed to append audit entry", "action", e.Action, "error", err)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
