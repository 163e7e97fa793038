// ABOUTME: Bearer token authentication and role gating for protected requests
// ABOUTME: Resolves the Authorization header into a Principal or a classified Failure

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/classifieds/backoffice/internal/store"
)

// Observer receives auth pipeline outcomes, typically for metrics.
type Observer interface {
	RecordFailure(ctx context.Context, kind string)
	RecordTokenIssued(ctx context.Context, reason string)
}

type nopObserver struct{}

func (nopObserver) RecordFailure(context.Context, string)     {}
func (nopObserver) RecordTokenIssued(context.Context, string) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns false when the header is absent, not of the form "Bearer <token>", or the token is empty.
func extractBearerToken(authHeader string) (string, bool) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Gate authenticates bearer tokens against the codec and the account store.
// It never mutates the store.
type Gate struct {
	codec    *Codec
	accounts store.AccountStore
	observer Observer
	logger   *slog.Logger
}

// NewGate creates a Gate. observer and logger may be nil.
func NewGate(codec *Codec, accounts store.AccountStore, observer Observer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		codec:    codec,
		accounts: accounts,
		observer: observerOrNop(observer),
		logger:   logger.With("component", "auth"),
	}
}

// Authenticate resolves authHeader into a Principal. The returned error is
// always a *Failure.
func (g *Gate) Authenticate(ctx context.Context, authHeader string) (*Principal, error) {
	p, f := g.authenticate(ctx, authHeader)
	if f != nil {
		g.reject(ctx, f)
		return nil, f
	}
	return p, nil
}

// RequireRole authenticates authHeader and then requires the principal to
// hold one of allowed. An authentication failure is returned unchanged and
// the role check is skipped.
func (g *Gate) RequireRole(ctx context.Context, authHeader string, allowed ...store.Role) (*Principal, error) {
	p, err := g.Authenticate(ctx, authHeader)
	if err != nil {
		return nil, err
	}
	if !p.HasRole(allowed...) {
		f := fail(KindForbidden, nil)
		g.reject(ctx, f, "account_id", p.ID, "role", p.Role)
		return nil, f
	}
	return p, nil
}

func (g *Gate) authenticate(ctx context.Context, authHeader string) (*Principal, *Failure) {
	token, ok := extractBearerToken(authHeader)
	if !ok {
		return nil, fail(KindMissingToken, nil)
	}
	if !g.codec.Configured() {
		return nil, fail(KindServerMisconfigured, ErrSecretNotConfigured)
	}

	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, classifyVerifyError(err)
	}

	account, f := lookupActiveAccount(ctx, g.accounts, claims.AccountID)
	if f != nil {
		return nil, f
	}

	return &Principal{
		ID:       claims.AccountID,
		Username: claims.Username,
		Email:    account.Email,
		Role:     claims.Role,
	}, nil
}

// classifyVerifyError maps Codec.Verify errors onto failure kinds.
func classifyVerifyError(err error) *Failure {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return fail(KindTokenExpired, err)
	case errors.Is(err, ErrSecretNotConfigured):
		return fail(KindServerMisconfigured, err)
	default:
		return fail(KindInvalidToken, err)
	}
}

// lookupActiveAccount loads the account and requires it to be active.
func lookupActiveAccount(ctx context.Context, accounts store.AccountStore, id string) (*store.Account, *Failure) {
	account, err := accounts.GetAccount(ctx, id)
	if errors.Is(err, store.ErrAccountNotFound) {
		return nil, fail(KindUnauthorized, err)
	}
	if err != nil {
		return nil, fail(KindInternalError, err)
	}
	if !account.IsActive {
		return nil, fail(KindUnauthorized, errors.New("account is inactive"))
	}
	return account, nil
}

// reject records and logs a failure. Only internal errors are logged at error level.
func (g *Gate) reject(ctx context.Context, f *Failure, attrs ...any) {
	g.observer.RecordFailure(ctx, f.Kind.String())
	logFailure(ctx, g.logger, f, attrs...)
}

// logFailure logs an auth failure with structured context.
func logFailure(ctx context.Context, logger *slog.Logger, f *Failure, attrs ...any) {
	baseAttrs := []any{"kind", f.Kind.String()}
	if f.Err != nil {
		baseAttrs = append(baseAttrs, "error", f.Err)
	}
	baseAttrs = append(baseAttrs, attrs...)

	switch f.Kind {
	case KindInternalError:
		logger.ErrorContext(ctx, "auth internal error", baseAttrs...)
	case KindServerMisconfigured:
		logger.WarnContext(ctx, "auth misconfigured", baseAttrs...)
	default:
		logger.InfoContext(ctx, "auth failure", baseAttrs...)
	}
}
