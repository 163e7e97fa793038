// ABOUTME: Token refresh: reissues a token for an authentic, possibly expired bearer token
// ABOUTME: Tokens whose signature does not verify are never refreshed

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/classifieds/backoffice/internal/store"
)

// RefreshFlow issues a fresh token for the identity in an authentic token,
// whether or not that token has expired.
type RefreshFlow struct {
	codec    *Codec
	accounts store.AccountStore
	audit    store.AuditStore
	observer Observer
	logger   *slog.Logger
}

// NewRefreshFlow creates a RefreshFlow. audit, observer and logger may be nil.
func NewRefreshFlow(codec *Codec, accounts store.AccountStore, audit store.AuditStore, observer Observer, logger *slog.Logger) *RefreshFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshFlow{
		codec:    codec,
		accounts: accounts,
		audit:    audit,
		observer: observerOrNop(observer),
		logger:   logger.With("component", "refresh"),
	}
}

// Refresh reissues the token carried by authHeader. The returned error is
// always a *Failure.
func (rf *RefreshFlow) Refresh(ctx context.Context, authHeader, remoteAddr string) (*Session, error) {
	session, f := rf.refresh(ctx, authHeader, remoteAddr)
	if f != nil {
		rf.observer.RecordFailure(ctx, f.Kind.String())
		logFailure(ctx, rf.logger, f, "remote_addr", remoteAddr)
		return nil, f
	}
	rf.observer.RecordTokenIssued(ctx, IssuedForRefresh)
	return session, nil
}

func (rf *RefreshFlow) refresh(ctx context.Context, authHeader, remoteAddr string) (*Session, *Failure) {
	token, ok := extractBearerToken(authHeader)
	if !ok {
		return nil, fail(KindMissingToken, nil)
	}
	if !rf.codec.Configured() {
		return nil, fail(KindServerMisconfigured, ErrSecretNotConfigured)
	}

	claims, err := rf.codec.Verify(token)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		// The signature was proven authentic before expiry was checked
		claims, err = rf.codec.DecodeUnverified(token)
		if err != nil {
			return nil, fail(KindInvalidToken, err)
		}
	default:
		return nil, classifyVerifyError(err)
	}

	account, f := lookupActiveAccount(ctx, rf.accounts, claims.AccountID)
	if f != nil {
		return nil, f
	}

	newToken, err := rf.codec.Sign(claims.Identity())
	if err != nil {
		return nil, fail(KindInternalError, err)
	}

	appendAudit(ctx, rf.audit, rf.logger, &store.AuditEntry{
		ActorAccountID: &account.ID,
		Action:         store.AuditTokenRefreshed,
		RemoteAddr:     remoteAddr,
	})

	rf.logger.DebugContext(ctx, "token refreshed", "account_id", account.ID)
	return &Session{Token: newToken, User: account.Public()}, nil
}
