// ABOUTME: Closed failure taxonomy for the auth pipeline and its HTTP mapping
// ABOUTME: Every Kind has a fixed status code and a fixed client-facing message

package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an auth pipeline failure.
type Kind int

const (
	KindMissingToken Kind = iota + 1
	KindInvalidToken
	KindTokenExpired
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindInvalidCredentials
	KindServerMisconfigured
	KindInternalError
)

// Kinds lists every failure kind.
var Kinds = []Kind{
	KindMissingToken,
	KindInvalidToken,
	KindTokenExpired,
	KindUnauthorized,
	KindForbidden,
	KindBadRequest,
	KindInvalidCredentials,
	KindServerMisconfigured,
	KindInternalError,
}

// String returns the snake_case name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindTokenExpired:
		return "token_expired"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindServerMisconfigured:
		return "server_misconfigured"
	case KindInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindMissingToken, KindInvalidToken, KindTokenExpired, KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindServerMisconfigured, KindInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for the kind.
func (k Kind) Message() string {
	switch k {
	case KindMissingToken:
		return "Token d'authentification manquant"
	case KindInvalidToken:
		return "Token invalide"
	case KindTokenExpired:
		return "Token expiré"
	case KindUnauthorized:
		return "Utilisateur non autorisé"
	case KindForbidden:
		return "Accès refusé"
	case KindBadRequest:
		return "Code d'accès requis"
	case KindInvalidCredentials:
		return "Code d'accès invalide"
	case KindServerMisconfigured:
		return "Configuration serveur manquante"
	default:
		return "Erreur interne du serveur"
	}
}

// Failure is a classified auth failure. Err carries the underlying cause,
// which is logged but never sent to the client.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// fail builds a Failure of kind k wrapping cause.
func fail(k Kind, cause error) *Failure {
	return &Failure{Kind: k, Err: cause}
}

// AsFailure classifies err. A *Failure anywhere in the chain is returned as
// is; anything else becomes an InternalError wrapping err.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return fail(KindInternalError, err)
}

// IsKind reports whether err is a Failure of kind k.
func IsKind(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == k
}
