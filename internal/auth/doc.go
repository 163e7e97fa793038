// Package auth provides bearer-token authentication and role authorization
// for the back-office API.
//
// # Tokens
//
// Codec signs and verifies HS256 JWTs carrying {accountId, username, role,
// iat, exp}. Verify checks the signature before the expiry, so
// ErrTokenExpired always means "authentic but stale" and ErrMalformedToken
// covers everything else: bad shape, wrong algorithm, missing claims and
// signature mismatch.
//
// # Pipeline
//
//	Gate.Authenticate  header -> Principal | Failure
//	Gate.RequireRole   Authenticate, then role membership (Forbidden)
//	Guard.WithAuth     RequireRole, then the Operation; writes exactly one response
//
// Operations never see the ResponseWriter. They return an envelope.Reply or
// an error, and the guard writes whichever outcome it holds. A panic in an
// operation is recovered and reported as an internal error.
//
// # Flows
//
//   - LoginFlow: shared access code -> admin token. The admin account is
//     created on first login. A wrong code is answered after a fixed delay.
//   - RefreshFlow: authentic token, expired or not -> fresh token for the
//     same identity. Tokens that fail signature verification are rejected.
//
// # Failures
//
// Every error returned by Gate, LoginFlow and RefreshFlow is a *Failure
// whose Kind fixes the HTTP status and the client message:
//
//	MissingToken         401  Token d'authentification manquant
//	InvalidToken         401  Token invalide
//	TokenExpired         401  Token expiré
//	Unauthorized         401  Utilisateur non autorisé
//	Forbidden            403  Accès refusé
//	BadRequest           400  Code d'accès requis
//	InvalidCredentials   401  Code d'accès invalide
//	ServerMisconfigured  500  Configuration serveur manquante
//	InternalError        500  Erreur interne du serveur
//
// There is no revocation: a signed token stays valid until it expires.
package auth
