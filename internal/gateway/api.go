// ABOUTME: HTTP API handlers for login, refresh, token verification and the audit log
// ABOUTME: Every response, success or failure, is a JSON envelope

package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/classifieds/backoffice/internal/auth"
	"github.com/classifieds/backoffice/internal/envelope"
	"github.com/classifieds/backoffice/internal/store"
)

// Success messages.
const (
	msgLoginOK   = "Connexion réussie"
	msgRefreshOK = "Token rafraîchi"
	msgVerifyOK  = "Token valide"
)

// Routing failure messages.
const (
	msgMethodNotAllowed = "Méthode non autorisée"
	msgNotFound         = "Route non trouvée"
	msgInvalidParam     = "Paramètre invalide"
)

// maxBodyBytes caps request bodies read by the API.
const maxBodyBytes = 64 << 10

// LoginRequest is the JSON request body for POST /api/auth/login.
type LoginRequest struct {
	Code string `json:"code"`
}

// VerifyResponse is the data of GET /api/auth/verify.
type VerifyResponse struct {
	Principal *auth.Principal     `json:"principal"`
	User      store.PublicAccount `json:"user"`
}

// AuditListResponse is the data of GET /api/admin/audit.
type AuditListResponse struct {
	Entries []store.AuditEntry `json:"entries"`
	Limit   int                `json:"limit"`
}

// registerHTTPAPIRoutes registers the /api/ routes on mux.
func (g *Gateway) registerHTTPAPIRoutes(mux *http.ServeMux) {
	mux.Handle("/api/auth/login", allowMethod(http.MethodPost, http.HandlerFunc(g.handleLogin)))
	mux.Handle("/api/auth/refresh", allowMethod(http.MethodPost, http.HandlerFunc(g.handleRefresh)))
	mux.Handle("/api/auth/verify", allowMethod(http.MethodGet, g.guard.WithAuth(g.verify, store.RoleAdmin)))
	mux.Handle("/api/admin/audit", allowMethod(http.MethodGet, g.guard.WithAuth(g.listAudit, store.RoleAdmin)))
	mux.HandleFunc("/api/", handleNotFound)
}

// allowMethod rejects requests with any other method before next runs.
func allowMethod(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			envelope.Write(w, envelope.Fail(http.StatusMethodNotAllowed, msgMethodNotAllowed))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	envelope.Write(w, envelope.Fail(http.StatusNotFound, msgNotFound))
}

// handleLogin handles POST /api/auth/login.
// A body that is not valid JSON is treated as carrying no code.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, &req); jsonErr != nil {
			g.logger.Debug("login body is not valid JSON", "error", jsonErr)
			req = LoginRequest{}
		}
	}

	session, err := g.login.Login(r.Context(), req.Code, r.RemoteAddr)
	if err != nil {
		envelope.Write(w, auth.FailureReply(err))
		return
	}
	envelope.Write(w, envelope.OK(session, msgLoginOK))
}

// handleRefresh handles POST /api/auth/refresh.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session, err := g.refresh.Refresh(r.Context(), r.Header.Get("Authorization"), r.RemoteAddr)
	if err != nil {
		envelope.Write(w, auth.FailureReply(err))
		return
	}
	envelope.Write(w, envelope.OK(session, msgRefreshOK))
}

// verify returns the authenticated principal and its account.
func (g *Gateway) verify(r *http.Request, p *auth.Principal) (envelope.Reply, error) {
	account, err := g.store.GetAccount(r.Context(), p.ID)
	if err != nil {
		return envelope.Reply{}, fmt.Errorf("loading account %s: %w", p.ID, err)
	}
	return envelope.OK(VerifyResponse{Principal: p, User: account.Public()}, msgVerifyOK), nil
}

// listAudit returns recent audit entries, newest first.
// Query parameters: limit, action, since, until (RFC3339).
func (g *Gateway) listAudit(r *http.Request, _ *auth.Principal) (envelope.Reply, error) {
	filter, ok := parseAuditFilter(r)
	if !ok {
		return envelope.Fail(http.StatusBadRequest, msgInvalidParam), nil
	}

	entries, err := g.store.ListAuditLog(r.Context(), filter)
	if err != nil {
		return envelope.Reply{}, fmt.Errorf("listing audit log: %w", err)
	}
	return envelope.OK(AuditListResponse{Entries: entries, Limit: filter.Limit}, ""), nil
}

func parseAuditFilter(r *http.Request) (store.AuditFilter, bool) {
	q := r.URL.Query()
	var f store.AuditFilter

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, false
		}
		f.Limit = n
	}
	f.Limit = store.NormalizeAuditLimit(f.Limit)

	if v := q.Get("action"); v != "" {
		action := store.AuditAction(v)
		if !validAuditAction(action) {
			return f, false
		}
		f.Action = &action
	}

	for key, dst := range map[string]**time.Time{"since": &f.Since, "until": &f.Until} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, false
		}
		*dst = &t
	}

	return f, true
}

func validAuditAction(a store.AuditAction) bool {
	for _, valid := range store.ValidAuditActions {
		if a == valid {
			return true
		}
	}
	return false
}
