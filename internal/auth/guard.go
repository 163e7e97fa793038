// ABOUTME: HandlerGuard wraps protected operations behind the role gate
// ABOUTME: The guard is the only place that writes the response, so each request gets exactly one

package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/classifieds/backoffice/internal/envelope"
	"github.com/classifieds/backoffice/internal/store"
)

// Operation is a protected handler body. It receives the authenticated
// principal and returns the reply to send; it never touches the ResponseWriter.
// A returned *Failure is sent with its own status; any other error becomes an
// InternalError.
type Operation func(r *http.Request, p *Principal) (envelope.Reply, error)

// Guard turns Operations into http.Handlers protected by a Gate.
type Guard struct {
	gate   *Gate
	logger *slog.Logger
}

// NewGuard creates a Guard over gate. logger may be nil.
func NewGuard(gate *Gate, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{gate: gate, logger: logger.With("component", "guard")}
}

// WithAuth protects op. With no allowed roles any authenticated principal is
// accepted. op runs only after the gate succeeds.
func (g *Guard) WithAuth(op Operation, allowed ...store.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope.Write(w, g.run(r, op, allowed))
	})
}

// run resolves the single reply for the request.
func (g *Guard) run(r *http.Request, op Operation, allowed []store.Role) envelope.Reply {
	header := r.Header.Get("Authorization")

	var p *Principal
	var err error
	if len(allowed) == 0 {
		p, err = g.gate.Authenticate(r.Context(), header)
	} else {
		p, err = g.gate.RequireRole(r.Context(), header, allowed...)
	}
	if err != nil {
		// Already logged and counted by the gate
		return FailureReply(err)
	}

	r = r.WithContext(WithPrincipal(r.Context(), p))
	reply, err := g.invoke(r, p, op)
	if err != nil {
		f := AsFailure(err)
		logFailure(r.Context(), g.logger, f, "path", r.URL.Path, "account_id", p.ID)
		return FailureReply(f)
	}
	return reply
}

// invoke calls op, converting a panic into an error.
func (g *Guard) invoke(r *http.Request, p *Principal, op Operation) (reply envelope.Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("operation panicked: %v\n%s", rec, debug.Stack())
		}
	}()
	return op(r, p)
}

// FailureReply renders err as an error envelope. Unclassified errors get the
// generic internal error message.
func FailureReply(err error) envelope.Reply {
	f := AsFailure(err)
	return envelope.Fail(f.Kind.Status(), f.Kind.Message())
}
