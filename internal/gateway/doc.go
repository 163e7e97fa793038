// Package gateway serves the back-office authentication API over HTTP.
//
// # Overview
//
// The gateway owns the HTTP server and wires the auth core to it: the token
// codec, the gate and guard that protect routes, and the login and refresh
// flows. It also owns the store and, when enabled, the Prometheus exporter.
//
// # HTTP API
//
//   - POST /api/auth/login - Exchange the access code for a token
//   - POST /api/auth/refresh - Reissue a token, accepted even when expired
//   - GET /api/auth/verify - Return the caller's principal (admin)
//   - GET /api/admin/audit - List auth audit entries (admin)
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (store ping)
//   - GET <metrics.path> - Prometheus scrape, when metrics are enabled
//
// Every /api/ response is a JSON envelope {success, data?, error?, message?}.
// A wrong method yields 405 and an unknown /api/ path 404, both as envelopes.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx) // blocks until ctx is canceled, then shuts down
//
// Shutdown drains in-flight requests for up to five seconds, then closes
// the metrics provider and the store.
package gateway
