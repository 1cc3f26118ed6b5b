// Package server provides the HTTP server of the Buyza bot.
//
// The server routes with gorilla/mux and wraps the router with
// gorilla/handlers for access logging, proxy headers and panic recovery.
// Every request carries an X-Request-ID.
//
//	srv := server.NewServer(cfg, svc, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	err := srv.Run(ctx)
//
// Optional parts are plain fields set before registering endpoints:
//
//   - Orders and HealthStore: the PostgreSQL order mirror
//   - Checks: extra readiness probes such as Redis
//   - JWT: the admin API authenticator, set by NewServer when an admin
//     secret is configured
package server
