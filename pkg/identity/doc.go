// Package identity carries the authenticated agent of an admin API request.
//
// The middleware package validates the bearer token; this package holds
// the resulting claims plus request context such as the client address.
//
// # Basic Usage
//
//	id := identity.New(claims.Subject, claims.IssuedAt.Time, claims.ExpiresAt.Time).
//	    WithRemoteIP(identity.RemoteIP(r.RemoteAddr))
//
//	// Store in request context
//	ctx = identity.Set(ctx, id)
//
//	// Retrieve from context
//	id, ok := identity.Get(ctx)
package identity
