// Package middleware provides the HTTP middleware of the Buyza server:
// HS256 bearer token authentication for the admin API and request ID
// propagation.
package middleware
