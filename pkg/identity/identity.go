package identity

import (
	"context"
	"net"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity is the agent behind an admin API request.
type Identity struct {
	// Token claims
	Agent     string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// New creates an Identity for agent with the token's lifetime.
func New(agent string, issuedAt, expiresAt time.Time) *Identity {
	return &Identity{
		Agent:     agent,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// ClientIP returns the remote address as a string, or "-" when unknown.
func (i *Identity) ClientIP() string {
	if i == nil || i.RemoteIP == nil {
		return "-"
	}
	return i.RemoteIP.String()
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

// RemoteIP extracts the client address from a host:port remote address.
func RemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}
