package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/munashe04/buyza/pkg/identity"
)

// Issuer is the iss claim of admin tokens
const Issuer = "buyza"

var (
	// ErrMissingSecret is returned when no signing secret is configured
	ErrMissingSecret = errors.New("admin JWT secret is not configured")
	// ErrMissingSubject is returned when a token would have no agent
	ErrMissingSubject = errors.New("token subject is required")
)

// JWTAuthenticator is middleware that validates HS256 bearer tokens issued
// to agents
type JWTAuthenticator struct {
	secret []byte
	now    func() time.Time
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, now: time.Now}
}

// Issue signs a token for subject valid for ttl
func (j *JWTAuthenticator) Issue(subject string, ttl time.Duration) (string, error) {
	if len(j.secret) == 0 {
		return "", ErrMissingSecret
	}
	if strings.TrimSpace(subject) == "" {
		return "", ErrMissingSubject
	}
	now := j.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Parse validates a token and returns the agent identity it carries
func (j *JWTAuthenticator) Parse(tokenString string) (*identity.Identity, error) {
	if len(j.secret) == 0 {
		return nil, ErrMissingSecret
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	var iat time.Time
	if claims.IssuedAt != nil {
		iat = claims.IssuedAt.Time
	}
	return identity.New(claims.Subject, iat, claims.ExpiresAt.Time), nil
}

// Middleware returns an HTTP middleware that validates bearer tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Authorization missing"))
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Malformed authorization header"))
			return
		}

		id, err := j.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			if errors.Is(err, jwt.ErrTokenExpired) {
				_, _ = w.Write([]byte("Token expired"))
				return
			}
			_, _ = w.Write([]byte("Invalid token"))
			return
		}

		id.WithRemoteIP(identity.RemoteIP(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}
