package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader is the header Meta signs webhook bodies with
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

var (
	// ErrMissingSignature is returned when the signature header is absent
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrMalformedSignature is returned when the header is not sha256=<hex>
	ErrMalformedSignature = errors.New("malformed webhook signature")
	// ErrInvalidSignature is returned when the HMAC does not match
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrVerificationFailed is returned by VerifySubscription on mismatch
	ErrVerificationFailed = errors.New("webhook verification failed")
)

// VerifySubscription validates the GET handshake Meta performs when the
// webhook is registered and returns the challenge to echo back.
func VerifySubscription(mode, token, challenge, expectedToken string) (string, error) {
	if mode != "subscribe" || expectedToken == "" || token != expectedToken {
		return "", ErrVerificationFailed
	}
	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// HMAC-SHA256 of the raw body keyed with the app secret.
func VerifySignature(body []byte, header, appSecret string) error {
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrMalformedSignature
	}
	received, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrMalformedSignature
	}

	if !hmac.Equal(received, Sign(body, appSecret)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the raw HMAC-SHA256 of body with secret
func Sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue renders the header value Meta would send for body
func SignatureHeaderValue(body []byte, secret string) string {
	return signaturePrefix + hex.EncodeToString(Sign(body, secret))
}
