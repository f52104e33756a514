// Package gateway holds the outbound clients of the payment providers.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrUnavailable is returned when a provider cannot be reached or answers
// with a non-success HTTP status. Callers map it to 503 so the provider
// (or client) retries.
var ErrUnavailable = errors.New("payment gateway unavailable")

// ValidSignature reports whether signature is the hex HMAC-SHA256 of body
// keyed with secret. Comparison is constant time.
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
