// Package signature authenticates webhook deliveries signed with
// X-Hub-Signature-256 (hex HMAC-SHA256 of the raw body).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Header carries the body signature.
const Header = "X-Hub-Signature-256"

// Prefix precedes the hex digest in Header.
const Prefix = "sha256="

var (
	ErrMissingSignature = errors.New("signature header is required")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Compute returns the header value a sender holding secret would attach to body.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header is the signature of body under secret.
// Surrounding whitespace in header is ignored.
func Verify(secret string, body []byte, header string) bool {
	received := strings.TrimSpace(header)
	if received == "" || !strings.HasPrefix(received, Prefix) {
		return false
	}

	expected := Compute(secret, body)
	if len(expected) != len(received) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// Verifier checks request headers against a fixed app secret.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the X-Hub-Signature-256 header against body.
func (v *Verifier) Verify(headers http.Header, body []byte) error {
	header := headers.Get(Header)
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}
	if !Verify(v.secret, body, header) {
		return ErrInvalidSignature
	}
	return nil
}
