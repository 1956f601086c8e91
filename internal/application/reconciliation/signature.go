package reconciliation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureVerifier checks the x-xero-signature header of a webhook delivery.
// The key is always the configured string's raw bytes.
type SignatureVerifier struct {
	key []byte
}

// NewSignatureVerifier creates a verifier for the given webhook key
func NewSignatureVerifier(webhookKey string) *SignatureVerifier {
	return &SignatureVerifier{key: []byte(webhookKey)}
}

// Sign returns base64(HMAC-SHA256(key, body))
func (v *SignatureVerifier) Sign(body []byte) string {
	h := hmac.New(sha256.New, v.key)
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches body. An empty key or signature
// never verifies.
func (v *SignatureVerifier) Verify(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(v.key) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(signature))
}
