package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignPayload computes the hex-encoded HMAC-SHA256 of body under secret.
// The body must be the exact bytes that go on the wire; signing happens
// after serialization, never before.
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against body and secret using
// a constant-time comparison. Accepts plain hex or the "sha256=<hex>" form.
func VerifySignature(body []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")
	received, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expected, received) == 1
}
