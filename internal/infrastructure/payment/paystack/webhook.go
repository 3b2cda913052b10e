package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// SignatureHeaderName carries the hex HMAC-SHA512 of the raw body.
const SignatureHeaderName = "X-Paystack-Signature"

var (
	ErrMissingSignature = errors.New("paystack: missing signature header")
	ErrNoValidSignature = errors.New("paystack: signature does not match the payload")
)

// WebhookVerifier signs with the account secret key; Paystack has no
// separate webhook secret.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secretKey string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secretKey)}
}

func (v *WebhookVerifier) Verify(payload []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrNoValidSignature
	}
	if !hmac.Equal(got, sign(v.secret, payload)) {
		return ErrNoValidSignature
	}
	return nil
}

func sign(secret, payload []byte) []byte {
	mac := hmac.New(sha512.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Signature returns the header value for payload; used by tests and tooling.
func Signature(secretKey string, payload []byte) string {
	return hex.EncodeToString(sign([]byte(secretKey), payload))
}
