package polar

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTolerance = 5 * time.Minute
	secretPrefix     = "whsec_"
)

var (
	ErrMissingHeaders   = errors.New("polar: missing webhook headers")
	ErrInvalidTimestamp = errors.New("polar: invalid webhook timestamp")
	ErrTimestampExpired = errors.New("polar: webhook timestamp outside tolerance")
	ErrNoValidSignature = errors.New("polar: no signature matches the payload")
)

// WebhookVerifier implements the Standard Webhooks scheme Polar signs
// deliveries with.
type WebhookVerifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier accepts either a "whsec_" prefixed base64 secret or the
// raw secret string shown in the Polar dashboard.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{key: signingKey(secret), tolerance: DefaultTolerance, now: time.Now}
}

func signingKey(secret string) []byte {
	if rest, ok := strings.CutPrefix(secret, secretPrefix); ok {
		if key, err := base64.StdEncoding.DecodeString(rest); err == nil {
			return key
		}
	}
	return []byte(secret)
}

// Verify checks webhook-signature against "id.timestamp.payload".
func (v *WebhookVerifier) Verify(payload []byte, id, timestamp, signature string) error {
	if id == "" || timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrTimestampExpired
	}

	expected := sign(v.key, id, ts, payload)
	for _, candidate := range strings.Fields(signature) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(raw, expected) {
			return nil
		}
	}
	return ErrNoValidSignature
}

func sign(key []byte, id string, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%d.", id, ts)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeader returns a webhook-signature value; used by tests and tooling.
func SignatureHeader(secret, id string, at time.Time, payload []byte) string {
	return "v1," + base64.StdEncoding.EncodeToString(sign(signingKey(secret), id, at.Unix(), payload))
}
