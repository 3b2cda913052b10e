package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum age of a signed delivery.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("stripe: missing signature header")
	ErrInvalidHeader    = errors.New("stripe: malformed signature header")
	ErrTimestampExpired = errors.New("stripe: signature timestamp outside tolerance")
	ErrNoValidSignature = errors.New("stripe: no signature matches the payload")
)

// WebhookVerifier checks the Stripe-Signature header of a delivery.
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret), tolerance: DefaultTolerance, now: time.Now}
}

// Verify accepts the delivery when any v1 signature is the HMAC-SHA256 of
// "timestamp.payload" and the timestamp is within tolerance.
func (v *WebhookVerifier) Verify(payload []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}

	var (
		timestamp  int64
		signatures [][]byte
		haveTime   bool
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrInvalidHeader)
			}
			timestamp = ts
			haveTime = true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if !haveTime || len(signatures) == 0 {
		return ErrInvalidHeader
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrTimestampExpired
	}

	expected := Sign(v.secret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrNoValidSignature
}

// Sign computes the raw v1 signature.
func Sign(secret []byte, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeader builds a header value for payload; used by tests and tooling.
func SignatureHeader(secret string, at time.Time, payload []byte) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(Sign([]byte(secret), ts, payload)))
}
