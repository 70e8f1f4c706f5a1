package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac-sha256 of "<t>.<body>">"
const SignatureHeader = "Payment-Signature"

// SignPayload builds a signature header value for body, the same way the
// provider does. Used by tests and local tooling.
func SignPayload(secret string, at time.Time, body []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, computeSignature(secret, ts, body))
}

func computeSignature(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks header against body. Any v1 entry may match so the
// provider can rotate secrets. tolerance <= 0 disables the timestamp check.
func verifySignature(header string, body []byte, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}

	var ts string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if ts == "" || len(candidates) == 0 {
		return fmt.Errorf("%w: header missing timestamp or signature", ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	expected := []byte(computeSignature(secret, ts, body))
	for _, candidate := range candidates {
		if hmac.Equal(expected, []byte(strings.ToLower(candidate))) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}
