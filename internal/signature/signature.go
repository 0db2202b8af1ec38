package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultSecretLength is the number of random bytes backing a partner secret.
const DefaultSecretLength = 32

var ErrInvalidPayload = errors.New("invalid_payload")

// Sign serializes payload to its canonical form and returns the hex-encoded
// HMAC-SHA256 over it. String and []byte payloads are signed as-is; any other
// payload is JSON-encoded with an embedded "signature" field stripped first.
func Sign(payload any, secret string) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the expected signature and compares it in constant time.
// A length mismatch short-circuits to false before the byte comparison.
func Verify(payload any, signature, secret string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	if len(signature) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}

// GenerateSecret returns length cryptographically random bytes, hex-encoded.
// Called once at partner registration; the secret is never re-displayed.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Canonicalize produces the byte form both signer and verifier operate on.
// The payload's own "signature" field is excluded so the signature never
// covers itself.
func Canonicalize(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, ErrInvalidPayload
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return stripSignatureField(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, ErrInvalidPayload
		}
		return stripSignatureField(raw)
	}
}

func stripSignatureField(raw []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Not an object; arrays and scalars carry no signature field.
		return raw, nil
	}
	if _, ok := fields["signature"]; !ok {
		// Untouched raw bytes stay valid: the sender signed exactly what
		// went over the wire.
		return raw, nil
	}
	delete(fields, "signature")
	// encoding/json sorts map keys, so signer and verifier agree on field
	// order after the strip regardless of the original wire order.
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	return out, nil
}
