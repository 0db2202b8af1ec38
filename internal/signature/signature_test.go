package signature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	secret, err := GenerateSecret(DefaultSecretLength)
	require.NoError(t, err)

	payloads := []any{
		"plain string payload",
		map[string]any{"event": "payment.success", "amount": 1000},
		map[string]any{"nested": map[string]any{"a": 1, "b": []string{"x", "y"}}},
		json.RawMessage(`{"event":"order.created","data":{"order_id":"42"}}`),
	}

	for _, payload := range payloads {
		sig, err := Sign(payload, secret)
		require.NoError(t, err)
		assert.True(t, Verify(payload, sig, secret))
	}
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	secret := "test-secret"
	payload := map[string]any{"event": "payment.success", "amount": 1000}

	sig, err := Sign(payload, secret)
	require.NoError(t, err)

	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, Verify(payload, string(mutated), secret), "mutation at byte %d accepted", i)
	}
}

func TestVerifyRejectsLengthMismatch(t *testing.T) {
	secret := "test-secret"
	payload := "body"

	sig, err := Sign(payload, secret)
	require.NoError(t, err)

	assert.False(t, Verify(payload, sig[:len(sig)-1], secret))
	assert.False(t, Verify(payload, sig+"00", secret))
	assert.False(t, Verify(payload, "", secret))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload := map[string]any{"event": "payment.refunded"}

	sig, err := Sign(payload, "secret-a")
	require.NoError(t, err)

	assert.False(t, Verify(payload, sig, "secret-b"))
}

func TestEmbeddedSignatureFieldIsStripped(t *testing.T) {
	secret := "test-secret"

	with := map[string]any{"event": "coupon.issued", "data": map[string]any{"code": "X1"}, "signature": "garbage"}
	without := map[string]any{"event": "coupon.issued", "data": map[string]any{"code": "X1"}}

	sigWith, err := Sign(with, secret)
	require.NoError(t, err)
	sigWithout, err := Sign(without, secret)
	require.NoError(t, err)

	assert.Equal(t, sigWithout, sigWith)
	assert.True(t, Verify(with, sigWithout, secret))
}

func TestRawBodyWithoutSignatureFieldIsSignedAsReceived(t *testing.T) {
	secret := "test-secret"
	// Key order deliberately not sorted; bytes must be signed untouched.
	body := json.RawMessage(`{"zeta":1,"alpha":2}`)

	canonical, err := Canonicalize(body)
	require.NoError(t, err)
	assert.Equal(t, []byte(body), canonical)

	sig, err := Sign(body, secret)
	require.NoError(t, err)
	assert.True(t, Verify(body, sig, secret))
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)

	assert.Len(t, a, 64) // hex doubles the byte length
	assert.NotEqual(t, a, b)

	def, err := GenerateSecret(0)
	require.NoError(t, err)
	assert.Len(t, def, DefaultSecretLength*2)
}

func TestSignNilPayload(t *testing.T) {
	_, err := Sign(nil, "secret")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
