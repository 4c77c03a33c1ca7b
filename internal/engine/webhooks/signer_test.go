package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	// RFC-known HMAC-SHA256 vector.
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestSign_KeySensitive(t *testing.T) {
	payload := []byte(`{"event":"escalation.triggered"}`)
	assert.NotEqual(t, Sign("a", payload), Sign("b", payload))
	assert.Equal(t, Sign("a", payload), Sign("a", payload))
}
