package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewSessionToken(t *testing.T) {
	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)

		for i := 0; i < 100; i++ {
			token, err := NewSessionToken()
			require.NoError(t, err)
			assert.False(t, seen[token])
			seen[token] = true
		}
	})

	t.Run("token encodes 32 bytes", func(t *testing.T) {
		token, err := NewSessionToken()
		require.NoError(t, err)

		// 32 bytes -> 43 chars of unpadded base64url
		assert.Equal(t, 43, len(token))
	})
}
