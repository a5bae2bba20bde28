package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const sessionTokenBytes = 32

// NewSessionToken mints an unguessable bearer token: 32 bytes from
// crypto/rand, base64url without padding.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("NewSessionToken: failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
