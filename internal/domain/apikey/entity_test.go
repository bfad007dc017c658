package apikey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	// 32 bytes em base64 url-safe sem padding são 43 caracteres
	assert.Len(t, key, len(KeyPrefix)+43)
}

func TestGenerateKeyIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key generated")
		seen[key] = true
	}
}

func TestNew(t *testing.T) {
	key, err := New("user-1", "session-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", key.UserID)
	assert.Equal(t, "session-1", key.SessionID)
	assert.True(t, key.IsActive)
	assert.NotEqual(t, key.Key, key.Secret)
	assert.True(t, strings.HasPrefix(key.Key, KeyPrefix))
	assert.False(t, strings.HasPrefix(key.Secret, KeyPrefix))
	assert.NotZero(t, key.ID)
	assert.False(t, key.CreatedAt.IsZero())
}
