package send

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		hasError bool
	}{
		{
			name:     "plain international number",
			input:    "9647701234567",
			expected: "9647701234567",
		},
		{
			name:     "leading plus",
			input:    "+9647701234567",
			expected: "9647701234567",
		},
		{
			name:     "spaces and dashes",
			input:    "+964 770-123-4567",
			expected: "9647701234567",
		},
		{
			name:     "parentheses",
			input:    "(964) 7701234567",
			expected: "9647701234567",
		},
		{
			name:     "minimum length",
			input:    "123456789",
			expected: "123456789",
		},
		{
			name:     "maximum length",
			input:    "123456789012345",
			expected: "123456789012345",
		},
		{
			name:     "too short",
			input:    "12345678",
			hasError: true,
		},
		{
			name:     "too long",
			input:    "1234567890123456",
			hasError: true,
		},
		{
			name:     "letters only",
			input:    "abcdefghij",
			hasError: true,
		},
		{
			name:     "empty",
			input:    "",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRecipient(tt.input)
			if tt.hasError {
				assert.ErrorIs(t, err, ErrInvalidRecipient)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeRecipientIsIdempotent(t *testing.T) {
	once, err := NormalizeRecipient("+964 770 123 4567")
	require.NoError(t, err)

	twice, err := NormalizeRecipient(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
