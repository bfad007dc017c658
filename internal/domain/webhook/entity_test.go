package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }

func TestAttempts(t *testing.T) {
	tests := []struct {
		name     string
		webhook  Webhook
		expected int
	}{
		{"retry disabled always single attempt", Webhook{RetryOnFail: false, MaxAttempts: 7}, 1},
		{"configured attempts", Webhook{RetryOnFail: true, MaxAttempts: 5}, 5},
		{"zero falls back to default", Webhook{RetryOnFail: true}, DefaultMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.webhook.Attempts())
		})
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, DefaultRetryDelay, (&Webhook{}).RetryDelay())
	assert.Equal(t, 12*time.Second, (&Webhook{RetryDelaySec: 12}).RetryDelay())
}

func TestTargetURL(t *testing.T) {
	wh := &Webhook{
		URL:        "https://example.com/hook",
		SuccessURL: "https://example.com/ok",
		FailureURL: "https://example.com/fail",
	}

	assert.Equal(t, "https://example.com/hook", wh.TargetURL(nil))
	assert.Equal(t, "https://example.com/ok", wh.TargetURL(boolPtr(true)))
	assert.Equal(t, "https://example.com/fail", wh.TargetURL(boolPtr(false)))

	plain := &Webhook{URL: "https://example.com/hook"}
	assert.Equal(t, "https://example.com/hook", plain.TargetURL(boolPtr(true)))
	assert.Equal(t, "https://example.com/hook", plain.TargetURL(boolPtr(false)))
}

func TestIncomingTypes(t *testing.T) {
	tests := []struct {
		messageType string
		expected    []Type
	}{
		{"text", []Type{TypeIncomingText, TypeIncomingMessage}},
		{"media", []Type{TypeIncomingMedia, TypeIncomingMessage}},
		{"location", []Type{TypeIncomingLocation, TypeIncomingMessage}},
	}

	for _, tt := range tests {
		t.Run(tt.messageType, func(t *testing.T) {
			assert.Equal(t, tt.expected, IncomingTypes(tt.messageType))
		})
	}
}

func TestTypeIsValid(t *testing.T) {
	for _, v := range ValidTypes() {
		assert.True(t, v.IsValid())
	}
	assert.False(t, Type("bogus").IsValid())
	assert.False(t, Type("").IsValid())
}
