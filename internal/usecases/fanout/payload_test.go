package fanout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasgate/internal/domain/webhook"
)

func TestBuildPayload(t *testing.T) {
	success := true
	evt := webhook.Event{
		UserID:    "user-1",
		SessionID: "session-1",
		Name:      "otp_sent",
		Success:   &success,
		Fields: map[string]any{
			"recipient": "9647701234567",
			"code":      "123456",
		},
		Timestamp: time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
	}

	t.Run("base fields", func(t *testing.T) {
		payload := BuildPayload(evt, &webhook.Webhook{})

		assert.Equal(t, "otp_sent", payload["event"])
		assert.Equal(t, "session-1", payload["sessionId"])
		assert.Equal(t, "2026-08-24T10:30:00Z", payload["timestamp"])
		assert.Equal(t, true, payload["success"])
		assert.Equal(t, "9647701234567", payload["recipient"])
		assert.Equal(t, "123456", payload["code"])
	})

	t.Run("custom payload wins on conflict", func(t *testing.T) {
		wh := &webhook.Webhook{
			CustomPayload: map[string]any{
				"tenant": "acme",
				"code":   "masked",
			},
		}
		payload := BuildPayload(evt, wh)

		assert.Equal(t, "acme", payload["tenant"])
		assert.Equal(t, "masked", payload["code"])
		assert.Equal(t, "otp_sent", payload["event"])
	})

	t.Run("success omitted when event has no outcome", func(t *testing.T) {
		neutral := evt
		neutral.Success = nil
		payload := BuildPayload(neutral, &webhook.Webhook{})

		_, ok := payload["success"]
		assert.False(t, ok)
	})
}

func TestDeepMerge(t *testing.T) {
	base := map[string]any{
		"a": 1,
		"nested": map[string]any{
			"keep":     "base",
			"override": "base",
		},
	}
	overlay := map[string]any{
		"b": 2,
		"nested": map[string]any{
			"override": "overlay",
			"extra":    true,
		},
	}

	merged := deepMerge(base, overlay)

	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 2, merged["b"])

	nested, ok := merged["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "base", nested["keep"])
	assert.Equal(t, "overlay", nested["override"])
	assert.Equal(t, true, nested["extra"])
}

func TestBuildHeaders(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		headers := BuildHeaders(&webhook.Webhook{})
		assert.Equal(t, "application/json", headers["Content-Type"])
		assert.Equal(t, "Wasgate-Webhook/1.0", headers["User-Agent"])
	})

	t.Run("user headers win", func(t *testing.T) {
		headers := BuildHeaders(&webhook.Webhook{
			Headers: map[string]string{
				"Content-Type":  "application/json; charset=utf-8",
				"Authorization": "Bearer token",
			},
		})
		assert.Equal(t, "application/json; charset=utf-8", headers["Content-Type"])
		assert.Equal(t, "Bearer token", headers["Authorization"])
		assert.Equal(t, "Wasgate-Webhook/1.0", headers["User-Agent"])
	})
}
