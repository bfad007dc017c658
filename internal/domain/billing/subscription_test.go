package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierByName(t *testing.T) {
	for _, tier := range AllTiers() {
		found, ok := TierByName(tier.Name)
		require.True(t, ok)
		assert.Equal(t, tier, found)
	}

	_, ok := TierByName("gold")
	assert.False(t, ok)
}

func TestNewSubscription(t *testing.T) {
	t.Run("basic expires in 30 days", func(t *testing.T) {
		sub := NewSubscription("user-1", TierBasic)

		assert.Equal(t, int64(1200), sub.MessagesLimit)
		assert.Equal(t, int64(1), sub.NumbersLimit)
		assert.True(t, sub.IsActive)
		require.NotNil(t, sub.ExpiresAt)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *sub.ExpiresAt, time.Minute)
		assert.False(t, sub.IsUnlimited())
		assert.False(t, sub.IsExpired())
	})

	t.Run("premium never expires", func(t *testing.T) {
		sub := NewSubscription("user-1", TierPremium)

		assert.Equal(t, Unlimited, sub.MessagesLimit)
		assert.Equal(t, Unlimited, sub.NumbersLimit)
		assert.Nil(t, sub.ExpiresAt)
		assert.True(t, sub.IsUnlimited())
		assert.False(t, sub.IsExpired())
	})
}

func TestIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	sub := &Subscription{ExpiresAt: &past}
	assert.True(t, sub.IsExpired())
}

func TestRateLimitWindows(t *testing.T) {
	settings := DefaultRateLimitSettings("user-1")
	windows := settings.Windows()

	require.Len(t, windows, 3)
	assert.Equal(t, "minute", windows[0].Name)
	assert.Equal(t, DefaultPerMinute, windows[0].Limit)
	assert.Equal(t, time.Minute, windows[0].Duration)
	assert.Equal(t, "hour", windows[1].Name)
	assert.Equal(t, DefaultPerHour, windows[1].Limit)
	assert.Equal(t, "day", windows[2].Name)
	assert.Equal(t, DefaultPerDay, windows[2].Limit)
	assert.Equal(t, 24*time.Hour, windows[2].Duration)
}

func TestRefundReferenceID(t *testing.T) {
	assert.Equal(t, "refund_send_abc", RefundReferenceID("send_abc"))
}
