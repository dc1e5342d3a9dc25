package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutHours(t *testing.T) {
	tests := []struct {
		provider Provider
		hours    int
	}{
		{ProviderPayPal, 168},
		{ProviderVenmo, 72},
		{ProviderCashApp, 72},
		{ProviderZelle, 48},
		{Provider("wire"), 168}, // unknown falls back to the longest window
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.hours, TimeoutHours(tt.provider))
			assert.Equal(t, time.Duration(tt.hours)*time.Hour, TimeoutDuration(tt.provider))
		})
	}
}

func TestMinTimeoutDuration(t *testing.T) {
	assert.Equal(t, 48*time.Hour, MinTimeoutDuration())
}

func TestIsPaymentTimedOut(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("zelle past 48h is expired", func(t *testing.T) {
		assert.True(t, IsPaymentTimedOut(now.Add(-49*time.Hour), ProviderZelle, now))
	})

	t.Run("zelle under 48h is live", func(t *testing.T) {
		assert.False(t, IsPaymentTimedOut(now.Add(-47*time.Hour), ProviderZelle, now))
	})

	t.Run("exactly at the boundary is live", func(t *testing.T) {
		assert.False(t, IsPaymentTimedOut(now.Add(-48*time.Hour), ProviderZelle, now))
	})

	t.Run("paypal gets the full week", func(t *testing.T) {
		assert.False(t, IsPaymentTimedOut(now.Add(-100*time.Hour), ProviderPayPal, now))
		assert.True(t, IsPaymentTimedOut(now.Add(-169*time.Hour), ProviderPayPal, now))
	})
}

func TestIsPaymentNearTimeout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inside warning window", func(t *testing.T) {
		// 48h zelle timeout, 10h remaining, 12h window
		assert.True(t, IsPaymentNearTimeout(now.Add(-38*time.Hour), ProviderZelle, now, 12*time.Hour))
	})

	t.Run("outside warning window", func(t *testing.T) {
		assert.False(t, IsPaymentNearTimeout(now.Add(-30*time.Hour), ProviderZelle, now, 12*time.Hour))
	})

	t.Run("already expired is not near", func(t *testing.T) {
		assert.False(t, IsPaymentNearTimeout(now.Add(-49*time.Hour), ProviderZelle, now, 12*time.Hour))
	})

	t.Run("zero window uses default", func(t *testing.T) {
		assert.True(t, IsPaymentNearTimeout(now.Add(-38*time.Hour), ProviderZelle, now, 0))
	})
}

func TestFormatTimeRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt time.Time
		provider  Provider
		want      string
	}{
		{"days and hours", now.Add(-115 * time.Hour), ProviderPayPal, "2d 5h remaining"},
		{"hours and minutes", now.Add(-45*time.Hour - 30*time.Minute), ProviderZelle, "2h 30m remaining"},
		{"minutes only", now.Add(-47*time.Hour - 15*time.Minute), ProviderZelle, "45m remaining"},
		{"expired", now.Add(-49 * time.Hour), ProviderZelle, "Expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRemaining(tt.createdAt, tt.provider, now))
		})
	}
}
