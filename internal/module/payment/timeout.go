package payment

import (
	"fmt"
	"time"
)

// Provider-keyed confirmation timeouts. Channels with slower settlement get
// longer windows; an unknown provider falls back to the most conservative one.
const (
	defaultTimeoutHours = 168 // one week
	paypalTimeoutHours  = 168
	venmoTimeoutHours   = 72
	cashAppTimeoutHours = 72
	zelleTimeoutHours   = 48
)

// DefaultWarningWindow is how long before the hard expiry the near-timeout
// warning fires.
const DefaultWarningWindow = 12 * time.Hour

// TimeoutHours returns the confirmation timeout in hours for a provider.
func TimeoutHours(p Provider) int {
	switch p {
	case ProviderPayPal:
		return paypalTimeoutHours
	case ProviderVenmo:
		return venmoTimeoutHours
	case ProviderCashApp:
		return cashAppTimeoutHours
	case ProviderZelle:
		return zelleTimeoutHours
	default:
		return defaultTimeoutHours
	}
}

// TimeoutDuration returns the confirmation timeout for a provider.
func TimeoutDuration(p Provider) time.Duration {
	return time.Duration(TimeoutHours(p)) * time.Hour
}

// MinTimeoutDuration returns the shortest provider timeout. Payments younger
// than this minus the warning window cannot need sweeper attention yet.
func MinTimeoutDuration() time.Duration {
	min := defaultTimeoutHours
	for _, h := range []int{paypalTimeoutHours, venmoTimeoutHours, cashAppTimeoutHours, zelleTimeoutHours} {
		if h < min {
			min = h
		}
	}
	return time.Duration(min) * time.Hour
}

// IsPaymentTimedOut reports whether a payment created at createdAt has passed
// its provider timeout as of now.
func IsPaymentTimedOut(createdAt time.Time, p Provider, now time.Time) bool {
	return now.Sub(createdAt) > TimeoutDuration(p)
}

// IsPaymentNearTimeout reports whether a payment is inside the warning window
// before its hard expiry. A zero warningWindow means DefaultWarningWindow.
func IsPaymentNearTimeout(createdAt time.Time, p Provider, now time.Time, warningWindow time.Duration) bool {
	if warningWindow <= 0 {
		warningWindow = DefaultWarningWindow
	}
	remaining := TimeoutDuration(p) - now.Sub(createdAt)
	return remaining > 0 && remaining <= warningWindow
}

// TimeRemaining returns how long until the payment expires. Negative when
// already expired.
func TimeRemaining(createdAt time.Time, p Provider, now time.Time) time.Duration {
	return TimeoutDuration(p) - now.Sub(createdAt)
}

// FormatTimeRemaining renders the time left before expiry for display, e.g.
// "2d 5h remaining" or "Expired".
func FormatTimeRemaining(createdAt time.Time, p Provider, now time.Time) string {
	remaining := TimeRemaining(createdAt, p, now)
	if remaining <= 0 {
		return "Expired"
	}

	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh remaining", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	default:
		return fmt.Sprintf("%dm remaining", minutes)
	}
}
