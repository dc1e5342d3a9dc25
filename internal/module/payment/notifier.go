package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// NotificationKind identifies a payment event the other party should hear about.
type NotificationKind string

const (
	NotifyParentConfirmed NotificationKind = "parent_confirmed"
	NotifyCompleted       NotificationKind = "completed"
	NotifyCancelled       NotificationKind = "cancelled"
	NotifyDisputed        NotificationKind = "disputed"
	NotifyRetried         NotificationKind = "retried"
	NotifyNearTimeout     NotificationKind = "near_timeout"
	NotifyTimedOut        NotificationKind = "timed_out"
)

// Notifier delivers payment notifications. Push/email delivery lives outside
// this service; implementations adapt whatever transport the deployment uses.
type Notifier interface {
	Notify(ctx context.Context, p *Payment, kind NotificationKind) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, *Payment, NotificationKind) error { return nil }

// BreakerNotifier wraps a Notifier with a circuit breaker so a misbehaving
// delivery backend cannot stall payment actions.
type BreakerNotifier struct {
	inner   Notifier
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerNotifier creates a circuit-breaking notifier. Delivery failures
// are reported to the caller, which owns logging.
func NewBreakerNotifier(inner Notifier) *BreakerNotifier {
	settings := gobreaker.Settings{
		Name:    "payment-notifier",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerNotifier{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Notify implements Notifier.
func (n *BreakerNotifier) Notify(ctx context.Context, p *Payment, kind NotificationKind) error {
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.inner.Notify(ctx, p, kind)
	})
	return err
}
