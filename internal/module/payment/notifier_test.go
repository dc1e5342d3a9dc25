package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hearthapp/server/internal/shared/clock"
)

// failingNotifier always refuses delivery and counts attempts.
type failingNotifier struct {
	calls int
}

func (n *failingNotifier) Notify(context.Context, *Payment, NotificationKind) error {
	n.calls++
	return errors.New("delivery backend unavailable")
}

func TestBreakerNotifier_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingNotifier{}
	notifier := NewBreakerNotifier(inner)

	ctx := context.Background()
	p := &Payment{ID: uuid.New(), Status: StatusInitiated}

	for i := 0; i < 5; i++ {
		err := notifier.Notify(ctx, p, NotifyParentConfirmed)
		require.Error(t, err)
	}

	// Breaker is open now; the backend stops seeing traffic.
	err := notifier.Notify(ctx, p, NotifyParentConfirmed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.calls)
}

func TestService_NotificationFailureLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	clk := clock.Fixed{T: testTime}
	repo := newFakeRepository()
	svc := NewService(repo, NewStatusManager(clk), NewBreakerNotifier(&failingNotifier{}), nil, clk, zap.New(core), 3)

	ctx := context.Background()
	familyID, parentID, studentID := uuid.New(), uuid.New(), uuid.New()
	p, err := svc.Create(ctx, familyID, parentID, &CreatePaymentRequest{
		StudentID: studentID,
		Amount:    2000,
		Provider:  ProviderVenmo,
	})
	require.NoError(t, err)

	// The action succeeds; the failed delivery produces exactly one warning.
	_, err = svc.ConfirmAsParent(ctx, p.ID, parentID)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("payment notification failed").Len())
}
