package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hearthapp/server/internal/shared/clock"
)

func newSweepPayment(status PaymentStatus, provider Provider, age time.Duration) *Payment {
	return &Payment{
		ID:              uuid.New(),
		FamilyID:        uuid.New(),
		ParentID:        uuid.New(),
		StudentID:       uuid.New(),
		Status:          status,
		Provider:        provider,
		AmountRequested: 2000,
		CreatedAt:       testTime.Add(-age),
		UpdatedAt:       testTime.Add(-age),
	}
}

func TestSweeper_Sweep(t *testing.T) {
	clk := clock.Fixed{T: testTime}
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, NewStatusManager(clk), notifier, nil, clk, zap.NewNop(), 3)
	sweeper := NewSweeper(svc, repo, notifier, nil, nil, clk, zap.NewNop(), &SweeperConfig{
		Interval:      time.Minute,
		WarningWindow: 12 * time.Hour,
	})
	ctx := context.Background()

	expired := newSweepPayment(StatusInitiated, ProviderZelle, 49*time.Hour)
	near := newSweepPayment(StatusInitiated, ProviderZelle, 38*time.Hour)
	fresh := newSweepPayment(StatusInitiated, ProviderZelle, time.Hour)
	for _, p := range []*Payment{expired, near, fresh} {
		require.NoError(t, repo.Create(ctx, p))
	}

	require.NoError(t, sweeper.Sweep(ctx))

	t.Run("expired payment is timed out", func(t *testing.T) {
		got, err := repo.Get(ctx, expired.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusTimeout, got.Status)
		assert.Equal(t, StatusInitiated, got.PriorStatus)
		require.NotNil(t, got.TimedOutAt)
		assert.Equal(t, testTime, *got.TimedOutAt)
	})

	t.Run("near-timeout payment gets a warning, not an expiry", func(t *testing.T) {
		got, err := repo.Get(ctx, near.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInitiated, got.Status)
		assert.Contains(t, notifier.sent(), NotifyNearTimeout)
	})

	t.Run("fresh payment is untouched", func(t *testing.T) {
		got, err := repo.Get(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInitiated, got.Status)
	})

	t.Run("listing cuts off below the shortest timeout minus the warning window", func(t *testing.T) {
		assert.Equal(t, testTime.Add(-36*time.Hour), repo.lastOlderThan)
	})

	t.Run("without redis every pass warns again", func(t *testing.T) {
		before := countKind(notifier.sent(), NotifyNearTimeout)
		require.NoError(t, sweeper.Sweep(ctx))
		assert.Equal(t, before+1, countKind(notifier.sent(), NotifyNearTimeout))
	})
}

// staleListRepository simulates the list-then-transact race: the sweep's
// listing shows a payment as actionable even though it has since been
// confirmed.
type staleListRepository struct {
	*fakeRepository
	stale []*Payment
}

func (r *staleListRepository) ListActionable(_ context.Context, _ time.Time) ([]*Payment, error) {
	return r.stale, nil
}

func TestSweeper_SkipsConfirmedDuringSweep(t *testing.T) {
	clk := clock.Fixed{T: testTime}
	inner := newFakeRepository()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	// The stored record was confirmed after the listing snapshot was taken.
	p := newSweepPayment(StatusConfirmedByParent, ProviderZelle, 49*time.Hour)
	p.ConfirmedAt = &testTime
	p.ParentSentAt = &testTime
	require.NoError(t, inner.Create(ctx, p))

	snapshot := *p
	snapshot.Status = StatusInitiated
	repo := &staleListRepository{fakeRepository: inner, stale: []*Payment{&snapshot}}

	svc := NewService(repo, NewStatusManager(clk), notifier, nil, clk, zap.NewNop(), 3)
	sweeper := NewSweeper(svc, repo, notifier, nil, nil, clk, zap.NewNop(), nil)

	require.NoError(t, sweeper.Sweep(ctx))

	got, err := inner.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmedByParent, got.Status)
	assert.NotContains(t, notifier.sent(), NotifyTimedOut)
}

func TestSweeper_StartStop(t *testing.T) {
	clk := clock.Fixed{T: testTime}
	repo := newFakeRepository()
	svc := NewService(repo, NewStatusManager(clk), nil, nil, clk, zap.NewNop(), 3)
	sweeper := NewSweeper(svc, repo, nil, nil, nil, clk, zap.NewNop(), &SweeperConfig{
		Interval: 50 * time.Millisecond,
	})

	sweeper.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	sweeper.Stop() // must not hang or panic
}

func countKind(kinds []NotificationKind, kind NotificationKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}
