package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthapp/server/internal/shared/clock"
	"github.com/hearthapp/server/internal/shared/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SweeperConfig contains timeout sweeper configuration.
type SweeperConfig struct {
	Interval         time.Duration
	WarningWindow    time.Duration
	WarningDedupeTTL time.Duration
}

// DefaultSweeperConfig returns the default sweeper configuration.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:         15 * time.Minute,
		WarningWindow:    DefaultWarningWindow,
		WarningDedupeTTL: 24 * time.Hour,
	}
}

// Sweeper periodically expires stale actionable payments and sends a single
// near-timeout warning per payment before the hard expiry.
type Sweeper struct {
	service  *Service
	repo     Repository
	notifier Notifier
	redis    redis.UniversalClient
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *zap.Logger
	config   *SweeperConfig

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a timeout sweeper.
func NewSweeper(service *Service, repo Repository, notifier Notifier, rdb redis.UniversalClient, m *metrics.Metrics, clk clock.Clock, logger *zap.Logger, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Sweeper{
		service:  service,
		repo:     repo,
		notifier: notifier,
		redis:    rdb,
		metrics:  m,
		clock:    clk,
		logger:   logger,
		config:   config,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.logger.Error("timeout sweep failed", zap.Error(err))
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweep loop and waits for the current pass to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// Sweep runs a single pass: expired payments are timed out through the same
// transactional path as user actions, near-timeout payments get one warning.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.PaymentSweepRuns.Inc()
	}

	now := s.clock.Now()
	window := s.config.WarningWindow
	if window <= 0 {
		window = DefaultWarningWindow
	}
	// Payments younger than the shortest provider timeout minus the warning
	// window can neither expire nor warn yet, so the query skips them.
	cutoff := now.Add(-(MinTimeoutDuration() - window))

	payments, err := s.repo.ListActionable(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list actionable payments: %w", err)
	}

	for _, p := range payments {
		switch {
		case IsPaymentTimedOut(p.CreatedAt, p.Provider, now):
			s.expire(ctx, p)
		case IsPaymentNearTimeout(p.CreatedAt, p.Provider, now, s.config.WarningWindow):
			s.warn(ctx, p)
		}
	}

	return nil
}

func (s *Sweeper) expire(ctx context.Context, p *Payment) {
	if _, err := s.service.Expire(ctx, p.ID); err != nil {
		// A participant may have confirmed between the list and the
		// transaction's re-read; that rejection is the system working.
		if errors.Is(err, ErrInvalidTransition) {
			s.logger.Info("payment no longer expirable, skipping",
				zap.String("payment_id", p.ID.String()))
			return
		}
		s.logger.Error("failed to expire payment",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.PaymentSweepExpired.Inc()
	}
	s.logger.Info("payment timed out",
		zap.String("payment_id", p.ID.String()),
		zap.String("provider", string(p.Provider)))
}

func (s *Sweeper) warn(ctx context.Context, p *Payment) {
	if !s.claimWarning(ctx, p) {
		return
	}

	if err := s.notifier.Notify(ctx, p, NotifyNearTimeout); err != nil {
		s.logger.Warn("near-timeout warning failed",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.PaymentSweepWarnings.Inc()
	}
}

// claimWarning deduplicates warnings through Redis so each payment warns at
// most once per dedupe window. Without Redis every pass would warn again.
func (s *Sweeper) claimWarning(ctx context.Context, p *Payment) bool {
	if s.redis == nil {
		return true
	}
	key := fmt.Sprintf("payment:timeout-warned:%s", p.ID)
	ok, err := s.redis.SetNX(ctx, key, 1, s.config.WarningDedupeTTL).Result()
	if err != nil {
		s.logger.Warn("warning dedupe check failed",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err))
		return false
	}
	return ok
}
