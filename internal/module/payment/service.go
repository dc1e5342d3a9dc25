package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hearthapp/server/internal/shared/clock"
	"github.com/hearthapp/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Service implements payment operations. Every mutation goes through the
// repository's transactional read-modify-write so the status manager always
// decides against the freshest record.
type Service struct {
	repo      Repository
	manager   *StatusManager
	notifier  Notifier
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    *zap.Logger
	txRetries int
}

// NewService creates a new payment service.
func NewService(repo Repository, manager *StatusManager, notifier Notifier, m *metrics.Metrics, clk clock.Clock, logger *zap.Logger, txRetries int) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clk == nil {
		clk = clock.System()
	}
	if txRetries < 1 {
		txRetries = 3
	}
	return &Service{
		repo:      repo,
		manager:   manager,
		notifier:  notifier,
		metrics:   m,
		clock:     clk,
		logger:    logger,
		txRetries: txRetries,
	}
}

// Create initiates a payment from a parent to a student. The money itself
// moves through the external provider; the record tracks the attestations.
func (s *Service) Create(ctx context.Context, familyID, parentID uuid.UUID, req *CreatePaymentRequest) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.clock.Now()
	p := &Payment{
		ID:              uuid.New(),
		FamilyID:        familyID,
		ParentID:        parentID,
		StudentID:       req.StudentID,
		Status:          StatusInitiated,
		Provider:        req.Provider,
		AmountRequested: req.Amount,
		Note:            req.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.String("payment_id", p.ID.String()),
		zap.String("provider", string(p.Provider)),
		zap.Int64("amount", p.AmountRequested))

	return p, nil
}

// ConfirmAsParent records the parent's attestation that the money was sent.
// Re-confirming is an idempotent no-op.
func (s *Service) ConfirmAsParent(ctx context.Context, id, actorID uuid.UUID) (*Payment, error) {
	var noop bool
	p, err := s.updateWithRetry(ctx, id, "parent_confirm", func(p *Payment) (*Update, error) {
		if p.ParentID != actorID {
			return nil, ErrNotParticipant
		}
		if p.HasParentConfirmation() {
			noop = true
			return nil, nil
		}
		return s.manager.BuildParentConfirmationUpdate(p)
	})
	if err != nil {
		return nil, err
	}

	if !noop {
		kind := NotifyParentConfirmed
		if p.Status == StatusConfirmed {
			kind = NotifyCompleted
		}
		s.notify(ctx, p, kind)
	}
	return p, nil
}

// ConfirmAsStudent records the student's attestation of the amount actually
// received. The attested amount is stored verbatim; discrepancies against the
// requested amount are preserved, not reconciled.
func (s *Service) ConfirmAsStudent(ctx context.Context, id, actorID uuid.UUID, receivedAmount int64) (*Payment, error) {
	var noop bool
	p, err := s.updateWithRetry(ctx, id, "student_confirm", func(p *Payment) (*Update, error) {
		if p.StudentID != actorID {
			return nil, ErrNotParticipant
		}
		if p.HasStudentConfirmation() {
			noop = true
			return nil, nil
		}
		return s.manager.BuildStudentConfirmationUpdate(p, receivedAmount)
	})
	if err != nil {
		return nil, err
	}

	if !noop && p.Status == StatusConfirmed {
		s.notify(ctx, p, NotifyCompleted)
	}
	return p, nil
}

// Cancel withdraws a payment the parent has not yet marked sent.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*Payment, error) {
	p, err := s.updateWithRetry(ctx, id, "cancel", func(p *Payment) (*Update, error) {
		if p.ParentID != actorID {
			return nil, ErrNotParticipant
		}
		return s.manager.BuildCancellationUpdate(p, reason)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, p, NotifyCancelled)
	return p, nil
}

// Dispute opens a dispute. Either participant may dispute a payment that has
// not completed.
func (s *Service) Dispute(ctx context.Context, id, actorID uuid.UUID, reason string) (*Payment, error) {
	p, err := s.updateWithRetry(ctx, id, "dispute", func(p *Payment) (*Update, error) {
		if p.ParentID != actorID && p.StudentID != actorID {
			return nil, ErrNotParticipant
		}
		return s.manager.BuildDisputeUpdate(p, reason)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, p, NotifyDisputed)
	return p, nil
}

// ResolveDispute closes a dispute to confirmed or failed. This is the only
// path out of disputed; the normal confirmation actions stay rejected.
func (s *Service) ResolveDispute(ctx context.Context, id, actorID uuid.UUID, outcome PaymentStatus) (*Payment, error) {
	p, err := s.updateWithRetry(ctx, id, "resolve_dispute", func(p *Payment) (*Update, error) {
		if p.ParentID != actorID {
			return nil, ErrNotParticipant
		}
		return s.manager.BuildDisputeResolutionUpdate(p, outcome)
	})
	if err != nil {
		return nil, err
	}

	if p.Status == StatusConfirmed {
		s.notify(ctx, p, NotifyCompleted)
	}
	return p, nil
}

// Retry moves a failed payment back to initiated for another attempt.
func (s *Service) Retry(ctx context.Context, id, actorID uuid.UUID) (*Payment, error) {
	p, err := s.updateWithRetry(ctx, id, "retry", func(p *Payment) (*Update, error) {
		if p.ParentID != actorID {
			return nil, ErrNotParticipant
		}
		return s.manager.BuildRetryUpdate(p)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, p, NotifyRetried)
	return p, nil
}

// Expire applies the timeout transition to a single stale payment. Used by
// the sweep; it goes through the same transactional path as user actions so
// an expiry can never race a human confirmation.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.updateWithRetry(ctx, id, "timeout_sweep", func(p *Payment) (*Update, error) {
		return s.manager.BuildTimeoutUpdate(p)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, p, NotifyTimedOut)
	return p, nil
}

// Get returns a payment, restricted to members of its family.
func (s *Service) Get(ctx context.Context, id, familyID uuid.UUID) (*Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.FamilyID != familyID {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// List returns payments for a family with optional filters.
func (s *Service) List(ctx context.Context, familyID uuid.UUID, filter *Filter, pagination *Pagination) ([]*Payment, int64, error) {
	return s.repo.List(ctx, familyID, filter, pagination)
}

// Now exposes the service clock, for presentation helpers.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// updateWithRetry runs the transactional update, retrying a bounded number of
// times when the store reports a concurrent write race. Every retry re-reads
// the record, so the decision is always made against the latest state.
func (s *Service) updateWithRetry(ctx context.Context, id uuid.UUID, action string, decide func(p *Payment) (*Update, error)) (*Payment, error) {
	var p *Payment
	var err error
	for attempt := 0; attempt < s.txRetries; attempt++ {
		p, err = s.repo.UpdateInTx(ctx, id, decide)
		if err == nil || !errors.Is(err, ErrTransactionConflict) {
			break
		}
		s.logger.Warn("transaction conflict, retrying",
			zap.String("payment_id", id.String()),
			zap.String("action", action),
			zap.Int("attempt", attempt+1))
	}

	s.recordTransition(action, err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) recordTransition(action string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "applied"
	switch {
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotParticipant):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	s.metrics.RecordTransition(action, outcome)
}

// notify delivers best-effort; a failed notification never fails the action.
func (s *Service) notify(ctx context.Context, p *Payment, kind NotificationKind) {
	if err := s.notifier.Notify(ctx, p, kind); err != nil {
		s.logger.Warn("payment notification failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
