package payment

import (
	"fmt"
	"time"

	"github.com/hearthapp/server/internal/shared/clock"
)

// ResolveFinalStatus combines the two independent confirmation facts into one
// authoritative status. It must be used instead of setting a status directly
// from the action, so that a confirmation landing after the other side's
// confirmation still resolves to confirmed instead of clobbering it.
func ResolveFinalStatus(current PaymentStatus, hasParentConfirmation, hasStudentConfirmation bool) PaymentStatus {
	switch {
	case hasParentConfirmation && hasStudentConfirmation:
		return StatusConfirmed
	case hasParentConfirmation:
		return StatusConfirmedByParent
	case hasStudentConfirmation:
		// Student attestation alone closes out a payment the parent never
		// explicitly marked sent. Anything past initiated keeps its status.
		if current == StatusInitiated {
			return StatusConfirmed
		}
		return current
	default:
		return StatusInitiated
	}
}

// CanParentConfirm reports whether a parent confirmation is legal from the
// given status. Re-confirming an already confirmed-by-parent payment is an
// idempotent no-op handled by the caller. A parent attestation landing after
// the student already resolved the payment to confirmed is still accepted so
// the timestamps get recorded.
func CanParentConfirm(s PaymentStatus) bool {
	return s == StatusInitiated || s == StatusConfirmedByParent || s == StatusConfirmed
}

// CanStudentConfirm reports whether a student confirmation is legal. The
// student may still confirm a payment the parent's confirmation already
// resolved, as a no-op reconciliation.
func CanStudentConfirm(s PaymentStatus) bool {
	return s == StatusInitiated || s == StatusConfirmedByParent || s == StatusConfirmed
}

// CanDispute reports whether a dispute can be opened from the given status.
// Completed payments cannot be disputed through this path.
func CanDispute(s PaymentStatus) bool {
	return s == StatusConfirmedByParent || s == StatusInitiated
}

// CanCancel reports whether a payment can be cancelled. Once the parent has
// attested to sending, the money may already be in flight, so cancellation is
// only offered from initiated.
func CanCancel(s PaymentStatus) bool {
	return s == StatusInitiated
}

// CanRetry reports whether a failed payment can be retried back to initiated.
func CanRetry(s PaymentStatus) bool {
	return s == StatusFailed
}

// IsFinalState reports whether no further confirm/cancel/dispute action is
// legal from the given status. failed is deliberately not final.
func IsFinalState(s PaymentStatus) bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelled, StatusDisputed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Update is the exact field-level patch an accepted action produces. Only
// non-nil fields are written; Status and UpdatedAt are always written.
type Update struct {
	Status                PaymentStatus
	ConfirmedAt           *time.Time
	ParentSentAt          *time.Time
	StudentConfirmedAt    *time.Time
	StudentReceivedAmount *int64
	CancelledAt           *time.Time
	CancelledReason       *string
	DisputedAt            *time.Time
	DisputeReason         *string
	TimedOutAt            *time.Time
	PriorStatus           PaymentStatus
	UpdatedAt             time.Time
	AuditEntry            string

	// ClearConfirmations wipes both attestation stamps. Set by the retry
	// builder so a new attempt starts without stale evidence.
	ClearConfirmations bool
}

// Apply writes the patch onto a payment record.
func (u *Update) Apply(p *Payment) {
	p.Status = u.Status
	if u.ClearConfirmations {
		p.ConfirmedAt = nil
		p.ParentSentAt = nil
		p.StudentConfirmedAt = nil
		p.StudentReceivedAmount = nil
	}
	if u.ConfirmedAt != nil {
		p.ConfirmedAt = u.ConfirmedAt
	}
	if u.ParentSentAt != nil {
		p.ParentSentAt = u.ParentSentAt
	}
	if u.StudentConfirmedAt != nil {
		p.StudentConfirmedAt = u.StudentConfirmedAt
	}
	if u.StudentReceivedAmount != nil {
		p.StudentReceivedAmount = u.StudentReceivedAmount
	}
	if u.CancelledAt != nil {
		p.CancelledAt = u.CancelledAt
	}
	if u.CancelledReason != nil {
		p.CancelledReason = *u.CancelledReason
	}
	if u.DisputedAt != nil {
		p.DisputedAt = u.DisputedAt
	}
	if u.DisputeReason != nil {
		p.DisputeReason = *u.DisputeReason
	}
	if u.TimedOutAt != nil {
		p.TimedOutAt = u.TimedOutAt
	}
	if u.PriorStatus != "" {
		p.PriorStatus = u.PriorStatus
	}
	if u.AuditEntry != "" {
		p.AuditTrail = append(p.AuditTrail, u.AuditEntry)
	}
	p.UpdatedAt = u.UpdatedAt
}

// StatusManager is the pure decision core. Given the current record and an
// intended action it decides whether the action is legal and, if so, produces
// the exact patch to apply. It performs no I/O; callers must invoke it against
// a freshly-read record inside the same transaction that writes the result.
type StatusManager struct {
	sm    *StateMachine
	clock clock.Clock
}

// NewStatusManager creates a status manager with the given clock.
func NewStatusManager(clk clock.Clock) *StatusManager {
	if clk == nil {
		clk = clock.System()
	}
	return &StatusManager{
		sm:    NewStateMachine(),
		clock: clk,
	}
}

// StateMachine exposes the transition table backing the manager.
func (m *StatusManager) StateMachine() *StateMachine {
	return m.sm
}

func (m *StatusManager) auditEntry(from, to PaymentStatus, action string, at time.Time) string {
	return fmt.Sprintf("%s: %s -> %s (%s)", at.UTC().Format(time.RFC3339), from, to, action)
}

// BuildParentConfirmationUpdate produces the patch for a parent attestation.
// Callers must check CanParentConfirm and detect the already-confirmed no-op
// before invoking; the builder never double-stamps a prior confirmation.
func (m *StatusManager) BuildParentConfirmationUpdate(p *Payment) (*Update, error) {
	if !CanParentConfirm(p.Status) {
		return nil, fmt.Errorf("%w: cannot confirm as parent from %s", ErrInvalidTransition, p.Status)
	}

	resolved := ResolveFinalStatus(p.Status, true, p.HasStudentConfirmation())
	if resolved != p.Status && !m.sm.CanTransition(p.Status, resolved) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.Status, resolved)
	}

	now := m.clock.Now()
	return &Update{
		Status:       resolved,
		ConfirmedAt:  &now,
		ParentSentAt: &now,
		UpdatedAt:    now,
		AuditEntry:   m.auditEntry(p.Status, resolved, "parent_confirm", now),
	}, nil
}

// BuildStudentConfirmationUpdate produces the patch for a student attestation.
// The received amount is recorded exactly as attested; discrepancies against
// the requested amount are data, not errors.
func (m *StatusManager) BuildStudentConfirmationUpdate(p *Payment, receivedAmount int64) (*Update, error) {
	if !CanStudentConfirm(p.Status) {
		return nil, fmt.Errorf("%w: cannot confirm as student from %s", ErrInvalidTransition, p.Status)
	}
	if receivedAmount < 0 {
		return nil, ErrInvalidAmount
	}

	resolved := ResolveFinalStatus(p.Status, p.HasParentConfirmation(), true)
	if resolved != p.Status && !m.sm.CanTransition(p.Status, resolved) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.Status, resolved)
	}

	now := m.clock.Now()
	return &Update{
		Status:                resolved,
		StudentConfirmedAt:    &now,
		StudentReceivedAmount: &receivedAmount,
		UpdatedAt:             now,
		AuditEntry:            m.auditEntry(p.Status, resolved, "student_confirm", now),
	}, nil
}

// BuildCancellationUpdate produces the patch for a parent cancellation.
func (m *StatusManager) BuildCancellationUpdate(p *Payment, reason string) (*Update, error) {
	if !CanCancel(p.Status) {
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, p.Status)
	}

	now := m.clock.Now()
	return &Update{
		Status:          StatusCancelled,
		CancelledAt:     &now,
		CancelledReason: &reason,
		UpdatedAt:       now,
		AuditEntry:      m.auditEntry(p.Status, StatusCancelled, "cancel", now),
	}, nil
}

// BuildDisputeUpdate produces the patch for opening a dispute.
func (m *StatusManager) BuildDisputeUpdate(p *Payment, reason string) (*Update, error) {
	if !CanDispute(p.Status) {
		return nil, fmt.Errorf("%w: cannot dispute from %s", ErrInvalidTransition, p.Status)
	}
	if !m.sm.CanTransition(p.Status, StatusDisputed) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.Status, StatusDisputed)
	}

	now := m.clock.Now()
	return &Update{
		Status:        StatusDisputed,
		DisputedAt:    &now,
		DisputeReason: &reason,
		UpdatedAt:     now,
		AuditEntry:    m.auditEntry(p.Status, StatusDisputed, "dispute", now),
	}, nil
}

// BuildDisputeResolutionUpdate produces the patch for the separately-authorized
// resolution of a dispute, to confirmed or failed.
func (m *StatusManager) BuildDisputeResolutionUpdate(p *Payment, outcome PaymentStatus) (*Update, error) {
	if outcome != StatusConfirmed && outcome != StatusFailed {
		return nil, fmt.Errorf("%w: dispute can only resolve to %s or %s", ErrInvalidTransition, StatusConfirmed, StatusFailed)
	}
	if !m.sm.CanTransition(p.Status, outcome) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.Status, outcome)
	}

	now := m.clock.Now()
	return &Update{
		Status:     outcome,
		UpdatedAt:  now,
		AuditEntry: m.auditEntry(p.Status, outcome, "resolve_dispute", now),
	}, nil
}

// BuildRetryUpdate produces the patch moving a failed payment back to
// initiated for another attempt. The failure means the attested transfer did
// not happen, so the old confirmation stamps are cleared rather than carried
// into the new attempt.
func (m *StatusManager) BuildRetryUpdate(p *Payment) (*Update, error) {
	if !CanRetry(p.Status) {
		return nil, fmt.Errorf("%w: cannot retry from %s", ErrInvalidTransition, p.Status)
	}

	now := m.clock.Now()
	return &Update{
		Status:             StatusInitiated,
		ClearConfirmations: true,
		UpdatedAt:          now,
		AuditEntry:         m.auditEntry(p.Status, StatusInitiated, "retry", now),
	}, nil
}

// BuildTimeoutUpdate produces the patch the timeout sweep applies to a stale
// actionable payment. The prior status is preserved for audit.
func (m *StatusManager) BuildTimeoutUpdate(p *Payment) (*Update, error) {
	if !isTimeoutActionable(p.Status) {
		return nil, fmt.Errorf("%w: cannot time out from %s", ErrInvalidTransition, p.Status)
	}
	now := m.clock.Now()
	if !IsPaymentTimedOut(p.CreatedAt, p.Provider, now) {
		return nil, fmt.Errorf("payment %s has not reached the %s timeout yet", p.ID, p.Provider)
	}

	return &Update{
		Status:      StatusTimeout,
		TimedOutAt:  &now,
		PriorStatus: p.Status,
		UpdatedAt:   now,
		AuditEntry:  m.auditEntry(p.Status, StatusTimeout, "timeout_sweep", now),
	}, nil
}

// isTimeoutActionable reports whether the sweep may expire the given status.
// pending and processing are kept for legacy data.
func isTimeoutActionable(s PaymentStatus) bool {
	return s == StatusInitiated || s == StatusPending || s == StatusProcessing
}
