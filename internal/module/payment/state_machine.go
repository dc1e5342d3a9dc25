package payment

import "fmt"

// StateMachine validates payment status transitions. The transition table is
// the single source of truth: an action is only ever applied if the status
// change it produces appears here.
type StateMachine struct {
	transitions map[PaymentStatus][]PaymentStatus
}

// NewStateMachine creates a new payment state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[PaymentStatus][]PaymentStatus{
			StatusInitiated:         {StatusConfirmedByParent, StatusConfirmed, StatusCancelled, StatusFailed, StatusTimeout},
			StatusConfirmedByParent: {StatusConfirmed, StatusDisputed, StatusFailed},
			StatusConfirmed:         {}, // Terminal state
			StatusDisputed:          {StatusConfirmed, StatusFailed},
			StatusCancelled:         {}, // Terminal state
			StatusFailed:            {StatusInitiated}, // Can retry
			StatusTimeout:           {}, // Terminal state
			StatusCompleted:         {}, // Legacy, terminal
			StatusPending:           {StatusTimeout}, // Legacy, sweep only
			StatusProcessing:        {StatusTimeout}, // Legacy, sweep only
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to PaymentStatus) bool {
	allowed, ok := sm.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to move a payment to a new status.
func (sm *StateMachine) Transition(p *Payment, to PaymentStatus) error {
	if !sm.CanTransition(p.Status, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	return nil
}

// GetAllowedTransitions returns all allowed transitions from the current status.
func (sm *StateMachine) GetAllowedTransitions(from PaymentStatus) []PaymentStatus {
	allowed, ok := sm.transitions[from]
	if !ok {
		return []PaymentStatus{}
	}
	result := make([]PaymentStatus, len(allowed))
	copy(result, allowed)
	return result
}

// defaultStateMachine backs the package-level helpers.
var defaultStateMachine = NewStateMachine()

// IsValidTransition checks a transition against the shared table.
func IsValidTransition(from, to PaymentStatus) bool {
	return defaultStateMachine.CanTransition(from, to)
}
