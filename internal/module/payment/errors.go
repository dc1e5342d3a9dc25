package payment

import "errors"

// Module errors.
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidTransition   = errors.New("invalid payment status transition")
	ErrNotParticipant      = errors.New("actor is not a participant in this payment")
	ErrInvalidAmount       = errors.New("invalid payment amount")
	ErrTransactionConflict = errors.New("concurrent update conflict")
	ErrStoreUnavailable    = errors.New("payment store unavailable")
)
