package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	StatusInitiated         PaymentStatus = "initiated"
	StatusConfirmedByParent PaymentStatus = "confirmed_by_parent"
	StatusConfirmed         PaymentStatus = "confirmed"
	StatusDisputed          PaymentStatus = "disputed"
	StatusCancelled         PaymentStatus = "cancelled"
	StatusFailed            PaymentStatus = "failed"
	StatusTimeout           PaymentStatus = "timeout"

	// Legacy statuses present in old records. Reads must handle them;
	// new transitions never produce completed, pending or processing.
	StatusCompleted  PaymentStatus = "completed"
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
)

// Provider identifies the external money-transfer channel. The transfer
// itself happens outside the system; the provider only selects a timeout.
type Provider string

const (
	ProviderPayPal  Provider = "paypal"
	ProviderVenmo   Provider = "venmo"
	ProviderZelle   Provider = "zelle"
	ProviderCashApp Provider = "cashapp"
)

// DisplayName returns the human-readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderPayPal:
		return "PayPal"
	case ProviderVenmo:
		return "Venmo"
	case ProviderZelle:
		return "Zelle"
	case ProviderCashApp:
		return "Cash App"
	default:
		return string(p)
	}
}

// Payment represents a peer-attested money transfer between a parent and a
// student. Amounts are in minor currency units (cents).
type Payment struct {
	ID        uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FamilyID  uuid.UUID     `json:"family_id" gorm:"type:uuid;not null;index"`
	ParentID  uuid.UUID     `json:"parent_id" gorm:"type:uuid;not null;index"`
	StudentID uuid.UUID     `json:"student_id" gorm:"type:uuid;not null;index"`
	Status    PaymentStatus `json:"status" gorm:"not null;default:initiated"`
	Provider  Provider      `json:"provider" gorm:"not null"`

	AmountRequested       int64  `json:"amount_requested"` // In cents
	StudentReceivedAmount *int64 `json:"student_received_amount,omitempty"`
	Note                  string `json:"note,omitempty"`
	CancelledReason       string `json:"cancelled_reason,omitempty"`
	DisputeReason         string `json:"dispute_reason,omitempty"`

	// PriorStatus records the status a payment held before the timeout
	// sweep expired it.
	PriorStatus PaymentStatus `json:"prior_status,omitempty"`

	// ConfirmedAt and ParentSentAt are historically separate fields that
	// record the same parent attestation; they are always stamped together.
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	ParentSentAt       *time.Time `json:"parent_sent_at,omitempty"`
	StudentConfirmedAt *time.Time `json:"student_confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	DisputedAt         *time.Time `json:"disputed_at,omitempty"`
	TimedOutAt         *time.Time `json:"timed_out_at,omitempty"`

	AuditTrail pq.StringArray `json:"audit_trail,omitempty" gorm:"type:text[]"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// HasParentConfirmation returns true if the parent has attested to sending
// the money. Either timestamp is sufficient evidence.
func (p *Payment) HasParentConfirmation() bool {
	return p.ConfirmedAt != nil || p.ParentSentAt != nil
}

// HasStudentConfirmation returns true if the student has attested to
// receiving the money.
func (p *Payment) HasStudentConfirmation() bool {
	return p.StudentConfirmedAt != nil
}

// IsFinal returns true if the payment status is terminal.
func (p *Payment) IsFinal() bool {
	return IsFinalState(p.Status)
}

// Description returns the user-facing label for a status.
func (s PaymentStatus) Description() string {
	switch s {
	case StatusInitiated:
		return "Processing"
	case StatusConfirmedByParent:
		return "Sent by Parent"
	case StatusConfirmed, StatusCompleted:
		return "Completed"
	case StatusDisputed:
		return "Disputed"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		return "Failed"
	case StatusTimeout:
		return "Expired"
	case StatusPending:
		return "Processing"
	case StatusProcessing:
		return "Processing"
	default:
		return "Unknown"
	}
}

// Color returns the UI color token for a status. Clients key off these
// values, so the mapping is stable.
func (s PaymentStatus) Color() string {
	switch s {
	case StatusInitiated, StatusPending, StatusProcessing:
		return "orange"
	case StatusConfirmedByParent:
		return "blue"
	case StatusConfirmed, StatusCompleted:
		return "green"
	case StatusDisputed:
		return "red"
	case StatusCancelled, StatusFailed, StatusTimeout:
		return "grey"
	default:
		return "grey"
	}
}
