package payment

import (
	"time"

	"github.com/google/uuid"
)

// CreatePaymentRequest represents a parent initiating a payment.
type CreatePaymentRequest struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
	Amount    int64     `json:"amount" binding:"required,min=1"` // In cents
	Provider  Provider  `json:"provider" binding:"required"`
	Note      string    `json:"note" binding:"max=500"`
}

// ConfirmReceivedRequest represents a student attesting to a received amount.
// Zero is a valid attestation; the amount is recorded, never reconciled.
type ConfirmReceivedRequest struct {
	ReceivedAmount int64 `json:"received_amount" binding:"min=0"` // In cents
}

// CancelPaymentRequest carries the human-readable cancellation reason.
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DisputePaymentRequest carries the dispute reason.
type DisputePaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ResolveDisputeRequest carries the dispute outcome.
type ResolveDisputeRequest struct {
	Outcome PaymentStatus `json:"outcome" binding:"required,oneof=confirmed failed"`
}

// Filter represents filters for listing payments.
type Filter struct {
	Status   *PaymentStatus `form:"status"`
	Provider *Provider      `form:"provider"`
}

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int `form:"page" binding:"min=1"`
	PageSize int `form:"page_size" binding:"min=1,max=100"`
}

// NewPagination creates pagination with defaults.
func NewPagination() *Pagination {
	return &Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Offset returns the offset for database queries.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID                    uuid.UUID     `json:"id"`
	FamilyID              uuid.UUID     `json:"family_id"`
	ParentID              uuid.UUID     `json:"parent_id"`
	StudentID             uuid.UUID     `json:"student_id"`
	Status                PaymentStatus `json:"status"`
	StatusDescription     string        `json:"status_description"`
	StatusColor           string        `json:"status_color"`
	Provider              Provider      `json:"provider"`
	ProviderName          string        `json:"provider_name"`
	AmountRequested       int64         `json:"amount_requested"`
	StudentReceivedAmount *int64        `json:"student_received_amount,omitempty"`
	Note                  string        `json:"note,omitempty"`
	CancelledReason       string        `json:"cancelled_reason,omitempty"`
	DisputeReason         string        `json:"dispute_reason,omitempty"`
	ConfirmedAt           *time.Time    `json:"confirmed_at,omitempty"`
	ParentSentAt          *time.Time    `json:"parent_sent_at,omitempty"`
	StudentConfirmedAt    *time.Time    `json:"student_confirmed_at,omitempty"`
	CancelledAt           *time.Time    `json:"cancelled_at,omitempty"`
	DisputedAt            *time.Time    `json:"disputed_at,omitempty"`
	TimedOutAt            *time.Time    `json:"timed_out_at,omitempty"`
	TimeRemaining         string        `json:"time_remaining,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// ToResponse converts a Payment to its API representation.
func ToResponse(p *Payment, now time.Time) *PaymentResponse {
	resp := &PaymentResponse{
		ID:                    p.ID,
		FamilyID:              p.FamilyID,
		ParentID:              p.ParentID,
		StudentID:             p.StudentID,
		Status:                p.Status,
		StatusDescription:     p.Status.Description(),
		StatusColor:           p.Status.Color(),
		Provider:              p.Provider,
		ProviderName:          p.Provider.DisplayName(),
		AmountRequested:       p.AmountRequested,
		StudentReceivedAmount: p.StudentReceivedAmount,
		Note:                  p.Note,
		CancelledReason:       p.CancelledReason,
		DisputeReason:         p.DisputeReason,
		ConfirmedAt:           p.ConfirmedAt,
		ParentSentAt:          p.ParentSentAt,
		StudentConfirmedAt:    p.StudentConfirmedAt,
		CancelledAt:           p.CancelledAt,
		DisputedAt:            p.DisputedAt,
		TimedOutAt:            p.TimedOutAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
	if !p.IsFinal() && p.Status != StatusFailed {
		resp.TimeRemaining = FormatTimeRemaining(p.CreatedAt, p.Provider, now)
	}
	return resp
}

// ListResponse wraps a page of payments.
type ListResponse struct {
	Payments []*PaymentResponse `json:"payments"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}
