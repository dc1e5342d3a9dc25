package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusConstants(t *testing.T) {
	t.Run("status values", func(t *testing.T) {
		assert.Equal(t, PaymentStatus("initiated"), StatusInitiated)
		assert.Equal(t, PaymentStatus("confirmed_by_parent"), StatusConfirmedByParent)
		assert.Equal(t, PaymentStatus("confirmed"), StatusConfirmed)
		assert.Equal(t, PaymentStatus("disputed"), StatusDisputed)
		assert.Equal(t, PaymentStatus("cancelled"), StatusCancelled)
		assert.Equal(t, PaymentStatus("failed"), StatusFailed)
		assert.Equal(t, PaymentStatus("timeout"), StatusTimeout)
		assert.Equal(t, PaymentStatus("completed"), StatusCompleted)
	})

	t.Run("provider values", func(t *testing.T) {
		assert.Equal(t, Provider("paypal"), ProviderPayPal)
		assert.Equal(t, Provider("venmo"), ProviderVenmo)
		assert.Equal(t, Provider("zelle"), ProviderZelle)
		assert.Equal(t, Provider("cashapp"), ProviderCashApp)
	})
}

func TestPayment_TableName(t *testing.T) {
	assert.Equal(t, "payments", Payment{}.TableName())
}

func TestProvider_DisplayName(t *testing.T) {
	assert.Equal(t, "PayPal", ProviderPayPal.DisplayName())
	assert.Equal(t, "Cash App", ProviderCashApp.DisplayName())
	assert.Equal(t, "wire", Provider("wire").DisplayName())
}

func TestPayment_Confirmations(t *testing.T) {
	now := time.Now()

	t.Run("either parent stamp is sufficient evidence", func(t *testing.T) {
		assert.False(t, (&Payment{}).HasParentConfirmation())
		assert.True(t, (&Payment{ConfirmedAt: &now}).HasParentConfirmation())
		assert.True(t, (&Payment{ParentSentAt: &now}).HasParentConfirmation())
	})

	t.Run("student stamp", func(t *testing.T) {
		assert.False(t, (&Payment{}).HasStudentConfirmation())
		assert.True(t, (&Payment{StudentConfirmedAt: &now}).HasStudentConfirmation())
	})
}

func TestPaymentStatus_Description(t *testing.T) {
	tests := []struct {
		status PaymentStatus
		want   string
	}{
		{StatusInitiated, "Processing"},
		{StatusConfirmedByParent, "Sent by Parent"},
		{StatusConfirmed, "Completed"},
		{StatusCompleted, "Completed"}, // legacy alias reads the same
		{StatusDisputed, "Disputed"},
		{StatusCancelled, "Cancelled"},
		{StatusFailed, "Failed"},
		{StatusTimeout, "Expired"},
		{StatusPending, "Processing"},
		{PaymentStatus("bogus"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Description())
		})
	}
}

func TestPaymentStatus_Color(t *testing.T) {
	assert.Equal(t, "orange", StatusInitiated.Color())
	assert.Equal(t, "blue", StatusConfirmedByParent.Color())
	assert.Equal(t, "green", StatusConfirmed.Color())
	assert.Equal(t, "green", StatusCompleted.Color())
	assert.Equal(t, "red", StatusDisputed.Color())
	assert.Equal(t, "grey", StatusTimeout.Color())
}
