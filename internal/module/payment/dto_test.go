package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPagination_Offset(t *testing.T) {
	assert.Equal(t, 0, (&Pagination{Page: 1, PageSize: 20}).Offset())
	assert.Equal(t, 40, (&Pagination{Page: 3, PageSize: 20}).Offset())

	p := NewPagination()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestToResponse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active payment carries a countdown", func(t *testing.T) {
		p := &Payment{
			ID:              uuid.New(),
			Status:          StatusInitiated,
			Provider:        ProviderZelle,
			AmountRequested: 2000,
			CreatedAt:       now.Add(-30 * time.Hour),
		}
		resp := ToResponse(p, now)
		assert.Equal(t, "Processing", resp.StatusDescription)
		assert.Equal(t, "orange", resp.StatusColor)
		assert.Equal(t, "Zelle", resp.ProviderName)
		assert.Equal(t, "18h 0m remaining", resp.TimeRemaining)
	})

	t.Run("terminal payment has no countdown", func(t *testing.T) {
		p := &Payment{
			ID:        uuid.New(),
			Status:    StatusConfirmed,
			Provider:  ProviderZelle,
			CreatedAt: now.Add(-24 * time.Hour),
		}
		resp := ToResponse(p, now)
		assert.Empty(t, resp.TimeRemaining)
	})

	t.Run("received amount discrepancy survives serialization", func(t *testing.T) {
		received := int64(1950)
		p := &Payment{
			Status:                StatusConfirmed,
			AmountRequested:       2000,
			StudentReceivedAmount: &received,
		}
		resp := ToResponse(p, now)
		assert.Equal(t, int64(2000), resp.AmountRequested)
		assert.Equal(t, int64(1950), *resp.StudentReceivedAmount)
	})
}
