package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hearthapp/server/internal/module/auth"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes registers payment routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/confirm-sent", h.ConfirmSent)
		payments.POST("/:id/confirm-received", h.ConfirmReceived)
		payments.POST("/:id/cancel", h.CancelPayment)
		payments.POST("/:id/dispute", h.DisputePayment)
		payments.POST("/:id/dispute/resolve", h.ResolveDispute)
		payments.POST("/:id/retry", h.RetryPayment)
	}
}

// CreatePayment initiates a payment to a student.
//
//	@Summary		Initiate payment
//	@Description	Parent initiates a payment to a student via an external provider
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreatePaymentRequest	true	"Create payment request"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Router			/payments [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	userID, familyID := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if getRole(c) != auth.RoleParent {
		c.JSON(http.StatusForbidden, gin.H{"error": "only parents can initiate payments"})
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Create(c.Request.Context(), familyID, userID, &req)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// ListPayments returns payments for the caller's family.
//
//	@Summary		List payments
//	@Description	List payments for the caller's family with optional filters
//	@Tags			Payment
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status		query		string	false	"Filter by status"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	ListResponse
//	@Router			/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	userID, familyID := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var filter Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pagination := NewPagination()
	if err := c.ShouldBindQuery(pagination); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payments, total, err := h.service.List(c.Request.Context(), familyID, &filter, pagination)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	now := h.service.Now()
	responses := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = ToResponse(p, now)
	}

	c.JSON(http.StatusOK, ListResponse{
		Payments: responses,
		Total:    total,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	})
}

// GetPayment returns a single payment.
//
//	@Summary		Get payment
//	@Tags			Payment
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Payment ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	map[string]string
//	@Router			/payments/{id} [get]
func (h *Handler) GetPayment(c *gin.Context) {
	userID, familyID := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.Get(c.Request.Context(), id, familyID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// ConfirmSent records the parent's attestation that the money was sent.
//
//	@Summary		Confirm sent
//	@Description	Parent attests the money was sent. Idempotent.
//	@Tags			Payment
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Payment ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		409	{object}	map[string]string
//	@Router			/payments/{id}/confirm-sent [post]
func (h *Handler) ConfirmSent(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.ConfirmAsParent(c.Request.Context(), id, userID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// ConfirmReceived records the student's attestation of the received amount.
//
//	@Summary		Confirm received
//	@Description	Student attests the money arrived, with the amount actually received. Idempotent.
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Payment ID"
//	@Param			request	body		ConfirmReceivedRequest	true	"Received amount"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		409		{object}	map[string]string
//	@Router			/payments/{id}/confirm-received [post]
func (h *Handler) ConfirmReceived(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req ConfirmReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.ConfirmAsStudent(c.Request.Context(), id, userID, req.ReceivedAmount)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// CancelPayment cancels a payment that has not been marked sent.
//
//	@Summary		Cancel payment
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Payment ID"
//	@Param			request	body		CancelPaymentRequest	false	"Cancellation reason"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		409		{object}	map[string]string
//	@Router			/payments/{id}/cancel [post]
func (h *Handler) CancelPayment(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	// Reason is optional; an empty body is fine.
	var req CancelPaymentRequest
	_ = c.ShouldBindJSON(&req)

	p, err := h.service.Cancel(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// DisputePayment opens a dispute on a payment.
//
//	@Summary		Dispute payment
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Payment ID"
//	@Param			request	body		DisputePaymentRequest	true	"Dispute reason"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		409		{object}	map[string]string
//	@Router			/payments/{id}/dispute [post]
func (h *Handler) DisputePayment(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req DisputePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Dispute(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// ResolveDispute resolves a disputed payment to confirmed or failed.
//
//	@Summary		Resolve dispute
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Payment ID"
//	@Param			request	body		ResolveDisputeRequest	true	"Dispute outcome"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		409		{object}	map[string]string
//	@Router			/payments/{id}/dispute/resolve [post]
func (h *Handler) ResolveDispute(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if getRole(c) != auth.RoleParent {
		c.JSON(http.StatusForbidden, gin.H{"error": "only parents can resolve disputes"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.ResolveDispute(c.Request.Context(), id, userID, req.Outcome)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// RetryPayment moves a failed payment back to initiated.
//
//	@Summary		Retry failed payment
//	@Tags			Payment
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Payment ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		409	{object}	map[string]string
//	@Router			/payments/{id}/retry [post]
func (h *Handler) RetryPayment(c *gin.Context) {
	userID, _ := getActor(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.Retry(c.Request.Context(), id, userID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": ToResponse(p, h.service.Now()),
	})
}

// --- Helpers ---

func getActor(c *gin.Context) (uuid.UUID, uuid.UUID) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, uuid.Nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, uuid.Nil
	}

	familyID := uuid.Nil
	if familyIDVal, exists := c.Get("family_id"); exists {
		if id, ok := familyIDVal.(uuid.UUID); ok {
			familyID = id
		}
	}
	return userID, familyID
}

func getRole(c *gin.Context) auth.Role {
	roleVal, exists := c.Get("role")
	if !exists {
		return ""
	}
	role, ok := roleVal.(auth.Role)
	if !ok {
		return ""
	}
	return role
}

func handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a participant in this payment"})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrTransactionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "payment was updated concurrently, please retry"})
	case errors.Is(err, ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
