package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomly/roombook-api/internal/dto"
	"github.com/roomly/roombook-api/internal/models"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
	"github.com/roomly/roombook-api/pkg/response"
)

type bookingCommitter interface {
	Commit(ctx context.Context, req dto.CommitBookingRequest) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateBookingStatusRequest) (*models.Booking, error)
}

// BookingHandler exposes the commit protocol and the booking lifecycle.
type BookingHandler struct {
	service bookingCommitter
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(svc bookingCommitter) *BookingHandler {
	return &BookingHandler{service: svc}
}

// Commit persists a chosen (room, time) as a tentative booking after
// re-validating it against current data. Conflicts come back as discrete 409
// codes so clients can pick between re-planning and an immediate retry.
func (h *BookingHandler) Commit(c *gin.Context) {
	var req dto.CommitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// UpdateStatus moves a tentative booking to confirmed, cancelled or released.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	booking, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking)
}
