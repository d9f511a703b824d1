package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomly/roombook-api/internal/dto"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
	"github.com/roomly/roombook-api/pkg/response"
)

type meetingScheduler interface {
	FindOptimal(ctx context.Context, req dto.FindOptimalRequest) (*dto.FindOptimalResponse, error)
}

// SchedulingHandler exposes the recommendation endpoint.
type SchedulingHandler struct {
	service meetingScheduler
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc meetingScheduler) *SchedulingHandler {
	return &SchedulingHandler{service: svc}
}

// FindOptimal recommends a room and start time for the requested meeting.
// An empty recommendation (null room, no alternatives) is a 200, not an
// error; only malformed input and infrastructure failures are.
func (h *SchedulingHandler) FindOptimal(c *gin.Context) {
	var req dto.FindOptimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "invalid meeting request payload"))
		return
	}
	result, err := h.service.FindOptimal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
