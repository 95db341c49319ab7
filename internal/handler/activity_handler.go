package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-stats-api/internal/dto"
	"github.com/noah-isme/lms-stats-api/internal/service"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
	"github.com/noah-isme/lms-stats-api/pkg/response"
)

// ActivityHandler exposes the page-view counter endpoints.
type ActivityHandler struct {
	activity *service.ActivityService
}

// NewActivityHandler constructs the activity handler.
func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// Increment records one page view for a course. The write may land in the
// shared buffer rather than the durable store, so success is reported as
// accepted rather than created.
func (h *ActivityHandler) Increment(c *gin.Context) {
	if h.activity == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	var req dto.IncrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid increment payload"))
		return
	}
	at, err := req.OccurredAtTime()
	if err != nil {
		response.Error(c, err)
		return
	}

	courseID := c.Param("course_id")
	if err := h.activity.Increment(c.Request.Context(), courseID, at, req.Category, req.Participated); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"course_id": courseID, "category": req.Category})
}

// Range returns the durable counter bins for a course, optionally bounded
// by category and calendar dates.
func (h *ActivityHandler) Range(c *gin.Context) {
	if h.activity == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	var query dto.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity query"))
		return
	}
	filter, err := query.Filter(c.Param("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	bins, err := h.activity.Range(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bins, nil)
}
