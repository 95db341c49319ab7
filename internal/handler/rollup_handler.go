package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/lms-stats-api/internal/dto"
	"github.com/noah-isme/lms-stats-api/internal/middleware"
	"github.com/noah-isme/lms-stats-api/internal/service"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
	"github.com/noah-isme/lms-stats-api/pkg/jobs"
	"github.com/noah-isme/lms-stats-api/pkg/response"
)

// RecomputeJobType identifies queued rollup recompute work.
const RecomputeJobType = "rollup_recompute"

// RollupHandler exposes the score rollup read and recompute endpoints.
type RollupHandler struct {
	rollups *service.RollupService
	queue   *jobs.Queue
}

// NewRollupHandler constructs the rollup handler.
func NewRollupHandler(rollups *service.RollupService, queue *jobs.Queue) *RollupHandler {
	return &RollupHandler{rollups: rollups, queue: queue}
}

// Section returns one section's persisted rollup.
func (h *RollupHandler) Section(c *gin.Context) {
	if h.rollups == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	rollup, err := h.rollups.SectionRollup(c.Request.Context(), c.Param("assignment_id"), c.Param("section_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rollup, nil)
}

// Assignment returns the merged assignment-level rollup.
func (h *RollupHandler) Assignment(c *gin.Context) {
	if h.rollups == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	rollup, cacheHit, err := h.rollups.AssignmentRollup(c.Request.Context(), c.Param("assignment_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, rollup, nil, meta)
}

// Recompute queues a rollup rebuild for the assignment, optionally
// narrowed to one section via the request body.
func (h *RollupHandler) Recompute(c *gin.Context) {
	if h.rollups == nil || h.queue == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	var req dto.RecomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recompute payload"))
			return
		}
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: RecomputeJobType,
		Payload: dto.RecomputePayload{
			AssignmentID:    c.Param("assignment_id"),
			CourseSectionID: req.CourseSectionID,
		},
	}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "recompute queue unavailable"))
		return
	}

	response.Accepted(c, dto.RecomputeAccepted{
		JobID:           job.ID,
		AssignmentID:    c.Param("assignment_id"),
		CourseSectionID: req.CourseSectionID,
	})
}
