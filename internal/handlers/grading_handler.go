package handlers

import (
	"net/http"
	"strconv"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/services"
	"github.com/examport/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(gradingService services.GradingService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
	}
}

// GetQueue lists the caller's pending subjective sections
// @Summary Get grading queue
// @Tags grading
// @Produce json
// @Success 200 {array} repositories.GradingQueueItem
// @Failure 403 {object} ErrorResponse
// @Router /grading/queue [get]
func (h *GradingHandler) GetQueue(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	items, err := h.gradingService.GetQueue(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// ListBookings lists the calling teacher's assigned sittings
// @Summary List bookings
// @Tags grading
// @Produce json
// @Param status query string false "Booking status filter"
// @Param student_id query string false "Student filter"
// @Param teacher_id query string false "Teacher filter (admin only)"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /grading/bookings [get]
func (h *GradingHandler) ListBookings(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	var filters repositories.BookingFilters
	if st := c.Query("status"); st != "" {
		status := models.BookingStatus(st)
		filters.Status = &status
	}
	if sid := c.Query("student_id"); sid != "" {
		filters.StudentID = &sid
	}
	if tid := c.Query("teacher_id"); tid != "" {
		filters.TeacherID = &tid
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	bookings, total, err := h.gradingService.ListBookings(c.Request.Context(), filters, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"total":    total,
	})
}

// GradeSection records a band score for a writing or speaking section
// @Summary Grade section
// @Tags grading
// @Accept json
// @Produce json
// @Param section_id path uint true "Attempt section ID"
// @Param grade body services.GradeSectionRequest true "Band, rubric and feedback"
// @Success 200 {object} services.GradeSectionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /grading/sections/{section_id} [post]
func (h *GradingHandler) GradeSection(c *gin.Context) {
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	h.LogRequest(c, "Grading section", "section_id", sectionID)

	var req services.GradeSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	resp, err := h.gradingService.GradeSection(c.Request.Context(), sectionID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ScoreAttempt re-runs objective scoring for a submitted attempt
// @Summary Re-score attempt
// @Tags grading
// @Produce json
// @Param attempt_id path uint true "Attempt ID"
// @Success 200 {object} services.ScoreReport
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /grading/attempts/{attempt_id}/score [post]
func (h *GradingHandler) ScoreAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Re-scoring attempt", "attempt_id", attemptID)

	report, err := h.gradingService.ScoreAttempt(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
