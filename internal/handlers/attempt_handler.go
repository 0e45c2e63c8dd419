package handlers

import (
	"net/http"

	"github.com/examport/attempt-service/internal/services"
	"github.com/examport/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// CreateAttempt opens an attempt against a confirmed booking
// @Summary Create attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.CreateAttemptRequest true "Booking reference"
// @Success 201 {object} models.Attempt
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts [post]
func (h *AttemptHandler) CreateAttempt(c *gin.Context) {
	h.LogRequest(c, "Creating attempt")

	var req services.CreateAttemptRequest
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

	attempt, err := h.attemptService.CreateFromBooking(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns an attempt with its sections
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.Attempt
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetAttemptReview returns the post-submission result breakdown
// @Summary Get attempt review
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptReview
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/review [get]
func (h *AttemptHandler) GetAttemptReview(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	review, err := h.attemptService.GetReview(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// StartSection starts (or re-enters) a section
// @Summary Start section
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param type path string true "Section type"
// @Success 200 {object} services.StartSectionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/sections/{type}/start [post]
func (h *AttemptHandler) StartSection(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	sectionType, ok := h.parseSectionTypeParam(c, "type")
	if !ok {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting section", "attempt_id", attemptID, "section", sectionType)

	resp, err := h.attemptService.StartSection(c.Request.Context(), attemptID, sectionType, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SaveSectionAnswers overwrites the section's answer map
// @Summary Save section answers
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param type path string true "Section type"
// @Param answers body services.SaveAnswersRequest true "Answer map"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/sections/{type}/answers [put]
func (h *AttemptHandler) SaveSectionAnswers(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	sectionType, ok := h.parseSectionTypeParam(c, "type")
	if !ok {
		return
	}

	var req services.SaveAnswersRequest
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

	if err := h.attemptService.SaveSectionAnswers(c.Request.Context(), attemptID, sectionType, &req, caller); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// EndSection completes a section and freezes its answers
// @Summary End section
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param type path string true "Section type"
// @Success 200 {object} models.AttemptSection
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/sections/{type}/end [post]
func (h *AttemptHandler) EndSection(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	sectionType, ok := h.parseSectionTypeParam(c, "type")
	if !ok {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Ending section", "attempt_id", attemptID, "section", sectionType)

	section, err := h.attemptService.EndSection(c.Request.Context(), attemptID, sectionType, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, section)
}

// SubmitWriting records the writing section's task texts
// @Summary Submit writing
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param submission body services.WritingSubmissionRequest true "Task texts"
// @Success 201 {object} models.WritingSubmission
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/writing [post]
func (h *AttemptHandler) SubmitWriting(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req services.WritingSubmissionRequest
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

	sub, err := h.attemptService.SubmitWriting(c.Request.Context(), attemptID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// SubmitAttempt finalizes the attempt and triggers auto-scoring
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.Attempt
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	attempt, err := h.attemptService.SubmitAttempt(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}
