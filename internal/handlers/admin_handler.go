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

// AdminHandler covers band-map administration and results export.
type AdminHandler struct {
	BaseHandler
	importExportService services.ImportExportService
}

func NewAdminHandler(importExportService services.ImportExportService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:         NewBaseHandler(logger),
		importExportService: importExportService,
	}
}

// ListBandMaps lists band map entries with optional filters
// @Summary List band maps
// @Tags admin
// @Produce json
// @Param exam_type query string false "Exam type filter"
// @Param section_type query string false "Section type filter"
// @Success 200 {object} SuccessResponse
// @Router /admin/band-maps [get]
func (h *AdminHandler) ListBandMaps(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	var filters repositories.BandMapFilters
	if et := c.Query("exam_type"); et != "" {
		examType := models.ExamType(et)
		filters.ExamType = &examType
	}
	if st := c.Query("section_type"); st != "" {
		sectionType := models.SectionType(st)
		filters.SectionType = &sectionType
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	entries, total, err := h.importExportService.ListBandMaps(c.Request.Context(), filters, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
	})
}

// ImportBandMaps ingests an xlsx of band map rows
// @Summary Import band maps
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Band map spreadsheet"
// @Success 200 {object} services.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/band-maps/import [post]
func (h *AdminHandler) ImportBandMaps(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Importing band maps")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing spreadsheet file",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	summary, err := h.importExportService.ImportBandMaps(c.Request.Context(), file, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ImportExamBank ingests an xlsx question bank as a new exam definition
// @Summary Import exam bank
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Question bank spreadsheet"
// @Param title formData string true "Exam title"
// @Param exam_type formData string true "Exam type (ielts, toefl, general)"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/exams/import [post]
func (h *AdminHandler) ImportExamBank(c *gin.Context) {
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Importing exam bank")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing spreadsheet file",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	req := &services.ExamBankImportRequest{
		Title:    c.PostForm("title"),
		ExamType: models.ExamType(c.PostForm("exam_type")),
	}

	exam, err := h.importExportService.ImportExamBank(c.Request.Context(), file, req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// ExportResults streams an xlsx of submitted attempts for one exam
// @Summary Export results
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param exam_id path uint true "Exam ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /admin/exams/{exam_id}/results/export [get]
func (h *AdminHandler) ExportResults(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}
	caller, ok := h.getCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting results", "exam_id", examID)

	data, err := h.importExportService.ExportResults(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
