package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/examport/attempt-service/internal/cache"
	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

// ImportExportService handles band-map and exam-bank spreadsheet imports
// and results exports for admin staff.
type ImportExportService interface {
	ListBandMaps(ctx context.Context, filters repositories.BandMapFilters, caller Caller) ([]*models.BandMapEntry, int64, error)
	ImportBandMaps(ctx context.Context, reader io.Reader, caller Caller) (*ImportSummary, error)
	ImportExamBank(ctx context.Context, reader io.Reader, req *ExamBankImportRequest, caller Caller) (*models.Exam, error)
	ExportResults(ctx context.Context, examID uint, caller Caller) ([]byte, error)
}

// ExamBankImportRequest carries the exam metadata accompanying the
// question bank spreadsheet.
type ExamBankImportRequest struct {
	Title    string          `json:"title" validate:"required,min=1,max=200"`
	ExamType models.ExamType `json:"exam_type" validate:"required,oneof=ielts toefl general"`
}

type ImportSummary struct {
	TotalRows int      `json:"total_rows"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	RowErrors []string `json:"row_errors,omitempty"`
}

type importExportService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
	policy    *Policy
}

func NewImportExportService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, v *validator.Validator) ImportExportService {
	return &importExportService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: v,
		policy:    NewPolicy(),
	}
}

func (s *importExportService) ListBandMaps(ctx context.Context, filters repositories.BandMapFilters, caller Caller) ([]*models.BandMapEntry, int64, error) {
	if !caller.IsAdmin() && !caller.IsTeacher() {
		return nil, 0, NewPermissionError(caller.ID, 0, "band_map", "list", "teacher or admin role required")
	}
	return s.repo.BandMap().List(ctx, filters)
}

// ImportBandMaps reads an xlsx with columns
// exam_type | section_type | min_raw | max_raw | band
// on the first sheet, header row included. Rows that fail validation are
// reported and skipped; valid rows are inserted in one transaction.
func (s *importExportService) ImportBandMaps(ctx context.Context, reader io.Reader, caller Caller) (*ImportSummary, error) {
	if err := s.policy.CanManageBandMaps(caller); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "spreadsheet has no data rows", nil)
	}

	summary := &ImportSummary{TotalRows: len(rows) - 1}
	var entries []*models.BandMapEntry
	for i, row := range rows[1:] {
		rowNum := i + 2
		entry, err := parseBandMapRow(row)
		if err == nil {
			err = s.validator.Validate(entry)
		}
		if err != nil {
			summary.Skipped++
			summary.RowErrors = append(summary.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) > 0 {
		err = s.repo.Transaction(func(tx repositories.Repository) error {
			return tx.BandMap().CreateBatch(ctx, entries)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store band map entries: %w", err)
		}
	}
	summary.Imported = len(entries)

	s.logger.Info("Band map import finished",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"by", caller.ID)
	return summary, nil
}

func parseBandMapRow(row []string) (*models.BandMapEntry, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("expected 5 columns, got %d", len(row))
	}
	minRaw, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid min_raw %q", row[2])
	}
	maxRaw, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid max_raw %q", row[3])
	}
	band, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid band %q", row[4])
	}
	return &models.BandMapEntry{
		ExamType:    models.ExamType(strings.ToLower(strings.TrimSpace(row[0]))),
		SectionType: models.SectionType(strings.ToLower(strings.TrimSpace(row[1]))),
		MinRaw:      minRaw,
		MaxRaw:      maxRaw,
		Band:        band,
	}, nil
}

// ImportExamBank reads an xlsx with columns
// section_type | duration_minutes | question_type | max_score | prompt_json | answer_key_json
// on the first sheet, header row included. Sections appear in row order;
// question order within a section follows row order. Unlike the band-map
// import, any bad row aborts the whole import: an exam with silently
// dropped questions would score wrong.
func (s *importExportService) ImportExamBank(ctx context.Context, reader io.Reader, req *ExamBankImportRequest, caller Caller) (*models.Exam, error) {
	if err := s.policy.CanManageBandMaps(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "spreadsheet has no data rows", nil)
	}

	exam := &models.Exam{
		Title:     req.Title,
		ExamType:  req.ExamType,
		CreatedBy: caller.ID,
	}
	sectionIdx := make(map[models.SectionType]int)
	for i, row := range rows[1:] {
		rowNum := i + 2
		parsed, err := parseExamBankRow(row)
		if err != nil {
			return nil, NewValidationError("file", fmt.Sprintf("row %d: %v", rowNum, err), nil)
		}

		idx, ok := sectionIdx[parsed.sectionType]
		if !ok {
			idx = len(exam.Sections)
			sectionIdx[parsed.sectionType] = idx
			exam.Sections = append(exam.Sections, models.ExamSection{
				Type:     parsed.sectionType,
				Order:    idx + 1,
				Duration: parsed.duration,
			})
		}
		section := &exam.Sections[idx]
		section.Questions = append(section.Questions, models.Question{
			Type:      parsed.questionType,
			Order:     len(section.Questions) + 1,
			MaxScore:  parsed.maxScore,
			Prompt:    parsed.prompt,
			AnswerKey: parsed.answerKey,
		})
	}

	err = s.repo.Transaction(func(tx repositories.Repository) error {
		return tx.Exam().Create(ctx, exam)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store exam: %w", err)
	}

	// Drop any cached definitions so readers see the authored state.
	if err := s.cache.DeletePattern(ctx, "exam:*"); err != nil {
		s.logger.Warn("Failed to invalidate exam cache after import", "error", err)
	}

	questions := 0
	for _, sec := range exam.Sections {
		questions += len(sec.Questions)
	}
	s.logger.Info("Exam bank imported",
		"exam_id", exam.ID,
		"sections", len(exam.Sections),
		"questions", questions,
		"by", caller.ID)
	return exam, nil
}

type examBankRow struct {
	sectionType  models.SectionType
	duration     int
	questionType models.QuestionType
	maxScore     int
	prompt       datatypes.JSON
	answerKey    datatypes.JSON
}

func parseExamBankRow(row []string) (*examBankRow, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("expected at least 5 columns, got %d", len(row))
	}

	sectionType := models.SectionType(strings.ToLower(strings.TrimSpace(row[0])))
	if !sectionType.Valid() {
		return nil, fmt.Errorf("unknown section type %q", row[0])
	}
	duration, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil || duration < 1 || duration > 300 {
		return nil, fmt.Errorf("invalid duration_minutes %q", row[1])
	}
	questionType := models.QuestionType(strings.ToLower(strings.TrimSpace(row[2])))
	maxScore, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil || maxScore < 1 {
		return nil, fmt.Errorf("invalid max_score %q", row[3])
	}

	prompt := strings.TrimSpace(row[4])
	if prompt == "" || !json.Valid([]byte(prompt)) {
		return nil, fmt.Errorf("prompt_json is not valid JSON")
	}

	var answerKey datatypes.JSON
	rawKey := ""
	if len(row) > 5 {
		rawKey = strings.TrimSpace(row[5])
	}
	if questionType.AutoGradable() {
		if rawKey == "" {
			return nil, fmt.Errorf("%s question has no answer key", questionType)
		}
		if _, err := models.DecodeAnswerKey(questionType, json.RawMessage(rawKey)); err != nil {
			return nil, err
		}
		answerKey = datatypes.JSON(rawKey)
	} else {
		if questionType != models.QuestionFreeResponse {
			return nil, fmt.Errorf("unknown question type %q", row[2])
		}
		if rawKey != "" {
			return nil, fmt.Errorf("free_response question must not have an answer key")
		}
	}

	return &examBankRow{
		sectionType:  sectionType,
		duration:     duration,
		questionType: questionType,
		maxScore:     maxScore,
		prompt:       datatypes.JSON(prompt),
		answerKey:    answerKey,
	}, nil
}

// ExportResults writes one row per submitted attempt of the exam with
// per-section bands and the overall band.
func (s *importExportService) ExportResults(ctx context.Context, examID uint, caller Caller) ([]byte, error) {
	if err := s.policy.CanManageBandMaps(caller); err != nil {
		return nil, err
	}

	status := models.AttemptStatusSubmitted
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		ExamID:    &examID,
		Status:    &status,
		SortBy:    "submitted_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{"Attempt ID", "Student ID", "Submitted At",
		"Listening", "Reading", "Writing", "Speaking", "Grammar", "Vocabulary", "Overall"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	sectionOrder := []models.SectionType{
		models.SectionListening, models.SectionReading, models.SectionWriting,
		models.SectionSpeaking, models.SectionGrammar, models.SectionVocabulary,
	}
	for i, attempt := range attempts {
		sections, err := s.repo.Attempt().GetSections(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load sections for attempt %d: %w", attempt.ID, err)
		}
		bands := make(map[models.SectionType]*float64, len(sections))
		for _, section := range sections {
			bands[section.Type] = section.BandScore
		}

		row := []interface{}{attempt.ID, attempt.StudentID, formatTime(attempt.SubmittedAt)}
		for _, st := range sectionOrder {
			row = append(row, bandCell(bands[st]))
		}
		row = append(row, bandCell(attempt.BandOverall))

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Results exported", "exam_id", examID, "attempts", len(attempts), "by", caller.ID)
	return buf.Bytes(), nil
}

func bandCell(band *float64) interface{} {
	if band == nil {
		return ""
	}
	return *band
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
