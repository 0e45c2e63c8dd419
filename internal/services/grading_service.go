package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/scoring"
	"github.com/examport/attempt-service/internal/validator"
	"gorm.io/datatypes"
)

// GradingService covers everything that happens to an attempt after
// submission: the teacher's manual grading queue, band entry for
// subjective sections, overall band aggregation, and re-running the
// auto-scorer after a failure.
type GradingService interface {
	GetQueue(ctx context.Context, caller Caller) ([]*repositories.GradingQueueItem, error)
	ListBookings(ctx context.Context, filters repositories.BookingFilters, caller Caller) ([]*models.Booking, int64, error)
	GradeSection(ctx context.Context, sectionID uint, req *GradeSectionRequest, caller Caller) (*GradeSectionResponse, error)
	ScoreAttempt(ctx context.Context, attemptID uint, caller Caller) (*ScoreReport, error)
}

type GradeSectionRequest struct {
	BandScore float64        `json:"band_score" validate:"band_score"`
	Rubric    map[string]any `json:"rubric"`
	Feedback  string         `json:"feedback" validate:"max=5000"`
}

type GradeSectionResponse struct {
	Section     *models.AttemptSection `json:"section"`
	FullyGraded bool                   `json:"fully_graded"`
	BandOverall *float64               `json:"band_overall,omitempty"`
}

// ScoreReport summarizes one auto-scoring pass over an attempt.
type ScoreReport struct {
	AttemptID       uint     `json:"attempt_id"`
	SectionsScored  int      `json:"sections_scored"`
	SectionsFailed  int      `json:"sections_failed"`
	SectionsSkipped int      `json:"sections_skipped"`
	FullyGraded     bool     `json:"fully_graded"`
	BandOverall     *float64 `json:"band_overall,omitempty"`
}

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	policy    *Policy
	scorer    *attemptScorer
	notifier  NotificationEventService
}

func NewGradingService(
	repo repositories.Repository,
	exams ExamSource,
	bands repositories.BandMapRepository,
	logger *slog.Logger,
	v *validator.Validator,
	notifier NotificationEventService,
) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: v,
		policy:    NewPolicy(),
		scorer:    newAttemptScorer(repo, exams, bands, logger),
		notifier:  notifier,
	}
}

func (s *gradingService) GetQueue(ctx context.Context, caller Caller) ([]*repositories.GradingQueueItem, error) {
	if !caller.IsTeacher() && !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, 0, "grading_queue", "list", "teacher role required")
	}

	items, err := s.repo.Attempt().GetPendingGrading(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grading queue: %w", err)
	}
	return items, nil
}

// ListBookings lists the caller's assigned sittings. Admins may inspect
// another teacher's list via the TeacherID filter.
func (s *gradingService) ListBookings(ctx context.Context, filters repositories.BookingFilters, caller Caller) ([]*models.Booking, int64, error) {
	if !caller.IsTeacher() && !caller.IsAdmin() {
		return nil, 0, NewPermissionError(caller.ID, 0, "booking", "list", "teacher role required")
	}

	teacherID := caller.ID
	if caller.IsAdmin() && filters.TeacherID != nil {
		teacherID = *filters.TeacherID
	}

	bookings, total, err := s.repo.Booking().GetByTeacher(ctx, teacherID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

func (s *gradingService) GradeSection(ctx context.Context, sectionID uint, req *GradeSectionRequest, caller Caller) (*GradeSectionResponse, error) {
	s.logger.Info("Grading section",
		"section_id", sectionID,
		"teacher_id", caller.ID,
		"band", req.BandScore)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !scoring.IsValidBand(req.BandScore) {
		return nil, ErrGradingInvalidBand
	}

	section, err := s.repo.Attempt().GetSectionByID(ctx, sectionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	if section.Type.AutoGradable() {
		return nil, ErrGradingNotAllowed
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, section.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptStatusSubmitted {
		return nil, ErrAttemptNotSubmitted
	}

	booking, err := s.repo.Booking().GetByID(ctx, attempt.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := s.policy.CanGradeBooking(caller, booking); err != nil {
		return nil, err
	}

	// Re-grading overwrites in full; the previous band, rubric and
	// feedback are replaced, not merged.
	band := req.BandScore
	section.BandScore = &band
	section.Feedback = optionalString(req.Feedback)
	section.GradedBy = &caller.ID
	if req.Rubric != nil {
		rubric, err := marshalJSON(req.Rubric)
		if err != nil {
			return nil, fmt.Errorf("failed to encode rubric: %w", err)
		}
		section.Rubric = rubric
	} else {
		section.Rubric = nil
	}

	if err := s.repo.Attempt().UpdateSection(ctx, section); err != nil {
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	// Refresh and aggregate: once every section carries a band, the
	// overall band is derived and the attempt is fully graded.
	attempt, err = s.repo.Attempt().GetByIDWithDetails(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	fullyGraded, overall, err := s.scorer.aggregateOverall(ctx, attempt)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifySectionGraded(ctx, attempt, section, fullyGraded); err != nil {
		s.logger.Error("Failed to publish section graded event", "section_id", sectionID, "error", err)
	}
	if fullyGraded {
		if err := s.notifier.NotifyGradingCompleted(ctx, attempt); err != nil {
			s.logger.Error("Failed to publish grading completed event", "attempt_id", attempt.ID, "error", err)
		}
	}

	s.logger.Info("Section graded",
		"section_id", sectionID,
		"attempt_id", attempt.ID,
		"fully_graded", fullyGraded)

	return &GradeSectionResponse{
		Section:     section,
		FullyGraded: fullyGraded,
		BandOverall: overall,
	}, nil
}

// ScoreAttempt re-runs objective scoring for a submitted attempt. Safe to
// call repeatedly; results are deterministic.
func (s *gradingService) ScoreAttempt(ctx context.Context, attemptID uint, caller Caller) (*ScoreReport, error) {
	if err := s.policy.CanManageBandMaps(caller); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptStatusSubmitted {
		return nil, ErrAttemptNotSubmitted
	}

	failures := s.scorer.scoreSections(ctx, attempt)

	attempt, err = s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	fullyGraded, overall, err := s.scorer.aggregateOverall(ctx, attempt)
	if err != nil {
		return nil, err
	}

	report := &ScoreReport{
		AttemptID:   attemptID,
		FullyGraded: fullyGraded,
		BandOverall: overall,
	}
	for _, section := range attempt.Sections {
		if !section.Type.AutoGradable() {
			report.SectionsSkipped++
		} else if section.RawScore != nil {
			report.SectionsScored++
		}
	}
	report.SectionsFailed = failures
	return report, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
