package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/validator"
	"gorm.io/datatypes"
)

// AttemptService owns the lifecycle of one student's sitting of one exam:
// creation from a booking, per-section start/save/end transitions, writing
// submissions, and final submission with synchronous auto-scoring.
type AttemptService interface {
	CreateFromBooking(ctx context.Context, req *CreateAttemptRequest, caller Caller) (*models.Attempt, error)
	GetByID(ctx context.Context, attemptID uint, caller Caller) (*models.Attempt, error)
	GetReview(ctx context.Context, attemptID uint, caller Caller) (*AttemptReview, error)

	StartSection(ctx context.Context, attemptID uint, sectionType models.SectionType, caller Caller) (*StartSectionResponse, error)
	SaveSectionAnswers(ctx context.Context, attemptID uint, sectionType models.SectionType, req *SaveAnswersRequest, caller Caller) error
	EndSection(ctx context.Context, attemptID uint, sectionType models.SectionType, caller Caller) (*models.AttemptSection, error)
	SubmitWriting(ctx context.Context, attemptID uint, req *WritingSubmissionRequest, caller Caller) (*models.WritingSubmission, error)

	SubmitAttempt(ctx context.Context, attemptID uint, caller Caller) (*models.Attempt, error)
}

// ===== REQUEST / RESPONSE STRUCTURES =====

type CreateAttemptRequest struct {
	BookingID uint `json:"booking_id" validate:"required"`
}

type SaveAnswersRequest struct {
	// question ID -> typed payload, validated against the question's type
	Answers map[string]json.RawMessage `json:"answers" validate:"required"`
}

type WritingSubmissionRequest struct {
	Task1Text string `json:"task1_text" validate:"required"`
	Task2Text string `json:"task2_text"`
}

type StartSectionResponse struct {
	Section *models.AttemptSection `json:"section"`
	// minutes, for the client countdown; the server does not enforce it
	Duration int `json:"duration"`
}

type attemptService struct {
	repo      repositories.Repository
	exams     ExamSource
	logger    *slog.Logger
	validator *validator.Validator
	policy    *Policy
	scorer    *attemptScorer
	notifier  NotificationEventService
}

func NewAttemptService(
	repo repositories.Repository,
	exams ExamSource,
	bands repositories.BandMapRepository,
	logger *slog.Logger,
	v *validator.Validator,
	notifier NotificationEventService,
) AttemptService {
	return &attemptService{
		repo:      repo,
		exams:     exams,
		logger:    logger,
		validator: v,
		policy:    NewPolicy(),
		scorer:    newAttemptScorer(repo, exams, bands, logger),
		notifier:  notifier,
	}
}

// ===== ATTEMPT CREATION =====

func (s *attemptService) CreateFromBooking(ctx context.Context, req *CreateAttemptRequest, caller Caller) (*models.Attempt, error) {
	s.logger.Info("Creating attempt from booking",
		"booking_id", req.BookingID,
		"student_id", caller.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking().GetByID(ctx, req.BookingID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := s.policy.CanUseBooking(caller, booking); err != nil {
		return nil, err
	}
	if booking.Status != models.BookingConfirmed {
		return nil, ErrBookingNotConfirmed
	}

	sectionTypes, err := assignedSectionTypes(booking)
	if err != nil {
		return nil, err
	}

	// One attempt per booking, ever.
	if existing, err := s.repo.Attempt().GetByBooking(ctx, booking.ID); err == nil && existing != nil {
		return nil, ErrBookingAlreadyUsed
	} else if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing attempt: %w", err)
	}

	attempt := &models.Attempt{
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		ExamID:    booking.ExamID,
		Status:    models.AttemptStatusInProgress,
		StartedAt: time.Now(),
	}
	for _, st := range sectionTypes {
		attempt.Sections = append(attempt.Sections, models.AttemptSection{
			Type:   st,
			Status: models.SectionStatusNotStarted,
		})
	}

	err = s.repo.Transaction(func(tx repositories.Repository) error {
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		if err := tx.Booking().UpdateStatus(ctx, booking.ID, models.BookingInProgress); err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt created",
		"attempt_id", attempt.ID,
		"booking_id", booking.ID,
		"sections", len(attempt.Sections))

	if err := s.notifier.NotifyAttemptCreated(ctx, attempt, booking); err != nil {
		s.logger.Error("Failed to publish attempt created event", "attempt_id", attempt.ID, "error", err)
	}

	return s.repo.Attempt().GetByIDWithDetails(ctx, attempt.ID)
}

// ===== SECTION TRANSITIONS =====

func (s *attemptService) StartSection(ctx context.Context, attemptID uint, sectionType models.SectionType, caller Caller) (*StartSectionResponse, error) {
	attempt, section, err := s.loadOwnedSection(ctx, attemptID, sectionType, caller)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, ErrAttemptNotActive
	}
	if section.Locked() {
		return nil, ErrSectionLocked
	}

	duration, err := s.sectionDuration(ctx, attempt.ExamID, sectionType)
	if err != nil {
		return nil, err
	}

	// Idempotent re-entry: the clock starts once.
	if section.StartedAt == nil {
		now := time.Now()
		section.StartedAt = &now
		section.Status = models.SectionStatusInProgress
		if err := s.repo.Attempt().UpdateSection(ctx, section); err != nil {
			return nil, fmt.Errorf("failed to start section: %w", err)
		}
		s.logger.Info("Section started",
			"attempt_id", attemptID,
			"section", sectionType)
	}

	return &StartSectionResponse{Section: section, Duration: duration}, nil
}

func (s *attemptService) SaveSectionAnswers(ctx context.Context, attemptID uint, sectionType models.SectionType, req *SaveAnswersRequest, caller Caller) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, section, err := s.loadOwnedSection(ctx, attemptID, sectionType, caller)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return ErrAttemptNotActive
	}
	if section.Locked() {
		return ErrSectionLocked
	}

	// Decode against the question definitions so untyped payloads never
	// reach storage.
	questions, err := s.sectionQuestions(ctx, attempt.ExamID, sectionType)
	if err != nil {
		return err
	}
	if _, err := models.DecodeAnswerMap(questions, req.Answers); err != nil {
		return NewValidationError("answers", err.Error(), nil)
	}

	raw, err := json.Marshal(req.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	// Wholesale overwrite, last write wins. Autosave bursts need no merge
	// or concurrency token.
	section.Answers = datatypes.JSON(raw)
	if section.Status == models.SectionStatusNotStarted {
		section.Status = models.SectionStatusInProgress
	}
	if err := s.repo.Attempt().UpdateSection(ctx, section); err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}

	s.logger.Debug("Section answers saved",
		"attempt_id", attemptID,
		"section", sectionType,
		"answers_count", len(req.Answers))
	return nil
}

func (s *attemptService) EndSection(ctx context.Context, attemptID uint, sectionType models.SectionType, caller Caller) (*models.AttemptSection, error) {
	attempt, section, err := s.loadOwnedSection(ctx, attemptID, sectionType, caller)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, ErrAttemptNotActive
	}
	if section.Locked() {
		return nil, ErrSectionLocked
	}

	now := time.Now()
	section.Status = models.SectionStatusCompleted
	section.EndedAt = &now
	if section.StartedAt == nil {
		section.StartedAt = &now
	}
	if err := s.repo.Attempt().UpdateSection(ctx, section); err != nil {
		return nil, fmt.Errorf("failed to end section: %w", err)
	}

	s.logger.Info("Section ended",
		"attempt_id", attemptID,
		"section", sectionType)
	return section, nil
}

func (s *attemptService) SubmitWriting(ctx context.Context, attemptID uint, req *WritingSubmissionRequest, caller Caller) (*models.WritingSubmission, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, section, err := s.loadOwnedSection(ctx, attemptID, models.SectionWriting, caller)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, ErrAttemptNotActive
	}
	if section.Type != models.SectionWriting {
		return nil, ErrSectionNotWriting
	}
	if section.Locked() {
		return nil, ErrSectionLocked
	}

	// Exactly one writing submission per section.
	if _, err := s.repo.Attempt().GetWritingSubmission(ctx, section.ID); err == nil {
		return nil, ErrWritingAlreadySaved
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check writing submission: %w", err)
	}

	sub := &models.WritingSubmission{
		AttemptSectionID: section.ID,
		Task1Text:        req.Task1Text,
		Task2Text:        req.Task2Text,
		Task1WordCount:   countWords(req.Task1Text),
		Task2WordCount:   countWords(req.Task2Text),
	}
	if err := s.repo.Attempt().CreateWritingSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create writing submission: %w", err)
	}

	s.logger.Info("Writing submission recorded",
		"attempt_id", attemptID,
		"section_id", section.ID,
		"task1_words", sub.Task1WordCount,
		"task2_words", sub.Task2WordCount)
	return sub, nil
}

// ===== SUBMISSION =====

func (s *attemptService) SubmitAttempt(ctx context.Context, attemptID uint, caller Caller) (*models.Attempt, error) {
	s.logger.Info("Submitting attempt", "attempt_id", attemptID, "student_id", caller.ID)

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if err := s.policy.CanAccessAttempt(caller, attempt); err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptStatusSubmitted {
		return nil, ErrAttemptAlreadySubmitted
	}

	// Conditional update guards against a concurrent double submit: only
	// one caller wins the in_progress -> submitted transition.
	submittedAt := time.Now()
	won, err := s.repo.Attempt().MarkSubmitted(ctx, attemptID, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to submit attempt: %w", err)
	}
	if !won {
		return nil, ErrAttemptAlreadySubmitted
	}

	// Close every section so none is left open. Sections that went through
	// EndSection move to submitted; the rest are force-closed.
	for i := range attempt.Sections {
		section := &attempt.Sections[i]
		switch section.Status {
		case models.SectionStatusCompleted:
			section.Status = models.SectionStatusSubmitted
		case models.SectionStatusSubmitted:
			continue
		default:
			section.Status = models.SectionStatusCompleted
			if section.EndedAt == nil {
				endedAt := submittedAt
				section.EndedAt = &endedAt
			}
		}
		if err := s.repo.Attempt().UpdateSection(ctx, section); err != nil {
			return nil, fmt.Errorf("failed to close section %s: %w", section.Type, err)
		}
	}

	if err := s.repo.Booking().UpdateStatus(ctx, attempt.BookingID, models.BookingCompleted); err != nil {
		s.logger.Error("Failed to complete booking", "booking_id", attempt.BookingID, "error", err)
	}

	// Auto-score synchronously. A scoring failure is logged and reported
	// but never rolls back the submission; ScoreAttempt can be re-invoked
	// later.
	failures := s.scorer.scoreSections(ctx, attempt)

	attempt, err = s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}

	// An attempt with only auto-graded sections is fully banded already.
	if _, _, err := s.scorer.aggregateOverall(ctx, attempt); err != nil {
		s.logger.Error("Failed to aggregate overall band", "attempt_id", attemptID, "error", err)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attemptID,
		"scoring_failures", failures)

	booking, err := s.repo.Booking().GetByID(ctx, attempt.BookingID)
	if err == nil {
		if err := s.notifier.NotifyAttemptSubmitted(ctx, attempt, booking, failures); err != nil {
			s.logger.Error("Failed to publish attempt submitted event", "attempt_id", attemptID, "error", err)
		}
		if pending := pendingManualSections(attempt); len(pending) > 0 {
			if err := s.notifier.NotifyManualGradingRequired(ctx, attempt, booking, pending); err != nil {
				s.logger.Error("Failed to publish grading required event", "attempt_id", attemptID, "error", err)
			}
		}
	}

	return attempt, nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, caller Caller) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if err := s.canViewAttempt(ctx, caller, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}
