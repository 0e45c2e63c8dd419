package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/scoring"
)

// AttemptReview is the post-submission view of an attempt: per-section
// scores with a per-question breakdown for auto-graded sections.
type AttemptReview struct {
	Attempt  *models.Attempt  `json:"attempt"`
	Sections []*SectionReview `json:"sections"`
}

type SectionReview struct {
	Section   *models.AttemptSection   `json:"section"`
	Breakdown []scoring.QuestionResult `json:"breakdown,omitempty"`
}

func (s *attemptService) GetReview(ctx context.Context, attemptID uint, caller Caller) (*AttemptReview, error) {
	attempt, err := s.GetByID(ctx, attemptID, caller)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptStatusSubmitted {
		return nil, ErrAttemptNotSubmitted
	}

	review := &AttemptReview{Attempt: attempt}
	for i := range attempt.Sections {
		section := &attempt.Sections[i]
		sr := &SectionReview{Section: section}

		// Re-derive the breakdown from stored answers; scoring is
		// deterministic so this matches the persisted raw score.
		if section.Type.AutoGradable() {
			questions, err := s.sectionQuestions(ctx, attempt.ExamID, section.Type)
			if err != nil {
				return nil, err
			}
			answers, err := decodeStoredAnswers(section)
			if err != nil {
				return nil, err
			}
			score, err := scoring.ScoreSection(questions, answers)
			if err != nil {
				return nil, fmt.Errorf("failed to score section %s: %w", section.Type, err)
			}
			sr.Breakdown = score.Breakdown
		}
		review.Sections = append(review.Sections, sr)
	}
	return review, nil
}

// loadOwnedSection fetches the attempt and the named section, enforcing
// student ownership.
func (s *attemptService) loadOwnedSection(ctx context.Context, attemptID uint, sectionType models.SectionType, caller Caller) (*models.Attempt, *models.AttemptSection, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if err := s.policy.CanAccessAttempt(caller, attempt); err != nil {
		return nil, nil, err
	}

	section, err := s.repo.Attempt().GetSection(ctx, attemptID, sectionType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSectionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get section: %w", err)
	}
	return attempt, section, nil
}

// canViewAttempt admits the owning student, the teacher on the booking,
// and admins.
func (s *attemptService) canViewAttempt(ctx context.Context, caller Caller, attempt *models.Attempt) error {
	if caller.Role == models.RoleAdmin || attempt.StudentID == caller.ID {
		return nil
	}
	if caller.Role == models.RoleTeacher {
		booking, err := s.repo.Booking().GetByID(ctx, attempt.BookingID)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if booking.TeacherID == caller.ID {
			return nil
		}
	}
	return NewPermissionError(caller.ID, attempt.ID, "attempt", "view", "caller is neither the student nor the booking teacher")
}

func (s *attemptService) sectionDuration(ctx context.Context, examID uint, sectionType models.SectionType) (int, error) {
	exam, err := s.exams.GetByIDWithDetails(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrExamNotFound
		}
		return 0, fmt.Errorf("failed to get exam: %w", err)
	}
	for _, sec := range exam.Sections {
		if sec.Type == sectionType {
			return sec.Duration, nil
		}
	}
	return 0, ErrExamSectionNotFound
}

func (s *attemptService) sectionQuestions(ctx context.Context, examID uint, sectionType models.SectionType) ([]models.Question, error) {
	questions, err := s.exams.GetSectionQuestions(ctx, examID, sectionType)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamSectionNotFound
		}
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// assignedSectionTypes decodes the booking's section list, preserving
// order and dropping duplicates.
func assignedSectionTypes(booking *models.Booking) ([]models.SectionType, error) {
	var raw []models.SectionType
	if len(booking.AssignedSections) > 0 {
		if err := json.Unmarshal(booking.AssignedSections, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode assigned sections: %w", err)
		}
	}
	seen := make(map[models.SectionType]bool, len(raw))
	var types []models.SectionType
	for _, st := range raw {
		if !st.Valid() || seen[st] {
			continue
		}
		seen[st] = true
		types = append(types, st)
	}
	if len(types) == 0 {
		return nil, ErrBookingNoSections
	}
	return types, nil
}

func decodeStoredAnswers(section *models.AttemptSection) (map[string]json.RawMessage, error) {
	answers := make(map[string]json.RawMessage)
	if len(section.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(section.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode stored answers for section %d: %w", section.ID, err)
	}
	return answers, nil
}

func pendingManualSections(attempt *models.Attempt) []models.SectionType {
	var pending []models.SectionType
	for _, section := range attempt.Sections {
		if !section.Type.AutoGradable() && section.BandScore == nil {
			pending = append(pending, section.Type)
		}
	}
	return pending
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
