package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/examport/attempt-service/internal/events"
	"github.com/examport/attempt-service/internal/models"
	"github.com/google/uuid"
)

const (
	eventSource  = "attempt-service"
	eventVersion = "1.0"
)

// NotificationEventService builds and publishes the domain events other
// services (notification delivery, analytics) consume. Publishing is
// best-effort; callers log failures and move on.
type NotificationEventService interface {
	NotifyAttemptCreated(ctx context.Context, attempt *models.Attempt, booking *models.Booking) error
	NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt, booking *models.Booking, scoringFailures int) error
	NotifyManualGradingRequired(ctx context.Context, attempt *models.Attempt, booking *models.Booking, sections []models.SectionType) error
	NotifySectionGraded(ctx context.Context, attempt *models.Attempt, section *models.AttemptSection, fullyGraded bool) error
	NotifyGradingCompleted(ctx context.Context, attempt *models.Attempt) error
}

type notificationEventService struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewNotificationEventService(publisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		publisher: publisher,
		logger:    logger,
	}
}

func (s *notificationEventService) NotifyAttemptCreated(ctx context.Context, attempt *models.Attempt, booking *models.Booking) error {
	sections := make([]models.SectionType, 0, len(attempt.Sections))
	for _, section := range attempt.Sections {
		sections = append(sections, section.Type)
	}
	return s.publish(ctx, events.EventAttemptCreated, events.AttemptCreatedEvent{
		AttemptID: attempt.ID,
		BookingID: booking.ID,
		ExamID:    attempt.ExamID,
		ExamTitle: examTitle(attempt, booking),
		StudentID: attempt.StudentID,
		TeacherID: booking.TeacherID,
		Sections:  sections,
		StartedAt: attempt.StartedAt,
	})
}

func (s *notificationEventService) NotifyAttemptSubmitted(ctx context.Context, attempt *models.Attempt, booking *models.Booking, scoringFailures int) error {
	return s.publish(ctx, events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:       attempt.ID,
		ExamID:          attempt.ExamID,
		ExamTitle:       examTitle(attempt, booking),
		StudentID:       attempt.StudentID,
		TeacherID:       booking.TeacherID,
		SubmittedAt:     derefTime(attempt.SubmittedAt),
		GradingRequired: len(pendingManualSections(attempt)) > 0,
		ScoringFailures: scoringFailures,
	})
}

func (s *notificationEventService) NotifyManualGradingRequired(ctx context.Context, attempt *models.Attempt, booking *models.Booking, sections []models.SectionType) error {
	return s.publish(ctx, events.EventManualGradingRequired, events.ManualGradingRequiredEvent{
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		ExamTitle:   examTitle(attempt, booking),
		TeacherID:   booking.TeacherID,
		StudentID:   attempt.StudentID,
		Sections:    sections,
		SubmittedAt: derefTime(attempt.SubmittedAt),
	})
}

func (s *notificationEventService) NotifySectionGraded(ctx context.Context, attempt *models.Attempt, section *models.AttemptSection, fullyGraded bool) error {
	payload := events.SectionGradedEvent{
		AttemptID:        attempt.ID,
		AttemptSectionID: section.ID,
		SectionType:      section.Type,
		StudentID:        attempt.StudentID,
		GradedAt:         time.Now(),
		FullyGraded:      fullyGraded,
	}
	if section.GradedBy != nil {
		payload.GradedBy = *section.GradedBy
	}
	if section.BandScore != nil {
		payload.BandScore = *section.BandScore
	}
	return s.publish(ctx, events.EventSectionGraded, payload)
}

func (s *notificationEventService) NotifyGradingCompleted(ctx context.Context, attempt *models.Attempt) error {
	payload := events.GradingCompletedEvent{
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		ExamTitle:   attempt.Exam.Title,
		StudentID:   attempt.StudentID,
		CompletedAt: time.Now(),
	}
	if attempt.BandOverall != nil {
		payload.BandOverall = *attempt.BandOverall
	}
	return s.publish(ctx, events.EventGradingCompleted, payload)
}

func (s *notificationEventService) publish(ctx context.Context, eventType events.EventType, data interface{}) error {
	notificationType, priority := notificationHints(eventType)
	event := &events.NotificationEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
		Metadata: map[string]interface{}{
			"notification_type": notificationType,
			"priority":          priority,
		},
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		return err
	}
	s.logger.Debug("Event published", "type", eventType, "event_id", event.ID)
	return nil
}

// notificationHints tells the external notification consumer what kind of
// user-facing notification an event should become and how urgent it is.
func notificationHints(eventType events.EventType) (models.NotificationType, models.NotificationPriority) {
	switch eventType {
	case events.EventAttemptCreated:
		return models.NotificationAttemptCreated, models.PriorityLow
	case events.EventAttemptSubmitted:
		return models.NotificationAttemptSubmitted, models.PriorityNormal
	case events.EventManualGradingRequired:
		return models.NotificationGradingRequired, models.PriorityHigh
	case events.EventSectionGraded:
		return models.NotificationSectionGraded, models.PriorityNormal
	default:
		return models.NotificationResultAvailable, models.PriorityHigh
	}
}

// examTitle prefers the attempt's loaded exam relation and falls back to
// the booking's. A freshly created attempt has no relations loaded yet.
func examTitle(attempt *models.Attempt, booking *models.Booking) string {
	if attempt.Exam.Title != "" {
		return attempt.Exam.Title
	}
	return booking.Exam.Title
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
