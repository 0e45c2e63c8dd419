package events

import (
	"time"

	"github.com/examport/attempt-service/internal/models"
)

// EventType represents different types of notification events
type EventType string

const (
	// Attempt events
	EventAttemptCreated   EventType = "attempt.created"
	EventAttemptSubmitted EventType = "attempt.submitted"

	// Grading events
	EventManualGradingRequired EventType = "grading.manual_required"
	EventSectionGraded         EventType = "grading.section_graded"
	EventGradingCompleted      EventType = "grading.completed"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Attempt notification event payloads

type AttemptCreatedEvent struct {
	AttemptID uint                 `json:"attempt_id"`
	BookingID uint                 `json:"booking_id"`
	ExamID    uint                 `json:"exam_id"`
	ExamTitle string               `json:"exam_title"`
	StudentID string               `json:"student_id"`
	TeacherID string               `json:"teacher_id"`
	Sections  []models.SectionType `json:"sections"`
	StartedAt time.Time            `json:"started_at"`
}

type AttemptSubmittedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	ExamID          uint      `json:"exam_id"`
	ExamTitle       string    `json:"exam_title"`
	StudentID       string    `json:"student_id"`
	TeacherID       string    `json:"teacher_id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	GradingRequired bool      `json:"grading_required"`
	ScoringFailures int       `json:"scoring_failures"`
}

// Grading notification event payloads

type ManualGradingRequiredEvent struct {
	AttemptID   uint                 `json:"attempt_id"`
	ExamID      uint                 `json:"exam_id"`
	ExamTitle   string               `json:"exam_title"`
	TeacherID   string               `json:"teacher_id"`
	StudentID   string               `json:"student_id"`
	Sections    []models.SectionType `json:"sections"`
	SubmittedAt time.Time            `json:"submitted_at"`
}

type SectionGradedEvent struct {
	AttemptID        uint               `json:"attempt_id"`
	AttemptSectionID uint               `json:"attempt_section_id"`
	SectionType      models.SectionType `json:"section_type"`
	StudentID        string             `json:"student_id"`
	GradedBy         string             `json:"graded_by"`
	BandScore        float64            `json:"band_score"`
	GradedAt         time.Time          `json:"graded_at"`
	FullyGraded      bool               `json:"fully_graded"`
}

type GradingCompletedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	ExamTitle   string    `json:"exam_title"`
	StudentID   string    `json:"student_id"`
	BandOverall float64   `json:"band_overall"`
	CompletedAt time.Time `json:"completed_at"`
}
