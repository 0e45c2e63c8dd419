package repositories

import (
	"errors"
	"time"

	"github.com/examport/attempt-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories. Transaction runs fn
// against a repository bound to one database transaction; returning an error
// rolls everything back.
type Repository interface {
	Exam() ExamRepository
	Booking() BookingRepository
	Attempt() AttemptRepository
	BandMap() BandMapRepository
	User() UserRepository

	Transaction(fn func(Repository) error) error
}

// IsNotFoundError reports whether err is the store's "no rows" condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	ExamID    *uint                 `json:"exam_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "submitted_at"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

type BookingFilters struct {
	Status    *models.BookingStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	TeacherID *string               `json:"teacher_id"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

type BandMapFilters struct {
	ExamType    *models.ExamType    `json:"exam_type"`
	SectionType *models.SectionType `json:"section_type"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// GradingQueueItem is one pending subjective section in a teacher's queue.
type GradingQueueItem struct {
	AttemptSectionID uint               `json:"attempt_section_id"`
	AttemptID        uint               `json:"attempt_id"`
	BookingID        uint               `json:"booking_id"`
	StudentID        string             `json:"student_id"`
	ExamID           uint               `json:"exam_id"`
	ExamTitle        string             `json:"exam_title"`
	SectionType      models.SectionType `json:"section_type"`
	SubmittedAt      *time.Time         `json:"submitted_at"`
}
