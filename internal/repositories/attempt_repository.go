package repositories

import (
	"context"
	"time"

	"github.com/examport/attempt-service/internal/models"
)

// AttemptRepository owns attempt and attempt-section persistence.
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) // Include sections, exam, booking
	GetByBooking(ctx context.Context, bookingID uint) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// Section operations
	GetSection(ctx context.Context, attemptID uint, sectionType models.SectionType) (*models.AttemptSection, error)
	GetSectionByID(ctx context.Context, id uint) (*models.AttemptSection, error)
	GetSections(ctx context.Context, attemptID uint) ([]*models.AttemptSection, error)
	UpdateSection(ctx context.Context, section *models.AttemptSection) error

	// MarkSubmitted flips the attempt to submitted only if it is still in
	// progress, reporting whether this call won the transition. Concurrent
	// double submits must not both succeed.
	MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) (bool, error)

	// Grading queue
	GetPendingGrading(ctx context.Context, teacherID string) ([]*GradingQueueItem, error)

	// Writing submissions
	CreateWritingSubmission(ctx context.Context, sub *models.WritingSubmission) error
	GetWritingSubmission(ctx context.Context, attemptSectionID uint) (*models.WritingSubmission, error)
}
