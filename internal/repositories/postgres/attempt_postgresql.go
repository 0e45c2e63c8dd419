package postgres

import (
	"context"
	"time"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_sections.id ASC")
		}).
		Preload("Booking").
		Preload("Exam").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByBooking(ctx context.Context, bookingID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filters first
	query := a.db.WithContext(ctx).Model(&models.Attempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then pagination and sorting
	query = a.applyPaginationAndSort(query, filters)

	if err := query.Preload("Sections").Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a AttemptPostgreSQL) GetSection(ctx context.Context, attemptID uint, sectionType models.SectionType) (*models.AttemptSection, error) {
	var section models.AttemptSection
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ? AND type = ?", attemptID, sectionType).
		First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (a AttemptPostgreSQL) GetSectionByID(ctx context.Context, id uint) (*models.AttemptSection, error) {
	var section models.AttemptSection
	if err := a.db.WithContext(ctx).First(&section, id).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (a AttemptPostgreSQL) GetSections(ctx context.Context, attemptID uint) ([]*models.AttemptSection, error) {
	var sections []*models.AttemptSection
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (a AttemptPostgreSQL) UpdateSection(ctx context.Context, section *models.AttemptSection) error {
	return a.db.WithContext(ctx).Save(section).Error
}

// MarkSubmitted performs a conditional update so that only one of two
// concurrent submissions observes rows affected = 1.
func (a AttemptPostgreSQL) MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":       models.AttemptStatusSubmitted,
			"submitted_at": submittedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (a AttemptPostgreSQL) GetPendingGrading(ctx context.Context, teacherID string) ([]*repositories.GradingQueueItem, error) {
	var items []*repositories.GradingQueueItem
	err := a.db.WithContext(ctx).
		Table("attempt_sections").
		Select(`attempt_sections.id AS attempt_section_id,
			attempts.id AS attempt_id,
			attempts.booking_id,
			attempts.student_id,
			attempts.exam_id,
			exams.title AS exam_title,
			attempt_sections.type AS section_type,
			attempts.submitted_at`).
		Joins("JOIN attempts ON attempts.id = attempt_sections.attempt_id").
		Joins("JOIN bookings ON bookings.id = attempts.booking_id").
		Joins("JOIN exams ON exams.id = attempts.exam_id").
		Where("bookings.teacher_id = ?", teacherID).
		Where("attempts.status = ?", models.AttemptStatusSubmitted).
		Where("attempt_sections.type IN ?", []models.SectionType{models.SectionWriting, models.SectionSpeaking}).
		Where("attempt_sections.band_score IS NULL").
		Order("attempts.submitted_at ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (a AttemptPostgreSQL) CreateWritingSubmission(ctx context.Context, sub *models.WritingSubmission) error {
	return a.db.WithContext(ctx).Create(sub).Error
}

func (a AttemptPostgreSQL) GetWritingSubmission(ctx context.Context, attemptSectionID uint) (*models.WritingSubmission, error) {
	var sub models.WritingSubmission
	if err := a.db.WithContext(ctx).
		Where("attempt_section_id = ?", attemptSectionID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (a AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

func (a AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "created_at", "submitted_at", "started_at":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
