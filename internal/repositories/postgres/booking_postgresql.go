package postgres

import (
	"context"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type BookingPostgreSQL struct {
	db *gorm.DB
}

func NewBookingPostgreSQL(db *gorm.DB) repositories.BookingRepository {
	return &BookingPostgreSQL{db: db}
}

func (b BookingPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := b.db.WithContext(ctx).Preload("Exam").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (b BookingPostgreSQL) GetByTeacher(ctx context.Context, teacherID string, filters repositories.BookingFilters) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := b.db.WithContext(ctx).Model(&models.Booking{}).Where("teacher_id = ?", teacherID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("Exam").Order("scheduled_at ASC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (b BookingPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) error {
	return b.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}
