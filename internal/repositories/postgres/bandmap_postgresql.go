package postgres

import (
	"context"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type BandMapPostgreSQL struct {
	db *gorm.DB
}

func NewBandMapPostgreSQL(db *gorm.DB) repositories.BandMapRepository {
	return &BandMapPostgreSQL{db: db}
}

func (b BandMapPostgreSQL) GetEntries(ctx context.Context, examType models.ExamType, sectionType models.SectionType) ([]models.BandMapEntry, error) {
	var entries []models.BandMapEntry
	if err := b.db.WithContext(ctx).
		Where("exam_type = ? AND section_type = ?", examType, sectionType).
		Order("min_raw ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (b BandMapPostgreSQL) List(ctx context.Context, filters repositories.BandMapFilters) ([]*models.BandMapEntry, int64, error) {
	var entries []*models.BandMapEntry
	var total int64

	query := b.db.WithContext(ctx).Model(&models.BandMapEntry{})
	if filters.ExamType != nil {
		query = query.Where("exam_type = ?", *filters.ExamType)
	}
	if filters.SectionType != nil {
		query = query.Where("section_type = ?", *filters.SectionType)
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

	if err := query.Order("exam_type, section_type, min_raw ASC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (b BandMapPostgreSQL) CreateBatch(ctx context.Context, entries []*models.BandMapEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Create(entries).Error
}

func (b BandMapPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := b.db.WithContext(ctx).Model(&models.BandMapEntry{}).Count(&count).Error
	return count, err
}
