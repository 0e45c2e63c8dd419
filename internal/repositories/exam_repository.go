package repositories

import (
	"context"

	"github.com/examport/attempt-service/internal/models"
)

// ExamRepository is the exam-definition read side the attempt engine
// consumes. It may be backed by the relational store or by a file catalog;
// callers must not depend on which.
type ExamRepository interface {
	// GetByIDWithDetails returns the exam with sections and questions in
	// their authored order, answer keys included.
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error)
	// GetSectionQuestions returns the ordered question list for one section
	// type of an exam.
	GetSectionQuestions(ctx context.Context, examID uint, sectionType models.SectionType) ([]models.Question, error)

	// Authoring side, used by the import pipeline only.
	Create(ctx context.Context, exam *models.Exam) error
}

// BookingRepository reads scheduled sittings and tracks their attempt
// lifecycle status. Booking creation belongs to the scheduling service.
type BookingRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	GetByTeacher(ctx context.Context, teacherID string, filters BookingFilters) ([]*models.Booking, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) error
}

// BandMapRepository serves band-map entries for score-to-band translation.
type BandMapRepository interface {
	GetEntries(ctx context.Context, examType models.ExamType, sectionType models.SectionType) ([]models.BandMapEntry, error)
	List(ctx context.Context, filters BandMapFilters) ([]*models.BandMapEntry, int64, error)
	CreateBatch(ctx context.Context, entries []*models.BandMapEntry) error
	Count(ctx context.Context) (int64, error)
}

// UserRepository records principals this service needs to exist locally,
// such as the startup operator account. Identity otherwise lives in the
// token issuer.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
}
