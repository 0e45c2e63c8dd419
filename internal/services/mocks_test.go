package services

import (
	"context"
	"time"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
	exams    *MockExamRepository
	bookings *MockBookingRepository
	attempts *MockAttemptRepository
	bandMaps *MockBandMapRepository
	users    *MockUserRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		exams:    &MockExamRepository{},
		bookings: &MockBookingRepository{},
		attempts: &MockAttemptRepository{},
		bandMaps: &MockBandMapRepository{},
		users:    &MockUserRepository{},
	}
}

func (m *MockRepository) Exam() repositories.ExamRepository       { return m.exams }
func (m *MockRepository) Booking() repositories.BookingRepository { return m.bookings }
func (m *MockRepository) Attempt() repositories.AttemptRepository { return m.attempts }
func (m *MockRepository) BandMap() repositories.BandMapRepository { return m.bandMaps }
func (m *MockRepository) User() repositories.UserRepository       { return m.users }

// Transaction runs fn against the same mocks; rollback semantics are not
// simulated.
func (m *MockRepository) Transaction(fn func(repositories.Repository) error) error {
	return fn(m)
}

type MockExamRepository struct {
	mock.Mock
}

func (m *MockExamRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exam), args.Error(1)
}

func (m *MockExamRepository) GetSectionQuestions(ctx context.Context, examID uint, sectionType models.SectionType) ([]models.Question, error) {
	args := m.Called(ctx, examID, sectionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	args := m.Called(ctx, exam)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByTeacher(ctx context.Context, teacherID string, filters repositories.BookingFilters) ([]*models.Booking, int64, error) {
	args := m.Called(ctx, teacherID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	args := m.Called(ctx, attempt)
	if args.Error(0) == nil && attempt.ID == 0 {
		attempt.ID = 1
	}
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByBooking(ctx context.Context, bookingID uint) (*models.Attempt, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Attempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetSection(ctx context.Context, attemptID uint, sectionType models.SectionType) (*models.AttemptSection, error) {
	args := m.Called(ctx, attemptID, sectionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptSection), args.Error(1)
}

func (m *MockAttemptRepository) GetSectionByID(ctx context.Context, id uint) (*models.AttemptSection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptSection), args.Error(1)
}

func (m *MockAttemptRepository) GetSections(ctx context.Context, attemptID uint) ([]*models.AttemptSection, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttemptSection), args.Error(1)
}

func (m *MockAttemptRepository) UpdateSection(ctx context.Context, section *models.AttemptSection) error {
	args := m.Called(ctx, section)
	return args.Error(0)
}

func (m *MockAttemptRepository) MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, submittedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) GetPendingGrading(ctx context.Context, teacherID string) ([]*repositories.GradingQueueItem, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.GradingQueueItem), args.Error(1)
}

func (m *MockAttemptRepository) CreateWritingSubmission(ctx context.Context, sub *models.WritingSubmission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetWritingSubmission(ctx context.Context, attemptSectionID uint) (*models.WritingSubmission, error) {
	args := m.Called(ctx, attemptSectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WritingSubmission), args.Error(1)
}

type MockBandMapRepository struct {
	mock.Mock
}

func (m *MockBandMapRepository) GetEntries(ctx context.Context, examType models.ExamType, sectionType models.SectionType) ([]models.BandMapEntry, error) {
	args := m.Called(ctx, examType, sectionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BandMapEntry), args.Error(1)
}

func (m *MockBandMapRepository) List(ctx context.Context, filters repositories.BandMapFilters) ([]*models.BandMapEntry, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.BandMapEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockBandMapRepository) CreateBatch(ctx context.Context, entries []*models.BandMapEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockBandMapRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}
