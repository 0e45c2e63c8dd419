package postgres

import (
	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db      *gorm.DB
	exam    repositories.ExamRepository
	booking repositories.BookingRepository
	attempt repositories.AttemptRepository
	bandMap repositories.BandMapRepository
	user    repositories.UserRepository
}

// NewRepository builds the postgres-backed repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:      db,
		exam:    NewExamPostgreSQL(db),
		booking: NewBookingPostgreSQL(db),
		attempt: NewAttemptPostgreSQL(db),
		bandMap: NewBandMapPostgreSQL(db),
		user:    NewUserPostgreSQL(db),
	}
}

func (r *repository) Exam() repositories.ExamRepository       { return r.exam }
func (r *repository) Booking() repositories.BookingRepository { return r.booking }
func (r *repository) Attempt() repositories.AttemptRepository { return r.attempt }
func (r *repository) BandMap() repositories.BandMapRepository { return r.bandMap }
func (r *repository) User() repositories.UserRepository       { return r.user }

func (r *repository) Transaction(fn func(repositories.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// AutoMigrate creates or updates the schema for every model the service
// owns. Called once at boot.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.ExamSection{},
		&models.Question{},
		&models.Booking{},
		&models.Attempt{},
		&models.AttemptSection{},
		&models.WritingSubmission{},
		&models.BandMapEntry{},
	)
}
