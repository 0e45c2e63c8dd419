package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
)

// Booking is a scheduled sitting of one exam by one student, supervised by
// one teacher. Exactly one attempt may be created from a booking.
type Booking struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index"`
	TeacherID string        `json:"teacher_id" gorm:"not null;size:255;index"`
	ExamID    uint          `json:"exam_id" gorm:"not null;index"`
	Status    BookingStatus `json:"status" gorm:"default:pending;index" validate:"omitempty,oneof=pending confirmed in_progress completed"`

	// Section types assigned to this sitting, a JSON array of SectionType.
	AssignedSections datatypes.JSON `json:"assigned_sections" gorm:"type:jsonb;not null"`

	ScheduledAt time.Time      `json:"scheduled_at" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Exam    Exam     `json:"exam" gorm:"foreignKey:ExamID"`
	Attempt *Attempt `json:"attempt,omitempty" gorm:"foreignKey:BookingID"`
}

func (Booking) TableName() string {
	return "bookings"
}
