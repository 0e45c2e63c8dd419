package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

type AttemptSectionStatus string

const (
	SectionStatusNotStarted AttemptSectionStatus = "not_started"
	SectionStatusInProgress AttemptSectionStatus = "in_progress"
	SectionStatusCompleted  AttemptSectionStatus = "completed"
	SectionStatusSubmitted  AttemptSectionStatus = "submitted"
)

// Attempt is one student's live or finished sitting of one exam. Its section
// set mirrors the booking's assigned section types, created together with the
// attempt and never changed afterward.
type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	BookingID uint          `json:"booking_id" gorm:"not null;uniqueIndex"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index"`
	ExamID    uint          `json:"exam_id" gorm:"not null;index"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Null until every section has a band.
	BandOverall *float64 `json:"band_overall"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Booking  Booking          `json:"booking" gorm:"foreignKey:BookingID"`
	Exam     Exam             `json:"exam" gorm:"foreignKey:ExamID"`
	Sections []AttemptSection `json:"sections" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptSection is one section instance within an attempt. Answers is an
// opaque map from question ID to the student's submitted payload; once the
// section is completed or submitted the map is frozen.
type AttemptSection struct {
	ID        uint                 `json:"id" gorm:"primaryKey"`
	AttemptID uint                 `json:"attempt_id" gorm:"not null;index"`
	Type      SectionType          `json:"type" gorm:"not null;size:20" validate:"required,section_type"`
	Status    AttemptSectionStatus `json:"status" gorm:"default:not_started;index"`

	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	// Populated by the scoring engine for auto-gradable types.
	RawScore *int `json:"raw_score"`
	MaxScore *int `json:"max_score"`

	// Band is either derived from the band map or set by a teacher.
	BandScore *float64       `json:"band_score"`
	Rubric    datatypes.JSON `json:"rubric,omitempty" gorm:"type:jsonb"`
	Feedback  *string        `json:"feedback" gorm:"type:text"`
	GradedBy  *string        `json:"graded_by" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttemptSection) TableName() string {
	return "attempt_sections"
}

// Locked reports whether the section no longer accepts answer writes.
func (s *AttemptSection) Locked() bool {
	return s.Status == SectionStatusCompleted || s.Status == SectionStatusSubmitted
}

// WritingSubmission is the denormalized record of a writing section's
// two-task response, created exactly once per section at submit time.
type WritingSubmission struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	AttemptSectionID uint   `json:"attempt_section_id" gorm:"not null;uniqueIndex"`
	Task1Text        string `json:"task1_text" gorm:"type:text"`
	Task2Text        string `json:"task2_text" gorm:"type:text"`
	Task1WordCount   int    `json:"task1_word_count"`
	Task2WordCount   int    `json:"task2_word_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WritingSubmission) TableName() string {
	return "writing_submissions"
}
