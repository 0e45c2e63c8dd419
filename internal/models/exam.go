package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamType string

const (
	ExamTypeIELTS   ExamType = "ielts"
	ExamTypeTOEFL   ExamType = "toefl"
	ExamTypeGeneral ExamType = "general"
)

type SectionType string

const (
	SectionReading    SectionType = "reading"
	SectionListening  SectionType = "listening"
	SectionWriting    SectionType = "writing"
	SectionSpeaking   SectionType = "speaking"
	SectionGrammar    SectionType = "grammar"
	SectionVocabulary SectionType = "vocabulary"
)

// AutoGradable reports whether sections of this type are scored by the
// engine. Writing and speaking answers require teacher judgment.
func (s SectionType) AutoGradable() bool {
	return s != SectionWriting && s != SectionSpeaking
}

func (s SectionType) Valid() bool {
	switch s {
	case SectionReading, SectionListening, SectionWriting,
		SectionSpeaking, SectionGrammar, SectionVocabulary:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionShortText    QuestionType = "short_text"
	QuestionGapFill      QuestionType = "gap_fill"
	QuestionFreeResponse QuestionType = "free_response"
)

// AutoGradable reports whether the question carries an answer key the
// scoring engine can evaluate.
func (q QuestionType) AutoGradable() bool {
	return q != QuestionFreeResponse
}

// Exam is the immutable definition of one exam: ordered sections, each with
// ordered questions. Authored once by content staff, never mutated while an
// attempt references it.
type Exam struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	Title    string   `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	ExamType ExamType `json:"exam_type" gorm:"not null;size:20;index" validate:"required,oneof=ielts toefl general"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sections []ExamSection `json:"sections" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExamSection is one skill block of an exam definition.
type ExamSection struct {
	ID       uint        `json:"id" gorm:"primaryKey"`
	ExamID   uint        `json:"exam_id" gorm:"not null;index"`
	Type     SectionType `json:"type" gorm:"not null;size:20" validate:"required,section_type"`
	Order    int         `json:"order" gorm:"not null"`
	Duration int         `json:"duration" gorm:"not null" validate:"required,min=1,max=300"` // minutes

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:SectionID"`
}

func (ExamSection) TableName() string {
	return "exam_sections"
}

// Question belongs to one exam section. Prompt and AnswerKey are typed JSON
// payloads keyed by Type; objective questions always carry an answer key,
// free-response questions never do.
type Question struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	SectionID uint         `json:"section_id" gorm:"not null;index"`
	Type      QuestionType `json:"type" gorm:"not null;size:30" validate:"required,question_type"`
	Order     int          `json:"order" gorm:"not null"`
	MaxScore  int          `json:"max_score" gorm:"default:1" validate:"min=1,max=100"`

	Prompt    datatypes.JSON `json:"prompt" gorm:"type:jsonb;not null"`
	AnswerKey datatypes.JSON `json:"answer_key,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}
