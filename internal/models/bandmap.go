package models

import "time"

// BandMapEntry maps a raw-score range for one (exam type, section type) pair
// to a fractional band. Entries are expected to partition the raw range;
// a raw score outside every entry yields no band rather than an error.
type BandMapEntry struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	ExamType    ExamType    `json:"exam_type" gorm:"not null;size:20;index:idx_band_map_lookup" validate:"required,oneof=ielts toefl general"`
	SectionType SectionType `json:"section_type" gorm:"not null;size:20;index:idx_band_map_lookup" validate:"required,section_type"`
	MinRaw      int         `json:"min_raw" gorm:"not null" validate:"min=0"`
	MaxRaw      int         `json:"max_raw" gorm:"not null" validate:"gtefield=MinRaw"`
	Band        float64     `json:"band" gorm:"not null" validate:"band_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BandMapEntry) TableName() string {
	return "band_map_entries"
}

// Contains reports whether raw falls inside the entry's range.
func (e *BandMapEntry) Contains(raw int) bool {
	return raw >= e.MinRaw && raw <= e.MaxRaw
}
