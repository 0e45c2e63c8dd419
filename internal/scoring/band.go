package scoring

import (
	"math"

	"github.com/examport/attempt-service/internal/models"
)

// LookupBand resolves a raw score against the band map entries for one
// (exam type, section type) pair. Returns nil when no entry covers the raw
// score; a gap in the table is tolerated, not an error.
func LookupBand(entries []models.BandMapEntry, raw int) *float64 {
	for i := range entries {
		if entries[i].Contains(raw) {
			band := entries[i].Band
			return &band
		}
	}
	return nil
}

// CalculateOverallBand averages the per-section bands and rounds to the
// nearest half band with IELTS rounding: averages ending in .25 round up to
// .5 and averages ending in .75 round up to the next whole band.
func CalculateOverallBand(sectionBands []float64) float64 {
	if len(sectionBands) == 0 {
		return 0
	}
	var sum float64
	for _, b := range sectionBands {
		sum += b
	}
	avg := sum / float64(len(sectionBands))
	return math.Floor(avg*2+0.5) / 2
}

// IsValidBand reports whether b is a permitted band value: a multiple of 0.5
// in [0, 9].
func IsValidBand(b float64) bool {
	if b < 0 || b > 9 {
		return false
	}
	doubled := b * 2
	return doubled == math.Trunc(doubled)
}
