package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
)

// Bootstrap runs the idempotent startup reconciliation: default IELTS band
// tables when the store is empty, and the service operator account.
func Bootstrap(ctx context.Context, repo repositories.Repository, logger *slog.Logger) error {
	if err := ensureDefaultBandMaps(ctx, repo, logger); err != nil {
		return err
	}
	return ensureServiceOperator(ctx, repo, logger)
}

func ensureDefaultBandMaps(ctx context.Context, repo repositories.Repository, logger *slog.Logger) error {
	count, err := repo.BandMap().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count band map entries: %w", err)
	}
	if count > 0 {
		return nil
	}

	var entries []*models.BandMapEntry
	entries = append(entries, bandTable(models.ExamTypeIELTS, models.SectionListening, ieltsListeningBands)...)
	entries = append(entries, bandTable(models.ExamTypeIELTS, models.SectionReading, ieltsReadingBands)...)

	if err := repo.BandMap().CreateBatch(ctx, entries); err != nil {
		return fmt.Errorf("failed to seed band maps: %w", err)
	}
	logger.Info("Seeded default IELTS band maps", "entries", len(entries))
	return nil
}

func ensureServiceOperator(ctx context.Context, repo repositories.Repository, logger *slog.Logger) error {
	operator := &models.User{
		ID:       "system-operator",
		FullName: "System Operator",
		Email:    "operator@examport.local",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := repo.User().Upsert(ctx, operator); err != nil {
		return fmt.Errorf("failed to ensure operator account: %w", err)
	}
	logger.Info("Operator account ensured", "user_id", operator.ID)
	return nil
}

type bandRange struct {
	min, max int
	band     float64
}

// Published IELTS raw-to-band conversion for 40-question sections.
var ieltsListeningBands = []bandRange{
	{39, 40, 9.0},
	{37, 38, 8.5},
	{35, 36, 8.0},
	{32, 34, 7.5},
	{30, 31, 7.0},
	{26, 29, 6.5},
	{23, 25, 6.0},
	{18, 22, 5.5},
	{16, 17, 5.0},
	{13, 15, 4.5},
	{10, 12, 4.0},
	{7, 9, 3.5},
	{5, 6, 3.0},
	{3, 4, 2.5},
	{1, 2, 2.0},
	{0, 0, 1.0},
}

var ieltsReadingBands = []bandRange{
	{39, 40, 9.0},
	{37, 38, 8.5},
	{35, 36, 8.0},
	{33, 34, 7.5},
	{30, 32, 7.0},
	{27, 29, 6.5},
	{23, 26, 6.0},
	{19, 22, 5.5},
	{15, 18, 5.0},
	{13, 14, 4.5},
	{10, 12, 4.0},
	{8, 9, 3.5},
	{6, 7, 3.0},
	{4, 5, 2.5},
	{3, 3, 2.0},
	{1, 2, 1.5},
	{0, 0, 1.0},
}

func bandTable(examType models.ExamType, sectionType models.SectionType, ranges []bandRange) []*models.BandMapEntry {
	entries := make([]*models.BandMapEntry, 0, len(ranges))
	for _, r := range ranges {
		entries = append(entries, &models.BandMapEntry{
			ExamType:    examType,
			SectionType: sectionType,
			MinRaw:      r.min,
			MaxRaw:      r.max,
			Band:        r.band,
		})
	}
	return entries
}
