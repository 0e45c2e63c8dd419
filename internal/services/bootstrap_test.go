package services

import (
	"context"
	"testing"

	"github.com/examport/attempt-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBootstrap_SeedsBandMapsWhenEmpty(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()

	var seeded []*models.BandMapEntry
	repo.bandMaps.On("Count", ctx).Return(int64(0), nil)
	repo.bandMaps.On("CreateBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		seeded = args.Get(1).([]*models.BandMapEntry)
	}).Return(nil)
	repo.users.On("Upsert", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	err := Bootstrap(ctx, repo, testLogger())
	assert.NoError(t, err)
	assert.NotEmpty(t, seeded)

	// Both default tables cover every raw score from 0 to 40 exactly once.
	for _, st := range []models.SectionType{models.SectionListening, models.SectionReading} {
		for raw := 0; raw <= 40; raw++ {
			hits := 0
			for _, e := range seeded {
				if e.SectionType == st && e.Contains(raw) {
					hits++
				}
			}
			assert.Equalf(t, 1, hits, "section %s raw %d", st, raw)
		}
	}
}

func TestBootstrap_SkipsSeedingWhenPopulated(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()

	repo.bandMaps.On("Count", ctx).Return(int64(33), nil)
	repo.users.On("Upsert", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	err := Bootstrap(ctx, repo, testLogger())
	assert.NoError(t, err)
	repo.bandMaps.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}
