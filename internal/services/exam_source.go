package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examport/attempt-service/internal/cache"
	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
)

// ExamSource is the read side of exam definitions the attempt engine
// consumes. Both the relational repository and the file catalog satisfy it.
type ExamSource interface {
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error)
	GetSectionQuestions(ctx context.Context, examID uint, sectionType models.SectionType) ([]models.Question, error)
}

const examCacheTTL = 10 * time.Minute

// cachedExamSource fronts an ExamSource with Redis. Exam definitions are
// immutable while attempts reference them, so staleness within the TTL is
// harmless.
type cachedExamSource struct {
	source ExamSource
	cache  cache.CacheService
	logger *slog.Logger
}

func NewCachedExamSource(source ExamSource, cacheService cache.CacheService, logger *slog.Logger) ExamSource {
	return &cachedExamSource{
		source: source,
		cache:  cacheService,
		logger: logger,
	}
}

func (c *cachedExamSource) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	key := fmt.Sprintf("exam:details:%d", id)

	var exam models.Exam
	err := c.cache.Get(ctx, key, &exam)
	if err == nil {
		return &exam, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("Exam cache read failed, falling through", "key", key, "error", err)
	}

	fresh, err := c.source.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, fresh, examCacheTTL); err != nil {
		c.logger.Warn("Exam cache write failed", "key", key, "error", err)
	}
	return fresh, nil
}

func (c *cachedExamSource) GetSectionQuestions(ctx context.Context, examID uint, sectionType models.SectionType) ([]models.Question, error) {
	key := fmt.Sprintf("exam:questions:%d:%s", examID, sectionType)

	var questions []models.Question
	err := c.cache.Get(ctx, key, &questions)
	if err == nil {
		return questions, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("Question cache read failed, falling through", "key", key, "error", err)
	}

	fresh, err := c.source.GetSectionQuestions(ctx, examID, sectionType)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, fresh, examCacheTTL); err != nil {
		c.logger.Warn("Question cache write failed", "key", key, "error", err)
	}
	return fresh, nil
}

var _ ExamSource = (repositories.ExamRepository)(nil)
