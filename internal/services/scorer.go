package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/scoring"
)

// attemptScorer applies the objective scoring engine and the band map to a
// submitted attempt's sections. Shared by submission and re-scoring.
type attemptScorer struct {
	repo   repositories.Repository
	exams  ExamSource
	bands  repositories.BandMapRepository
	logger *slog.Logger
}

func newAttemptScorer(repo repositories.Repository, exams ExamSource, bands repositories.BandMapRepository, logger *slog.Logger) *attemptScorer {
	return &attemptScorer{
		repo:   repo,
		exams:  exams,
		bands:  bands,
		logger: logger,
	}
}

// scoreSections scores every auto-gradable section of the attempt and
// persists raw and band scores. Each section is scored independently; a
// failure in one is logged and counted but never blocks the others.
func (sc *attemptScorer) scoreSections(ctx context.Context, attempt *models.Attempt) int {
	exam, err := sc.exams.GetByIDWithDetails(ctx, attempt.ExamID)
	if err != nil {
		sc.logger.Error("Scoring aborted, exam definition unavailable",
			"attempt_id", attempt.ID,
			"exam_id", attempt.ExamID,
			"error", err)
		return countAutoGradable(attempt)
	}

	failures := 0
	for i := range attempt.Sections {
		section := &attempt.Sections[i]
		if !section.Type.AutoGradable() {
			continue
		}
		if err := sc.scoreSection(ctx, exam, section); err != nil {
			failures++
			sc.logger.Error("Section scoring failed",
				"attempt_id", attempt.ID,
				"section", section.Type,
				"error", err)
		}
	}
	return failures
}

func (sc *attemptScorer) scoreSection(ctx context.Context, exam *models.Exam, section *models.AttemptSection) error {
	questions, err := sc.exams.GetSectionQuestions(ctx, exam.ID, section.Type)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	answers, err := decodeStoredAnswers(section)
	if err != nil {
		return err
	}

	score, err := scoring.ScoreSection(questions, answers)
	if err != nil {
		return err
	}
	section.RawScore = &score.RawScore
	section.MaxScore = &score.MaxRawScore

	// A missing band table is tolerated: the raw score still lands and a
	// later import plus re-score fills the band in.
	entries, err := sc.bands.GetEntries(ctx, exam.ExamType, section.Type)
	if err != nil {
		return fmt.Errorf("failed to load band map: %w", err)
	}
	band := scoring.LookupBand(entries, score.RawScore)
	if band == nil {
		sc.logger.Warn("No band map entry for raw score",
			"exam_type", exam.ExamType,
			"section", section.Type,
			"raw_score", score.RawScore)
	}
	section.BandScore = band

	if err := sc.repo.Attempt().UpdateSection(ctx, section); err != nil {
		return fmt.Errorf("failed to persist section score: %w", err)
	}

	sc.logger.Info("Section scored",
		"section_id", section.ID,
		"section", section.Type,
		"raw_score", score.RawScore,
		"max_score", score.MaxRawScore,
		"band", band)
	return nil
}

// aggregateOverall derives and persists the overall band once every
// section carries a band score. Reports whether the attempt is fully
// graded and the overall band if so.
func (sc *attemptScorer) aggregateOverall(ctx context.Context, attempt *models.Attempt) (bool, *float64, error) {
	bands := make([]float64, 0, len(attempt.Sections))
	for _, section := range attempt.Sections {
		if section.BandScore == nil {
			return false, nil, nil
		}
		bands = append(bands, *section.BandScore)
	}
	if len(bands) == 0 {
		return false, nil, nil
	}

	overall := scoring.CalculateOverallBand(bands)
	if attempt.BandOverall == nil || *attempt.BandOverall != overall {
		attempt.BandOverall = &overall
		if err := sc.repo.Attempt().Update(ctx, attempt); err != nil {
			return false, nil, fmt.Errorf("failed to persist overall band: %w", err)
		}
		sc.logger.Info("Overall band calculated",
			"attempt_id", attempt.ID,
			"band_overall", overall)
	}
	return true, &overall, nil
}

func countAutoGradable(attempt *models.Attempt) int {
	n := 0
	for _, section := range attempt.Sections {
		if section.Type.AutoGradable() {
			n++
		}
	}
	return n
}
