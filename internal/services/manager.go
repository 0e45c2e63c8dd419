package services

import (
	"log/slog"

	"github.com/examport/attempt-service/internal/cache"
	"github.com/examport/attempt-service/internal/events"
	"github.com/examport/attempt-service/internal/repositories"
	"github.com/examport/attempt-service/internal/validator"
)

// ServiceManager wires the service layer once at startup and hands the
// bundle to the HTTP layer.
type ServiceManager struct {
	Attempts      AttemptService
	Grading       GradingService
	ImportExport  ImportExportService
	Notifications NotificationEventService
}

func NewServiceManager(
	repo repositories.Repository,
	examSource ExamSource,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
) *ServiceManager {
	v := validator.New()
	exams := NewCachedExamSource(examSource, cacheService, logger)
	notifier := NewNotificationEventService(publisher, logger)

	return &ServiceManager{
		Attempts:      NewAttemptService(repo, exams, repo.BandMap(), logger, v, notifier),
		Grading:       NewGradingService(repo, exams, repo.BandMap(), logger, v, notifier),
		ImportExport:  NewImportExportService(repo, cacheService, logger, v),
		Notifications: notifier,
	}
}
