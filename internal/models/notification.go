package models

type NotificationType string
type NotificationPriority int

const (
	// Notification types
	NotificationAttemptCreated   NotificationType = "attempt_created"
	NotificationAttemptSubmitted NotificationType = "attempt_submitted"
	NotificationGradingRequired  NotificationType = "grading_required"
	NotificationSectionGraded    NotificationType = "section_graded"
	NotificationResultAvailable  NotificationType = "result_available"

	// Priority levels
	PriorityLow      NotificationPriority = 1
	PriorityNormal   NotificationPriority = 2
	PriorityHigh     NotificationPriority = 3
	PriorityCritical NotificationPriority = 4
)
