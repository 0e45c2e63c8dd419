package handlers

import (
	"github.com/examport/attempt-service/internal/services"
	"github.com/examport/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	gradingHandler *GradingHandler
	adminHandler   *AdminHandler
}

func NewHandlerManager(serviceManager *services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempts, logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading, logger),
		adminHandler:   NewAdminHandler(serviceManager.ImportExport, logger),
	}
}

// SetupRoutes sets up all API routes. authMiddleware must have populated
// user_id and user_role in the gin context for everything under /api/v1.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "attempt-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.CreateAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/review", hm.attemptHandler.GetAttemptReview)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/writing", hm.attemptHandler.SubmitWriting)

			attempts.POST("/:id/sections/:type/start", hm.attemptHandler.StartSection)
			attempts.PUT("/:id/sections/:type/answers", hm.attemptHandler.SaveSectionAnswers)
			attempts.POST("/:id/sections/:type/end", hm.attemptHandler.EndSection)
		}

		grading := v1.Group("/grading")
		{
			grading.GET("/queue", hm.gradingHandler.GetQueue)
			grading.GET("/bookings", hm.gradingHandler.ListBookings)
			grading.POST("/sections/:section_id", hm.gradingHandler.GradeSection)
			grading.POST("/attempts/:attempt_id/score", hm.gradingHandler.ScoreAttempt)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/band-maps", hm.adminHandler.ListBandMaps)
			admin.POST("/band-maps/import", hm.adminHandler.ImportBandMaps)
			admin.POST("/exams/import", hm.adminHandler.ImportExamBank)
			admin.GET("/exams/:exam_id/results/export", hm.adminHandler.ExportResults)
		}
	}
}
