package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/models"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Feedback  *handlers.FeedbackHandler
	Dashboard *handlers.DashboardHandler
	Profile   *handlers.ProfileHandler
	Account   *handlers.AccountHandler
	JWT       middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	student := middleware.RequireRole(models.RoleStudent)
	teacher := middleware.RequireRole(models.RoleTeacher)
	staff := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	participant := middleware.RequireRole(models.RoleStudent, models.RoleTeacher)

	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.JWT))

	s := auth.Group("/sessions")
	s.POST("", teacher, d.Interview.Schedule)
	s.GET("/:id", d.Interview.Get)
	s.POST("/:id/questions", participant, d.Interview.GenerateQuestions)
	s.POST("/:id/start", student, d.Interview.Start)
	s.POST("/:id/answers", student, d.Interview.SubmitAnswer)
	s.POST("/:id/answers/audio", student, d.Interview.SubmitSpokenAnswer)
	s.POST("/:id/security-events", student, d.Interview.ReportSecurityEvent)
	s.GET("/:id/validate", student, d.Interview.Validate)
	s.GET("/:id/time-remaining", student, d.Interview.TimeRemaining)
	s.POST("/:id/complete", student, d.Interview.Complete)
	s.POST("/:id/cancel", teacher, d.Interview.Cancel)
	s.DELETE("/:id", staff, d.Interview.Delete)
	s.GET("/:id/audit", staff, d.Interview.AuditTrail)
	s.PUT("/:id/feedback", teacher, d.Feedback.Save)
	s.DELETE("/:id/feedback", teacher, d.Feedback.Delete)

	auth.GET("/students/:id/progress", d.Dashboard.StudentProgress)
	auth.GET("/students/:id/achievements", d.Dashboard.Achievements)
	auth.GET("/teachers/:id/stats", staff, d.Dashboard.TeacherStats)
	auth.POST("/teachers/:id/students", staff, d.Account.AssignStudent)
	auth.GET("/leaderboard", staff, d.Dashboard.Leaderboard)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/me", d.Profile.Update)

	admin := auth.Group("/accounts", middleware.RequireAdmin())
	admin.POST("", d.Account.Register)
	admin.DELETE("/:id", d.Account.Delete)
}
