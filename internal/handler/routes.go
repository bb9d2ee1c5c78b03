package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/middleware"
	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Class      *ClassHandler
	Enrollment *EnrollmentHandler
	Live       *LiveHandler
	Video      *VideoHandler
	Exam       *ExamHandler
	Forum      *ForumHandler
	Analytics  *AnalyticsHandler
	Report     *ReportHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
	}

	classes := api.Group("/classes", middleware.JWT(authService))
	{
		classes.GET("", h.Class.List)
		classes.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Class.Create)
		classes.GET("/:id", h.Class.Get)
		classes.GET("/:id/roster", h.Enrollment.Roster)

		classes.GET("/:id/live", h.Live.State)
		classes.POST("/:id/live/start", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Live.Start)
		classes.POST("/:id/live/end", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Live.End)
		classes.PUT("/:id/live/mode", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Live.SetMode)
		classes.POST("/:id/live/hand", middleware.RequireRoles(models.RoleStudent), h.Live.RaiseHand)
		classes.DELETE("/:id/live/hand", middleware.RequireRoles(models.RoleStudent), h.Live.LowerHand)
		classes.POST("/:id/live/speakers/:studentId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Live.AdmitSpeaker)
		classes.DELETE("/:id/live/speakers/:studentId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Live.MuteSpeaker)

		classes.POST("/:id/videos", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Video.Upload)
		classes.GET("/:id/videos", h.Video.List)

		classes.POST("/:id/exams", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Exam.Create)
		classes.GET("/:id/exams", h.Exam.List)
		classes.POST("/:id/exam-images", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Exam.UploadImage)

		classes.POST("/:id/posts", h.Forum.CreatePost)
		classes.GET("/:id/posts", h.Forum.ListPosts)

		classes.GET("/:id/report", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Analytics.ClassReport)
		classes.POST("/:id/report/export", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), h.Report.Export)
	}

	// EventSource clients cannot set the Authorization header, so the
	// stream also accepts the token as a query parameter.
	api.GET("/classes/:id/live/events", middleware.JWTWithQueryFallback(authService), h.Live.Events)

	api.GET("/exams/:examId", middleware.JWT(authService), h.Exam.Get)

	enrollments := api.Group("/enrollments", middleware.JWT(authService))
	{
		enrollments.POST("/join", middleware.RequireRoles(models.RoleStudent), h.Enrollment.Join)
		enrollments.GET("", h.Enrollment.Mine)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/:jobId", middleware.JWT(authService), h.Report.Status)
		// token-authenticated so browsers can follow the link directly
		reports.GET("/:jobId/download", h.Report.Download)
	}

	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
}
