package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/handler"
	"github.com/stemsi/elearning-backend/internal/middleware"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Catalog    *handler.CatalogHandler
	Enrollment *handler.EnrollmentHandler
	Contact    *handler.ContactHandler
	Assessment *handler.AssessmentHandler
	Attempt    *handler.AttemptHandler
	Payment    *handler.PaymentHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Rate limiter cleanup runs until done is closed.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
	done <-chan struct{},
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	// Uploaded thumbnails and resources have UUID names and never change.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", handlers.System.Health)

	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	callbackLimiter := middleware.NewRateLimiter(120, time.Minute)
	go authLimiter.Run(done)
	go callbackLimiter.Run(done)

	requireJWT := middleware.RequireJWT(authService)
	staff := middleware.RequireStaff()

	// ─── Gateway callbacks (no auth) ───────────────────────────────────
	// PayPal and Chapa are configured with these root URLs.
	callbacks := router.Group("/", middleware.NoStore(), callbackLimiter.Middleware())
	{
		callbacks.POST("/paypal-ipn/", handlers.Payment.PayPalIPN)
		callbacks.GET("/chapa-ipn/", handlers.Payment.ChapaCallback)
		callbacks.POST("/chapa-ipn/", handlers.Payment.ChapaCallback)
		callbacks.GET("/payment-complete/", handlers.Payment.PaymentComplete)
		callbacks.GET("/payment-cancelled/", handlers.Payment.PaymentCancelled)
	}

	api := router.Group("/api/v1")

	// ─── 1. Identity ───────────────────────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/users/", authLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/jwt/create/", authLimiter.Middleware(), handlers.Auth.CreateToken)
		auth.POST("/jwt/verify/", handlers.Auth.VerifyToken)
		auth.POST("/logout/", requireJWT, handlers.Auth.Logout)
		auth.GET("/users/me/", requireJWT, handlers.Auth.Me)
	}
	api.POST("/reset_password/", authLimiter.Middleware(), requireJWT, handlers.Auth.ResetPassword)

	// ─── 2. Catalog ────────────────────────────────────────────────────
	optionalJWT := middleware.OptionalJWT(authService)
	catalog := api.Group("")
	{
		catalog.GET("/categories/", handlers.Catalog.ListCategories)
		catalog.GET("/categories/:id/", handlers.Catalog.GetCategory)
		catalog.GET("/courses/", handlers.Catalog.ListCourses)
		catalog.GET("/courses/:id/", optionalJWT, handlers.Catalog.GetCourse)
		catalog.GET("/courses/:id/modules/", handlers.Catalog.ListModules)
		catalog.GET("/modules/:id/", handlers.Catalog.GetModule)
		catalog.GET("/modules/:id/lessons/", handlers.Catalog.ListLessons)
		catalog.GET("/lessons/:id/", handlers.Catalog.GetLesson)
	}

	manage := api.Group("", requireJWT, staff)
	{
		manage.POST("/categories/", handlers.Catalog.CreateCategory)
		manage.PUT("/categories/:id/", handlers.Catalog.UpdateCategory)
		manage.DELETE("/categories/:id/", handlers.Catalog.DeleteCategory)

		manage.POST("/courses/", handlers.Catalog.CreateCourse)
		manage.PUT("/courses/:id/", handlers.Catalog.UpdateCourse)
		manage.DELETE("/courses/:id/", handlers.Catalog.DeleteCourse)
		manage.POST("/courses/:id/thumbnail/", handlers.Catalog.UploadThumbnail)

		manage.POST("/courses/:id/modules/", handlers.Catalog.CreateModule)
		manage.PUT("/modules/:id/", handlers.Catalog.UpdateModule)
		manage.DELETE("/modules/:id/", handlers.Catalog.DeleteModule)

		manage.POST("/modules/:id/lessons/", handlers.Catalog.CreateLesson)
		manage.PUT("/lessons/:id/", handlers.Catalog.UpdateLesson)
		manage.DELETE("/lessons/:id/", handlers.Catalog.DeleteLesson)
		manage.POST("/lessons/:id/resources/", handlers.Catalog.UploadResources)

		manage.POST("/assessments/", handlers.Assessment.Create)
		manage.PUT("/assessments/:id/", handlers.Assessment.Update)
		manage.DELETE("/assessments/:id/", handlers.Assessment.Delete)
		manage.GET("/assessments/:id/questions/", handlers.Assessment.ListQuestions)
		manage.POST("/assessments/:id/questions/", handlers.Assessment.AddQuestion)
		manage.PUT("/questions/:id/", handlers.Assessment.UpdateQuestion)
		manage.DELETE("/questions/:id/", handlers.Assessment.DeleteQuestion)
		manage.GET("/questions/:id/choices/", handlers.Assessment.ListChoices)
		manage.POST("/questions/:id/choices/", handlers.Assessment.AddChoice)
		manage.PUT("/choices/:id/", handlers.Assessment.UpdateChoice)
		manage.DELETE("/choices/:id/", handlers.Assessment.DeleteChoice)

		manage.GET("/contacts/", handlers.Contact.List)
		manage.GET("/payments/events/", middleware.NoStore(), handlers.Payment.ListEvents)
		manage.GET("/system/metrics/", handlers.System.SystemMetricsSSE)
	}

	// ─── 3. Learner (JWT) ──────────────────────────────────────────────
	learner := api.Group("", requireJWT)
	{
		learner.POST("/courses/:id/enroll/", handlers.Enrollment.Enroll)
		learner.GET("/enrollments/", handlers.Enrollment.ListEnrollments)
		learner.POST("/courses/:id/toggle_lesson_progress/", handlers.Enrollment.ToggleLessonProgress)
		learner.GET("/courses/:id/progress/", handlers.Enrollment.CourseProgress)
		learner.GET("/progress/", handlers.Enrollment.ListProgress)
		learner.POST("/progress/", handlers.Enrollment.UpsertProgress)
		learner.PUT("/progress/:id/toggle_complete/", handlers.Enrollment.ToggleComplete)
		learner.GET("/courses/:id/has_rated/", handlers.Enrollment.HasRated)
		learner.POST("/courses/:id/rate/", handlers.Enrollment.Rate)

		learner.GET("/assessments/", handlers.Assessment.List)
		learner.GET("/assessments/:id/", handlers.Assessment.Get)
		learner.POST("/user-attempts/", handlers.Attempt.Submit)
		learner.GET("/user-attempts/", handlers.Attempt.List)
		learner.GET("/user-attempts/:id/", handlers.Attempt.Get)
	}

	api.POST("/contacts/", authLimiter.Middleware(), handlers.Contact.Create)

	// ─── 4. Payments ───────────────────────────────────────────────────
	payments := api.Group("/payments", middleware.NoStore())
	{
		payments.POST("/create-paypal-payment/", requireJWT, handlers.Payment.CreatePayPalPayment)
		payments.POST("/create-chapa-payment/", requireJWT, handlers.Payment.CreateChapaPayment)
		payments.POST("/verify-chapa/", requireJWT, handlers.Payment.VerifyChapa)
		payments.GET("/:id/", requireJWT, handlers.Payment.Get)

		payments.POST("/paypal-ipn/", callbackLimiter.Middleware(), handlers.Payment.PayPalIPN)
		payments.GET("/chapa-ipn/", callbackLimiter.Middleware(), handlers.Payment.ChapaCallback)
		payments.POST("/chapa-ipn/", callbackLimiter.Middleware(), handlers.Payment.ChapaCallback)
	}

	// ─── 5. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/payments/:id/status", handlers.WS.PaymentStatusStream)
	}

	return router
}
