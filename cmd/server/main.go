package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/gateway"
	"github.com/stemsi/elearning-backend/internal/handler"
	"github.com/stemsi/elearning-backend/internal/logger"
	"github.com/stemsi/elearning-backend/internal/mail"
	"github.com/stemsi/elearning-backend/internal/repository"
	"github.com/stemsi/elearning-backend/internal/router"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
	"github.com/stemsi/elearning-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.AppName, cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting " + cfg.AppName + " backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	moduleRepo := repository.NewModuleRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// ─── Initialize Gateways ──────────────────────────────────────────
	paypalClient := gateway.NewPayPalClient(cfg.PayPalVerifyURL, cfg.GatewayTimeout)
	chapaClient := gateway.NewChapaClient(cfg.ChapaBaseURL, cfg.ChapaSecretKey, cfg.GatewayTimeout)
	mailSender := mail.NewSender(cfg.SendGridAPIKey, cfg.AppName, cfg.MailFrom, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	catalogService := service.NewCatalogService(categoryRepo, courseRepo, moduleRepo, enrollmentRepo, rdb, cfg.CourseCacheTTL, log)
	enrollmentService := service.NewEnrollmentService(courseRepo, moduleRepo, enrollmentRepo, ratingRepo)
	contactService := service.NewContactService(ratingRepo)
	assessmentService := service.NewAssessmentService(assessmentRepo, questionRepo, enrollmentRepo)
	attemptService := service.NewAttemptService(assessmentRepo, questionRepo, enrollmentRepo, attemptRepo, cfg.EnforceMaxAttempts, log)
	paymentNotifier := service.NewRedisPaymentNotifier(rdb, log)
	paymentService := service.NewPaymentService(
		cfg,
		courseRepo,
		enrollmentRepo,
		paymentRepo,
		userRepo,
		paypalClient,
		chapaClient,
		paymentNotifier,
		log,
	)
	mediaService := service.NewMediaService(cfg)

	if !cfg.EnforceMaxAttempts {
		log.Warn().Msg("ENFORCE_MAX_ATTEMPTS is off: assessments accept attempts beyond max_attempts")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService),
		Catalog:    handler.NewCatalogHandler(catalogService, mediaService),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService),
		Contact:    handler.NewContactHandler(contactService),
		Assessment: handler.NewAssessmentHandler(assessmentService),
		Attempt:    handler.NewAttemptHandler(attemptService),
		Payment:    handler.NewPaymentHandler(paymentService),
		WS:         handler.NewWSHandler(paymentNotifier, paymentService, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	mailWorker := worker.NewEnrollmentMailWorker(rdb, userRepo, courseRepo, mailSender, cfg.AppName, log)
	go mailWorker.Start(workerCtx)

	staleReporter := worker.NewStalePaymentReporter(paymentService, cfg.StalePaymentCron, cfg.StalePaymentAfter, log)
	if err := staleReporter.Start(); err != nil {
		log.Error().Err(err).Str("schedule", cfg.StalePaymentCron).Msg("Stale payment reporter disabled")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, log, workerCtx.Done())

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the cron reporter and background workers.
	staleReporter.Stop()
	workerCancel()
	time.Sleep(2 * time.Second) // Let an in-flight mail finish.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
