package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/mail"
	"github.com/stemsi/elearning-backend/internal/model"
)

// UserLookup resolves the recipient of a mail job.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.UserAccount, error)
}

// CourseLookup resolves the course named in a mail job.
type CourseLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

// maxMailRetries bounds how often a failed job is pushed back to the queue.
const maxMailRetries = 5

// EnrollmentMailWorker consumes enrollment_mail_queue and sends the
// enrollment confirmation for every confirmed payment.
type EnrollmentMailWorker struct {
	rdb     *redis.Client
	users   UserLookup
	courses CourseLookup
	sender  mail.Sender
	appName string
	log     zerolog.Logger
}

// NewEnrollmentMailWorker creates a new EnrollmentMailWorker.
func NewEnrollmentMailWorker(
	rdb *redis.Client,
	users UserLookup,
	courses CourseLookup,
	sender mail.Sender,
	appName string,
	log zerolog.Logger,
) *EnrollmentMailWorker {
	return &EnrollmentMailWorker{
		rdb:     rdb,
		users:   users,
		courses: courses,
		sender:  sender,
		appName: appName,
		log:     log.With().Str("component", "enrollment_mail_worker").Logger(),
	}
}

// mailEnvelope carries the retry count alongside the job.
type mailEnvelope struct {
	model.EnrollmentMailJob
	Retries int `json:"retries,omitempty"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *EnrollmentMailWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *EnrollmentMailWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.EnrollmentMailQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var env mailEnvelope
	if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	err = w.Handle(ctx, env.EnrollmentMailJob)
	if err == nil || errors.Is(err, errPermanent) {
		if err != nil {
			w.log.Warn().Err(err).Int64("payment_id", env.PaymentID).Msg("Dropping enrollment mail")
		}
		return
	}

	env.Retries++
	if env.Retries > maxMailRetries {
		w.log.Error().Err(err).Int64("payment_id", env.PaymentID).Msg("Enrollment mail failed, giving up")
		return
	}
	w.log.Error().Err(err).
		Int64("payment_id", env.PaymentID).
		Int("retries", env.Retries).
		Msg("Send error, retrying in 5s")

	data, _ := json.Marshal(env)
	w.rdb.RPush(ctx, config.WorkerKey.EnrollmentMailQueue, data)
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

// errPermanent marks jobs that can never succeed, e.g. a deleted user.
var errPermanent = errors.New("permanent mail failure")

// Handle resolves the job's user and course and sends the confirmation.
func (w *EnrollmentMailWorker) Handle(ctx context.Context, job model.EnrollmentMailJob) error {
	user, err := w.users.GetByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("user %d: %w", job.UserID, errPermanent)
		}
		return fmt.Errorf("get user: %w", err)
	}
	course, err := w.courses.GetByID(ctx, job.CourseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("course %d: %w", job.CourseID, errPermanent)
		}
		return fmt.Errorf("get course: %w", err)
	}

	if err := w.sender.Send(ctx, enrollmentMessage(w.appName, user, course)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	w.log.Info().
		Int64("payment_id", job.PaymentID).
		Int64("user_id", user.ID).
		Int64("course_id", course.ID).
		Msg("Enrollment mail sent")
	return nil
}

func enrollmentMessage(appName string, u *model.UserAccount, c *model.Course) mail.Message {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	subject := fmt.Sprintf("You're enrolled in %s", c.Title)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour payment was received and you are now enrolled in %q.\n\nHappy learning!\n%s",
		name, c.Title, appName,
	)
	return mail.Message{
		ToName:  name,
		ToEmail: u.Email,
		Subject: subject,
		Text:    text,
	}
}
