package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/repository"
)

// StaleCounter counts unpaid payments older than a given age.
type StaleCounter interface {
	StaleUnpaid(ctx context.Context, age time.Duration) ([]repository.StaleCount, error)
}

// StalePaymentReporter periodically logs payments that were started but never
// confirmed. It only reports; payments are never expired.
type StalePaymentReporter struct {
	payments StaleCounter
	schedule string
	age      time.Duration
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewStalePaymentReporter creates a reporter running on the given cron schedule.
func NewStalePaymentReporter(payments StaleCounter, schedule string, age time.Duration, log zerolog.Logger) *StalePaymentReporter {
	return &StalePaymentReporter{
		payments: payments,
		schedule: schedule,
		age:      age,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		log:      log.With().Str("component", "stale_payment_reporter").Logger(),
	}
}

// Start registers the job and starts the scheduler.
func (r *StalePaymentReporter) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.Report(ctx)
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info().Str("schedule", r.schedule).Dur("age", r.age).Msg("Reporter started")
	return nil
}

// Stop waits for a running report to finish.
func (r *StalePaymentReporter) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info().Msg("Reporter stopped")
}

// Report logs one line per gateway with unpaid payments older than the age.
func (r *StalePaymentReporter) Report(ctx context.Context) int {
	counts, err := r.payments.StaleUnpaid(ctx, r.age)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to count stale payments")
		return 0
	}

	total := 0
	for _, c := range counts {
		total += c.Count
		r.log.Warn().
			Str("gateway", string(c.Gateway)).
			Int("count", c.Count).
			Time("oldest", c.Oldest).
			Msg("Unpaid payments awaiting confirmation")
	}
	return total
}
