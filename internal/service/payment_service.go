package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/gateway"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/repository"
	"github.com/stemsi/elearning-backend/internal/response"
)

// PayPalVerifier confirms that an IPN message really came from PayPal.
type PayPalVerifier interface {
	VerifyIPN(ctx context.Context, raw []byte) (bool, error)
}

// ChapaVerifier fetches the status of a Chapa transaction.
type ChapaVerifier interface {
	Verify(ctx context.Context, txRef string) (*gateway.ChapaVerification, error)
}

// PaymentNotifier is told about every payment this process confirmed.
type PaymentNotifier interface {
	PaymentConfirmed(ctx context.Context, c *model.PaymentConfirmation)
}

// Payment initiation statuses.
const (
	InitiationEnrolled = "enrolled"

	VerifySuccess = "success"
	VerifyPending = "pending"
)

const maxTxRefAttempts = 3

// ChapaCallback is a Chapa notification as received over HTTP.
type ChapaCallback struct {
	// Params holds the query (GET) or body (POST) fields.
	Params map[string]string
	// Body is the raw POST body, used for signature checks. Nil for GET.
	Body      []byte
	Signature string
}

// ChapaResult is the outcome of a callback or verification.
type ChapaResult struct {
	Status    string             `json:"status"`
	PaymentID int64              `json:"-"`
	Payment   *model.PaymentView `json:"payment,omitempty"`
}

// PaymentService starts purchases and reconciles gateway confirmations with
// payments and enrollments.
type PaymentService struct {
	cfg         *config.Config
	courses     CourseStore
	enrollments EnrollmentStore
	payments    PaymentStore
	users       UserStore
	paypal      PayPalVerifier
	chapa       ChapaVerifier
	notifier    PaymentNotifier
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentService. notifier may be nil.
func NewPaymentService(
	cfg *config.Config,
	courses CourseStore,
	enrollments EnrollmentStore,
	payments PaymentStore,
	users UserStore,
	paypal PayPalVerifier,
	chapa ChapaVerifier,
	notifier PaymentNotifier,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		cfg:         cfg,
		courses:     courses,
		enrollments: enrollments,
		payments:    payments,
		users:       users,
		paypal:      paypal,
		chapa:       chapa,
		notifier:    notifier,
		log:         log.With().Str("component", "payments").Logger(),
	}
}

// ─── Initiation ─────────────────────────────────────────────────────────

// checkout loads the course and enrolls directly when it is free. A nil
// initiation with a nil error means a payment is required.
func (s *PaymentService) checkout(ctx context.Context, p Principal, courseID int64) (*model.Course, *model.PaymentInitiation, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, nil, notFound(err, ErrCourseNotFound)
	}

	enrolled, err := s.enrollments.Exists(ctx, p.UserID, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return nil, nil, ErrAlreadyEnrolled
	}

	if course.IsFree() {
		if _, _, err := s.enrollments.GetOrCreate(ctx, p.UserID, courseID); err != nil {
			return nil, nil, fmt.Errorf("enroll: %w", err)
		}
		return course, &model.PaymentInitiation{Status: InitiationEnrolled}, nil
	}
	return course, nil, nil
}

func newOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func newChapaTxRef() string {
	return "chapa-tx-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// CreatePayPalPayment starts a PayPal purchase and returns the form fields
// the client posts to PayPal. Payment.id is the PayPal invoice.
func (s *PaymentService) CreatePayPalPayment(ctx context.Context, p Principal, courseID int64) (*model.PaymentInitiation, error) {
	course, done, err := s.checkout(ctx, p, courseID)
	if err != nil || done != nil {
		return done, err
	}
	if s.cfg.PayPalEmail == "" || s.cfg.PayPalURL == "" {
		return nil, ErrGatewayMisconfigured
	}

	payment := &model.Payment{
		OrderID:  newOrderID(),
		UserID:   p.UserID,
		CourseID: course.ID,
		Amount:   *course.Price,
		Gateway:  model.GatewayPayPal,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	id := strconv.FormatInt(payment.ID, 10)
	data := map[string]string{
		"cmd":           "_xclick",
		"business":      s.cfg.PayPalEmail,
		"amount":        payment.Amount.String(),
		"item_name":     course.Title,
		"invoice":       id,
		"currency_code": s.cfg.PayPalCurrency,
		"return":        s.cfg.PublicBaseURL + "/payment-complete/?payment_id=" + id,
		"cancel_return": s.cfg.PublicBaseURL + "/payment-cancelled/",
		"notify_url":    s.cfg.PublicBaseURL + "/paypal-ipn/",
		"no_shipping":   "1",
		"custom":        strconv.FormatInt(p.UserID, 10),
	}

	s.log.Info().
		Int64("payment_id", payment.ID).
		Int64("course_id", course.ID).
		Int64("user_id", p.UserID).
		Str("amount", payment.Amount.String()).
		Msg("PayPal payment created")

	return &model.PaymentInitiation{
		PaymentURL:  s.cfg.PayPalURL,
		PaymentData: data,
		PaymentID:   payment.ID,
	}, nil
}

// CreateChapaPayment starts a Chapa purchase under a fresh tx_ref and
// returns the fields of Chapa's hosted checkout form.
func (s *PaymentService) CreateChapaPayment(ctx context.Context, p Principal, courseID int64) (*model.PaymentInitiation, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if !strings.Contains(user.Email, "@") {
		return nil, ErrValidEmailRequired
	}

	course, done, err := s.checkout(ctx, p, courseID)
	if err != nil || done != nil {
		return done, err
	}
	if s.cfg.ChapaPublicKey == "" {
		return nil, ErrGatewayMisconfigured
	}

	payment := &model.Payment{
		OrderID:  newOrderID(),
		UserID:   p.UserID,
		CourseID: course.ID,
		Amount:   *course.Price,
		Gateway:  model.GatewayChapa,
	}
	for attempt := 1; ; attempt++ {
		ref := newChapaTxRef()
		payment.ChapaTxRef = &ref
		err = s.payments.Create(ctx, payment)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err, "") || attempt == maxTxRefAttempts {
			return nil, fmt.Errorf("create payment: %w", err)
		}
	}

	firstName := user.FirstName
	if firstName == "" {
		firstName = "User"
	}
	lastName := user.LastName
	if lastName == "" {
		lastName = strconv.FormatInt(user.ID, 10)
	}

	data := map[string]string{
		"public_key":   s.cfg.ChapaPublicKey,
		"tx_ref":       *payment.ChapaTxRef,
		"amount":       payment.Amount.String(),
		"currency":     s.cfg.ChapaCurrency,
		"email":        user.Email,
		"first_name":   firstName,
		"last_name":    lastName,
		"title":        "Course: " + course.Title,
		"description":  "Payment for " + course.Title,
		"callback_url": s.cfg.PublicBaseURL + "/chapa-ipn/",
		"return_url":   s.SuccessRedirect(payment.ID),
	}

	s.log.Info().
		Int64("payment_id", payment.ID).
		Int64("course_id", course.ID).
		Int64("user_id", p.UserID).
		Str("tx_ref", *payment.ChapaTxRef).
		Msg("Chapa payment created")

	return &model.PaymentInitiation{
		PaymentURL:  s.cfg.ChapaHostedURL,
		PaymentData: data,
		PaymentID:   payment.ID,
	}, nil
}

// ─── Confirmation ───────────────────────────────────────────────────────

// confirm flips the payment to paid and gets-or-creates the enrollment.
// Only the call that actually flipped the status notifies.
func (s *PaymentService) confirm(ctx context.Context, paymentID int64, externalID string) (*model.PaymentConfirmation, error) {
	c, err := s.payments.ConfirmAndEnroll(ctx, paymentID, externalID)
	if err != nil {
		return nil, err
	}
	if !c.Newly {
		return c, nil
	}

	s.log.Info().
		Int64("payment_id", c.Payment.ID).
		Int64("user_id", c.Payment.UserID).
		Int64("course_id", c.Payment.CourseID).
		Str("external_id", externalID).
		Str("gateway", string(c.Payment.Gateway)).
		Msg("Payment confirmed")

	if s.notifier != nil {
		s.notifier.PaymentConfirmed(ctx, c)
	}
	return c, nil
}

// HandlePayPalIPN verifies an IPN message with PayPal and confirms the
// invoice when PayPal answers VERIFIED for a Completed payment. Unknown
// invoices and non-completed statuses are acknowledged without changes.
// Returns ErrGatewayUnavailable when PayPal cannot be reached so the caller
// answers with a status that makes PayPal retry.
// raw is the body exactly as received; form is its parsed view.
func (s *PaymentService) HandlePayPalIPN(ctx context.Context, form url.Values, raw []byte) error {
	event := &model.PaymentGatewayEvent{
		Gateway:     model.GatewayPayPal,
		EventType:   model.GatewayEventPayPalIPN,
		ExternalRef: form.Get("txn_id"),
		Payload:     flattenPayload(form),
	}

	verified, err := s.paypal.VerifyIPN(ctx, raw)
	if err != nil {
		s.recordEvent(ctx, event, model.GatewayEventUnverified, err)
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !verified {
		s.recordEvent(ctx, event, model.GatewayEventRejected, errors.New("IPN not verified"))
		return nil
	}
	if form.Get("payment_status") != gateway.PayPalStatusCompleted {
		s.recordEvent(ctx, event, model.GatewayEventIgnored, fmt.Errorf("payment_status %q", form.Get("payment_status")))
		return nil
	}
	invoice, err := strconv.ParseInt(form.Get("invoice"), 10, 64)
	if err != nil {
		s.recordEvent(ctx, event, model.GatewayEventIgnored, errors.New("invalid invoice"))
		return nil
	}

	c, err := s.confirm(ctx, invoice, form.Get("txn_id"))
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordEvent(ctx, event, model.GatewayEventIgnored, errors.New("unknown invoice"))
		return nil
	}
	if err != nil {
		s.recordEvent(ctx, event, model.GatewayEventReceived, err)
		return fmt.Errorf("confirm payment: %w", err)
	}

	event.PaymentID = &c.Payment.ID
	if c.Newly {
		s.recordEvent(ctx, event, model.GatewayEventProcessed, nil)
	} else {
		s.recordEvent(ctx, event, model.GatewayEventIgnored, errors.New("already confirmed"))
	}
	return nil
}

// HandleChapaCallback processes a Chapa redirect or webhook. The tx_ref
// must match exactly one unpaid payment; status=success confirms it,
// anything else leaves it pending.
func (s *PaymentService) HandleChapaCallback(ctx context.Context, cb ChapaCallback) (*ChapaResult, error) {
	txRef := strings.TrimSpace(cb.Params["tx_ref"])
	event := &model.PaymentGatewayEvent{
		Gateway:     model.GatewayChapa,
		EventType:   model.GatewayEventChapaNotify,
		ExternalRef: txRef,
		Payload:     marshalPayload(cb.Params),
	}

	if cb.Body != nil && cb.Signature != "" && s.cfg.ChapaWebhookSecret != "" &&
		!gateway.ValidSignature(s.cfg.ChapaWebhookSecret, cb.Body, cb.Signature) {
		s.recordEvent(ctx, event, model.GatewayEventRejected, ErrInvalidSignature)
		return nil, ErrInvalidSignature
	}

	if txRef == "" {
		s.recordEvent(ctx, event, model.GatewayEventRejected, ErrMissingTxRef)
		return nil, ErrMissingTxRef
	}

	unpaid, err := s.payments.ListUnpaidByTxRef(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	switch {
	case len(unpaid) == 0:
		s.recordEvent(ctx, event, model.GatewayEventRejected, ErrInvalidTxRef)
		return nil, ErrInvalidTxRef
	case len(unpaid) > 1:
		s.log.Error().Str("tx_ref", txRef).Int("matches", len(unpaid)).Msg("Multiple unpaid payments share a tx_ref")
		s.recordEvent(ctx, event, model.GatewayEventRejected, ErrDuplicateTxRef)
		return nil, ErrDuplicateTxRef
	}

	payment := unpaid[0]
	event.PaymentID = &payment.ID

	if cb.Params["status"] != gateway.ChapaStatusSuccess {
		s.recordEvent(ctx, event, model.GatewayEventReceived, nil)
		return &ChapaResult{Status: VerifyPending, PaymentID: payment.ID}, nil
	}

	externalID := cb.Params["transaction_id"]
	if externalID == "" {
		externalID = cb.Params["id"]
	}
	c, err := s.confirm(ctx, payment.ID, externalID)
	if err != nil {
		s.recordEvent(ctx, event, model.GatewayEventReceived, err)
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	outcome := model.GatewayEventProcessed
	if !c.Newly {
		outcome = model.GatewayEventIgnored
	}
	s.recordEvent(ctx, event, outcome, nil)
	return &ChapaResult{Status: VerifySuccess, PaymentID: payment.ID}, nil
}

// VerifyChapa asks Chapa for the status of one of the principal's payments
// and confirms it on success.
func (s *PaymentService) VerifyChapa(ctx context.Context, p Principal, txRef string) (*ChapaResult, error) {
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return nil, ErrMissingTxRef
	}

	payment, err := s.payments.GetByTxRefForUser(ctx, p.UserID, txRef)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}

	if !payment.Status {
		if s.cfg.ChapaSecretKey == "" {
			return nil, ErrGatewayMisconfigured
		}

		event := &model.PaymentGatewayEvent{
			Gateway:     model.GatewayChapa,
			EventType:   model.GatewayEventChapaVerify,
			ExternalRef: txRef,
			PaymentID:   &payment.ID,
			Payload:     json.RawMessage(`{}`),
		}

		v, err := s.chapa.Verify(ctx, txRef)
		if err != nil {
			s.log.Error().Err(err).Str("tx_ref", txRef).Msg("Chapa verification failed")
			s.recordEvent(ctx, event, model.GatewayEventUnverified, err)
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		if len(v.Raw) > 0 && json.Valid(v.Raw) {
			event.Payload = v.Raw
		}

		if v.Status == gateway.ChapaStatusSuccess {
			externalID := v.TransactionID
			if externalID == "" {
				externalID = "chapa-" + txRef
			}
			c, err := s.confirm(ctx, payment.ID, externalID)
			if err != nil {
				s.recordEvent(ctx, event, model.GatewayEventReceived, err)
				return nil, fmt.Errorf("confirm payment: %w", err)
			}
			outcome := model.GatewayEventProcessed
			if !c.Newly {
				outcome = model.GatewayEventIgnored
			}
			s.recordEvent(ctx, event, outcome, nil)
		} else {
			s.recordEvent(ctx, event, model.GatewayEventReceived, nil)
		}
	}

	view, err := s.payments.GetView(ctx, p.UserID, payment.ID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	status := VerifyPending
	if view.Status {
		status = VerifySuccess
	}
	return &ChapaResult{Status: status, PaymentID: view.ID, Payment: view}, nil
}

// ─── Queries ────────────────────────────────────────────────────────────

// GetPayment returns one of the principal's payments.
func (s *PaymentService) GetPayment(ctx context.Context, p Principal, id int64) (*model.PaymentView, error) {
	v, err := s.payments.GetView(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return v, nil
}

// ListEvents returns a page of the gateway event log, newest first.
func (s *PaymentService) ListEvents(ctx context.Context, page, perPage int) ([]model.PaymentGatewayEvent, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)
	events, total, err := s.payments.ListEvents(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.PaymentGatewayEvent{}
	}
	return events, response.NewPagination(page, perPage, total), nil
}

// StaleUnpaid counts unpaid payments older than age, per gateway.
func (s *PaymentService) StaleUnpaid(ctx context.Context, age time.Duration) ([]repository.StaleCount, error) {
	return s.payments.CountStaleUnpaid(ctx, time.Now().Add(-age))
}

// SuccessRedirect is the frontend page shown after a successful payment.
func (s *PaymentService) SuccessRedirect(paymentID int64) string {
	return s.cfg.FrontendURL + "/payment/success?payment_id=" + strconv.FormatInt(paymentID, 10)
}

// CompleteRedirect forwards PayPal's return query to the frontend success page.
func (s *PaymentService) CompleteRedirect(rawPaymentID string) string {
	return s.cfg.FrontendURL + "/payment/success?payment_id=" + url.QueryEscape(rawPaymentID)
}

// CancelRedirect is the frontend page shown after a cancelled payment.
func (s *PaymentService) CancelRedirect() string {
	return s.cfg.FrontendURL + "/payment/cancel"
}

// ─── Event log ──────────────────────────────────────────────────────────

// recordEvent stores an audit row. Failures are logged and never change the
// outcome of the gateway call.
func (s *PaymentService) recordEvent(ctx context.Context, e *model.PaymentGatewayEvent, outcome model.GatewayEventOutcome, cause error) {
	e.Outcome = outcome
	if cause != nil {
		msg := cause.Error()
		e.Error = &msg
	}
	if len(e.Payload) == 0 {
		e.Payload = json.RawMessage(`{}`)
	}
	if err := s.payments.CreateEvent(ctx, e); err != nil {
		s.log.Warn().Err(err).
			Str("gateway", string(e.Gateway)).
			Str("event_type", e.EventType).
			Msg("Failed to record gateway event")
	}
}

func flattenPayload(form url.Values) json.RawMessage {
	flat := make(map[string]string, len(form))
	for k := range form {
		flat[k] = form.Get(k)
	}
	return marshalPayload(flat)
}

func marshalPayload(m map[string]string) json.RawMessage {
	data, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
