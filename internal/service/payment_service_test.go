package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/gateway"
	"github.com/stemsi/elearning-backend/internal/model"
)

type paymentFixture struct {
	svc         *PaymentService
	payments    *fakePayments
	enrollments *fakeEnrollments
	paypal      *stubPayPal
	chapa       *stubChapa
	notifier    *recordingNotifier
	cfg         *config.Config
}

const (
	studentID   int64 = 7
	paidCourse  int64 = 1
	freeCourse  int64 = 2
	chapaTxRef        = "chapa-tx-abc123"
	webhookKey        = "whsec"
	paypalTxnID       = "9XY12345"
)

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	price, err := model.ParseMoney("49.99")
	require.NoError(t, err)

	cfg := &config.Config{
		PublicBaseURL:      "https://api.example.com",
		FrontendURL:        "https://app.example.com",
		PayPalEmail:        "merchant@example.com",
		PayPalURL:          "https://www.sandbox.paypal.com/cgi-bin/webscr",
		PayPalCurrency:     "USD",
		ChapaPublicKey:     "CHAPUBK_TEST",
		ChapaSecretKey:     "CHASECK_TEST",
		ChapaHostedURL:     "https://api.chapa.co/v1/hosted/pay",
		ChapaWebhookSecret: webhookKey,
		ChapaCurrency:      "ETB",
	}

	courses := newFakeCourses(
		&model.Course{ID: paidCourse, Title: "Go in Practice", Price: &price},
		&model.Course{ID: freeCourse, Title: "Intro"},
	)
	users := newFakeUsers(&model.UserAccount{ID: studentID, Email: "ana@example.com", IsActive: true})
	enrollments := newFakeEnrollments()
	payments := newFakePayments(enrollments, courses)

	f := &paymentFixture{
		payments:    payments,
		enrollments: enrollments,
		paypal:      &stubPayPal{verified: true},
		chapa:       &stubChapa{},
		notifier:    &recordingNotifier{},
		cfg:         cfg,
	}
	f.svc = NewPaymentService(cfg, courses, enrollments, payments, users, f.paypal, f.chapa, f.notifier, zerolog.Nop())
	return f
}

func (f *paymentFixture) unpaidPayPal() *model.Payment {
	return f.payments.add(model.Payment{
		ID: 100, OrderID: "ORD-1", UserID: studentID, CourseID: paidCourse,
		Amount: model.MoneyFromCents(4999), Gateway: model.GatewayPayPal,
	})
}

func (f *paymentFixture) unpaidChapa(id int64, ref string) *model.Payment {
	return f.payments.add(model.Payment{
		ID: id, OrderID: "ORD-" + strconv.FormatInt(id, 10), UserID: studentID, CourseID: paidCourse,
		Amount: model.MoneyFromCents(4999), Gateway: model.GatewayChapa, ChapaTxRef: ptr(ref),
	})
}

// ipnBody builds an IPN message in the field order PayPal sends it.
func ipnBody(invoice int64, status string) string {
	return "mc_gross=49.99&invoice=" + strconv.FormatInt(invoice, 10) +
		"&payment_status=" + status + "&txn_id=" + paypalTxnID
}

func (f *paymentFixture) handleIPN(ctx context.Context, invoice int64, status string) error {
	raw := ipnBody(invoice, status)
	form, err := url.ParseQuery(raw)
	if err != nil {
		return err
	}
	return f.svc.HandlePayPalIPN(ctx, form, []byte(raw))
}

var student = Principal{UserID: studentID, Email: "ana@example.com"}

// ─── Initiation ─────────────────────────────────────────────────────────

func TestCreatePayPalPayment_FreeCourseEnrollsDirectly(t *testing.T) {
	f := newPaymentFixture(t)

	out, err := f.svc.CreatePayPalPayment(context.Background(), student, freeCourse)
	require.NoError(t, err)

	assert.Equal(t, InitiationEnrolled, out.Status)
	assert.Empty(t, out.PaymentData)
	assert.Equal(t, 1, f.enrollments.count())
	assert.Empty(t, f.payments.payments)
}

func TestCreatePayPalPayment_AlreadyEnrolled(t *testing.T) {
	f := newPaymentFixture(t)
	_, _, _ = f.enrollments.GetOrCreate(context.Background(), studentID, paidCourse)

	_, err := f.svc.CreatePayPalPayment(context.Background(), student, paidCourse)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCreatePayPalPayment_UnknownCourse(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreatePayPalPayment(context.Background(), student, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCreatePayPalPayment_FormFields(t *testing.T) {
	f := newPaymentFixture(t)

	out, err := f.svc.CreatePayPalPayment(context.Background(), student, paidCourse)
	require.NoError(t, err)

	id := strconv.FormatInt(out.PaymentID, 10)
	assert.Equal(t, f.cfg.PayPalURL, out.PaymentURL)
	assert.Equal(t, "_xclick", out.PaymentData["cmd"])
	assert.Equal(t, "merchant@example.com", out.PaymentData["business"])
	assert.Equal(t, "49.99", out.PaymentData["amount"])
	assert.Equal(t, "Go in Practice", out.PaymentData["item_name"])
	assert.Equal(t, id, out.PaymentData["invoice"])
	assert.Equal(t, "USD", out.PaymentData["currency_code"])
	assert.Equal(t, "https://api.example.com/paypal-ipn/", out.PaymentData["notify_url"])
	assert.Equal(t, "https://api.example.com/payment-complete/?payment_id="+id, out.PaymentData["return"])
	assert.Equal(t, "7", out.PaymentData["custom"])

	stored := f.payments.get(out.PaymentID)
	assert.False(t, stored.Status)
	assert.Equal(t, model.GatewayPayPal, stored.Gateway)
	assert.Regexp(t, `^ORD-[0-9A-F]{12}$`, stored.OrderID)
}

func TestCreatePayPalPayment_Misconfigured(t *testing.T) {
	f := newPaymentFixture(t)
	f.cfg.PayPalEmail = ""

	_, err := f.svc.CreatePayPalPayment(context.Background(), student, paidCourse)
	assert.ErrorIs(t, err, ErrGatewayMisconfigured)
	assert.Empty(t, f.payments.payments)
}

func TestCreateChapaPayment_FormFields(t *testing.T) {
	f := newPaymentFixture(t)

	out, err := f.svc.CreateChapaPayment(context.Background(), student, paidCourse)
	require.NoError(t, err)

	data := out.PaymentData
	assert.Equal(t, f.cfg.ChapaHostedURL, out.PaymentURL)
	assert.Regexp(t, `^chapa-tx-[0-9a-f]{10}$`, data["tx_ref"])
	assert.Equal(t, "49.99", data["amount"])
	assert.Equal(t, "ETB", data["currency"])
	assert.Equal(t, "User", data["first_name"])
	assert.Equal(t, "7", data["last_name"])
	assert.Equal(t, "Course: Go in Practice", data["title"])
	assert.Equal(t, "https://api.example.com/chapa-ipn/", data["callback_url"])
	assert.Equal(t, "https://app.example.com/payment/success?payment_id="+strconv.FormatInt(out.PaymentID, 10), data["return_url"])

	stored := f.payments.get(out.PaymentID)
	require.NotNil(t, stored.ChapaTxRef)
	assert.Equal(t, data["tx_ref"], *stored.ChapaTxRef)
}

func TestCreateChapaPayment_RequiresValidEmail(t *testing.T) {
	f := newPaymentFixture(t)
	users := newFakeUsers(&model.UserAccount{ID: studentID, Email: "not-an-email"})
	f.svc.users = users

	_, err := f.svc.CreateChapaPayment(context.Background(), student, paidCourse)
	assert.ErrorIs(t, err, ErrValidEmailRequired)
}

// ─── PayPal IPN ─────────────────────────────────────────────────────────

func TestHandlePayPalIPN_ConfirmsOnce(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()
	ctx := context.Background()

	require.NoError(t, f.handleIPN(ctx, p.ID, gateway.PayPalStatusCompleted))
	require.NoError(t, f.handleIPN(ctx, p.ID, gateway.PayPalStatusCompleted))

	stored := f.payments.get(p.ID)
	assert.True(t, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, paypalTxnID, *stored.PaymentID)
	assert.Equal(t, 1, f.enrollments.count())
	assert.Equal(t, 1, f.notifier.count())

	require.Len(t, f.payments.events, 2)
	assert.Equal(t, model.GatewayEventProcessed, f.payments.events[0].Outcome)
	assert.Equal(t, model.GatewayEventIgnored, f.payments.events[1].Outcome)
}

func TestHandlePayPalIPN_VerifiesRawBody(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()

	require.NoError(t, f.handleIPN(context.Background(), p.ID, gateway.PayPalStatusCompleted))

	assert.Equal(t, ipnBody(p.ID, gateway.PayPalStatusCompleted), string(f.paypal.gotRaw))
}

func TestHandlePayPalIPN_NotCompletedLeavesPaymentPending(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()

	require.NoError(t, f.handleIPN(context.Background(), p.ID, "Pending"))

	assert.False(t, f.payments.get(p.ID).Status)
	assert.Equal(t, 0, f.enrollments.count())
	assert.Equal(t, model.GatewayEventIgnored, f.payments.lastEvent().Outcome)
}

func TestHandlePayPalIPN_UnknownInvoiceIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(t)

	require.NoError(t, f.handleIPN(context.Background(), 404, gateway.PayPalStatusCompleted))

	ev := f.payments.lastEvent()
	assert.Equal(t, model.GatewayEventIgnored, ev.Outcome)
	assert.Nil(t, ev.PaymentID)
	assert.Equal(t, 0, f.notifier.count())
}

func TestHandlePayPalIPN_RejectedByPayPal(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()
	f.paypal.verified = false

	require.NoError(t, f.handleIPN(context.Background(), p.ID, gateway.PayPalStatusCompleted))

	assert.False(t, f.payments.get(p.ID).Status)
	assert.Equal(t, model.GatewayEventRejected, f.payments.lastEvent().Outcome)
}

func TestHandlePayPalIPN_GatewayUnreachable(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()
	f.paypal.err = gateway.ErrUnavailable

	err := f.handleIPN(context.Background(), p.ID, gateway.PayPalStatusCompleted)

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.False(t, f.payments.get(p.ID).Status)
	assert.Equal(t, model.GatewayEventUnverified, f.payments.lastEvent().Outcome)
}

func TestHandlePayPalIPN_EventKeepsPayload(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()

	require.NoError(t, f.handleIPN(context.Background(), p.ID, gateway.PayPalStatusCompleted))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(f.payments.lastEvent().Payload, &payload))
	assert.Equal(t, "49.99", payload["mc_gross"])
	assert.Equal(t, paypalTxnID, f.payments.lastEvent().ExternalRef)
}

// ─── Chapa callback ─────────────────────────────────────────────────────

func TestHandleChapaCallback_MissingTxRef(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{Params: map[string]string{"status": "success"}})
	assert.ErrorIs(t, err, ErrMissingTxRef)
}

func TestHandleChapaCallback_UnknownTxRef(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{
		Params: map[string]string{"tx_ref": "chapa-tx-nothing", "status": "success"},
	})
	assert.ErrorIs(t, err, ErrInvalidTxRef)
}

func TestHandleChapaCallback_DuplicateTxRef(t *testing.T) {
	f := newPaymentFixture(t)
	f.unpaidChapa(200, chapaTxRef)
	f.unpaidChapa(201, chapaTxRef)

	_, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{
		Params: map[string]string{"tx_ref": chapaTxRef, "status": "success"},
	})
	assert.ErrorIs(t, err, ErrDuplicateTxRef)
	assert.False(t, f.payments.get(200).Status)
	assert.False(t, f.payments.get(201).Status)
}

func TestHandleChapaCallback_PendingStatus(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidChapa(200, chapaTxRef)

	res, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{
		Params: map[string]string{"tx_ref": chapaTxRef, "status": "failed"},
	})
	require.NoError(t, err)

	assert.Equal(t, VerifyPending, res.Status)
	assert.Equal(t, p.ID, res.PaymentID)
	assert.False(t, f.payments.get(p.ID).Status)
}

func TestHandleChapaCallback_SuccessConfirms(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidChapa(200, chapaTxRef)

	res, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{
		Params: map[string]string{"tx_ref": chapaTxRef, "status": "success", "transaction_id": "CH-42"},
	})
	require.NoError(t, err)

	assert.Equal(t, VerifySuccess, res.Status)
	stored := f.payments.get(p.ID)
	assert.True(t, stored.Status)
	assert.Equal(t, "CH-42", *stored.PaymentID)
	assert.Equal(t, 1, f.enrollments.count())
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleChapaCallback_SecondCallbackFindsNoUnpaidPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.unpaidChapa(200, chapaTxRef)
	cb := ChapaCallback{Params: map[string]string{"tx_ref": chapaTxRef, "status": "success"}}

	_, err := f.svc.HandleChapaCallback(context.Background(), cb)
	require.NoError(t, err)
	_, err = f.svc.HandleChapaCallback(context.Background(), cb)

	assert.ErrorIs(t, err, ErrInvalidTxRef)
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleChapaCallback_Signature(t *testing.T) {
	body := []byte(`{"tx_ref":"chapa-tx-abc123","status":"success"}`)
	params := map[string]string{"tx_ref": chapaTxRef, "status": "success"}

	t.Run("invalid", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := f.unpaidChapa(200, chapaTxRef)

		_, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{Params: params, Body: body, Signature: "deadbeef"})
		assert.ErrorIs(t, err, ErrInvalidSignature)
		assert.False(t, f.payments.get(p.ID).Status)
	})

	t.Run("valid", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := f.unpaidChapa(200, chapaTxRef)

		_, err := f.svc.HandleChapaCallback(context.Background(), ChapaCallback{Params: params, Body: body, Signature: sign(webhookKey, body)})
		require.NoError(t, err)
		assert.True(t, f.payments.get(p.ID).Status)
	})
}

func TestConfirm_ConcurrentCallbacksEnrollOnce(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidPayPal()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.handleIPN(context.Background(), p.ID, gateway.PayPalStatusCompleted)
		}()
	}
	wg.Wait()

	assert.True(t, f.payments.get(p.ID).Status)
	assert.Equal(t, 1, f.enrollments.count())
	assert.Equal(t, 1, f.notifier.count())
}

// ─── Chapa verify ───────────────────────────────────────────────────────

func TestVerifyChapa_Success(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidChapa(200, chapaTxRef)
	f.chapa.result = &gateway.ChapaVerification{
		Status: gateway.ChapaStatusSuccess,
		Raw:    json.RawMessage(`{"status":"success"}`),
	}

	res, err := f.svc.VerifyChapa(context.Background(), student, chapaTxRef)
	require.NoError(t, err)

	assert.Equal(t, VerifySuccess, res.Status)
	require.NotNil(t, res.Payment)
	assert.True(t, res.Payment.Status)
	assert.Equal(t, "Go in Practice", res.Payment.Course)
	assert.Equal(t, "chapa-"+chapaTxRef, *f.payments.get(p.ID).PaymentID)
	assert.JSONEq(t, `{"status":"success"}`, string(f.payments.lastEvent().Payload))
}

func TestVerifyChapa_PendingLeavesPayment(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidChapa(200, chapaTxRef)
	f.chapa.result = &gateway.ChapaVerification{Status: "pending"}

	res, err := f.svc.VerifyChapa(context.Background(), student, chapaTxRef)
	require.NoError(t, err)

	assert.Equal(t, VerifyPending, res.Status)
	assert.False(t, f.payments.get(p.ID).Status)
}

func TestVerifyChapa_AlreadyPaidSkipsGateway(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.unpaidChapa(200, chapaTxRef)
	_, err := f.payments.ConfirmAndEnroll(context.Background(), p.ID, "CH-1")
	require.NoError(t, err)

	res, err := f.svc.VerifyChapa(context.Background(), student, chapaTxRef)
	require.NoError(t, err)

	assert.Equal(t, VerifySuccess, res.Status)
	assert.Zero(t, f.chapa.calls)
}

func TestVerifyChapa_OtherUsersPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.unpaidChapa(200, chapaTxRef)

	_, err := f.svc.VerifyChapa(context.Background(), Principal{UserID: 99}, chapaTxRef)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestVerifyChapa_GatewayUnreachable(t *testing.T) {
	f := newPaymentFixture(t)
	f.unpaidChapa(200, chapaTxRef)
	f.chapa.err = errors.New("dial tcp: timeout")

	_, err := f.svc.VerifyChapa(context.Background(), student, chapaTxRef)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, model.GatewayEventUnverified, f.payments.lastEvent().Outcome)
}

func TestVerifyChapa_MissingTxRef(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.VerifyChapa(context.Background(), student, "  ")
	assert.ErrorIs(t, err, ErrMissingTxRef)
}

func TestRedirects(t *testing.T) {
	f := newPaymentFixture(t)

	assert.Equal(t, "https://app.example.com/payment/success?payment_id=5", f.svc.SuccessRedirect(5))
	assert.Equal(t, "https://app.example.com/payment/success?payment_id=a%26b", f.svc.CompleteRedirect("a&b"))
	assert.Equal(t, "https://app.example.com/payment/cancel", f.svc.CancelRedirect())
}
