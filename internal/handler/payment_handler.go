package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// maxCallbackBody bounds gateway callback bodies.
const maxCallbackBody = 64 << 10

// PaymentService is the part of *service.PaymentService used by the
// payment and WebSocket handlers.
type PaymentService interface {
	CreatePayPalPayment(ctx context.Context, p service.Principal, courseID int64) (*model.PaymentInitiation, error)
	CreateChapaPayment(ctx context.Context, p service.Principal, courseID int64) (*model.PaymentInitiation, error)
	HandlePayPalIPN(ctx context.Context, form url.Values, raw []byte) error
	HandleChapaCallback(ctx context.Context, cb service.ChapaCallback) (*service.ChapaResult, error)
	VerifyChapa(ctx context.Context, p service.Principal, txRef string) (*service.ChapaResult, error)
	GetPayment(ctx context.Context, p service.Principal, id int64) (*model.PaymentView, error)
	ListEvents(ctx context.Context, page, perPage int) ([]model.PaymentGatewayEvent, *response.Pagination, error)
	SuccessRedirect(paymentID int64) string
	CompleteRedirect(rawPaymentID string) string
	CancelRedirect() string
}

// PaymentHandler handles purchase initiation and gateway confirmations.
type PaymentHandler struct {
	paymentService PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePayPalPayment godoc
// POST /api/v1/payments/create-paypal-payment/
// Free courses are enrolled directly; otherwise returns the PayPal form.
func (h *PaymentHandler) CreatePayPalPayment(c *gin.Context) {
	h.initiate(c, h.paymentService.CreatePayPalPayment)
}

// CreateChapaPayment godoc
// POST /api/v1/payments/create-chapa-payment/
// Free courses are enrolled directly; otherwise returns the Chapa form.
func (h *PaymentHandler) CreateChapaPayment(c *gin.Context) {
	h.initiate(c, h.paymentService.CreateChapaPayment)
}

type initiateFunc func(ctx context.Context, p service.Principal, courseID int64) (*model.PaymentInitiation, error)

func (h *PaymentHandler) initiate(c *gin.Context, start initiateFunc) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreatePaymentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := start(c.Request.Context(), p, req.CourseID)
	if err != nil {
		fail(c, err, "Failed to start payment")
		return
	}

	status := http.StatusOK
	if out.Status == service.InitiationEnrolled {
		status = http.StatusCreated
	}
	response.Success(c, status, out)
}

// Get godoc
// GET /api/v1/payments/:id/
// Owner only; other users' payments answer 404.
func (h *PaymentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), p, id)
	if err != nil {
		fail(c, err, "Failed to load payment")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment": payment})
}

// PayPalIPN godoc
// POST /paypal-ipn/
// Acknowledged with 200 unless PayPal could not be reached, so PayPal
// retries only what can still succeed.
func (h *PaymentHandler) PayPalIPN(c *gin.Context) {
	// PayPal only verifies the message echoed back byte for byte.
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.paymentService.HandlePayPalIPN(c.Request.Context(), form, raw); err != nil {
		fail(c, err, "Failed to process PayPal IPN")
		return
	}
	c.Status(http.StatusOK)
}

// ChapaCallback godoc
// GET|POST /chapa-ipn/
// GET carries the fields in the query and redirects to the frontend on
// success; POST carries them in a JSON or form body and answers JSON.
func (h *PaymentHandler) ChapaCallback(c *gin.Context) {
	cb := service.ChapaCallback{Params: map[string]string{}}

	if c.Request.Method == http.MethodGet {
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				cb.Params[k] = v[0]
			}
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		params, err := parseCallbackBody(c.ContentType(), body)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		cb.Params = params
		cb.Body = body
		cb.Signature = c.GetHeader("Chapa-Signature")
		if cb.Signature == "" {
			cb.Signature = c.GetHeader("x-chapa-signature")
		}
	}

	result, err := h.paymentService.HandleChapaCallback(c.Request.Context(), cb)
	if err != nil {
		fail(c, err, "Failed to process Chapa callback")
		return
	}

	if result.Status == service.VerifySuccess && c.Request.Method == http.MethodGet {
		response.Redirect(c, h.paymentService.SuccessRedirect(result.PaymentID))
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"status":     result.Status,
		"payment_id": result.PaymentID,
	})
}

// parseCallbackBody flattens a JSON object or urlencoded body into strings.
func parseCallbackBody(contentType string, body []byte) (map[string]string, error) {
	params := map[string]string{}
	if len(body) == 0 {
		return params, nil
	}

	if contentType == gin.MIMEJSON || strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch t := v.(type) {
			case nil:
			case string:
				params[k] = t
			default:
				params[k] = fmt.Sprint(t)
			}
		}
		return params, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params, nil
}

// VerifyChapa godoc
// POST /api/v1/payments/verify-chapa/
// Asks Chapa for the status of one of the caller's payments.
func (h *PaymentHandler) VerifyChapa(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.VerifyChapaRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrMissingTxRef)
		return
	}

	result, err := h.paymentService.VerifyChapa(c.Request.Context(), p, req.TxRef)
	if err != nil {
		fail(c, err, "Failed to verify Chapa payment")
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ListEvents godoc
// GET /api/v1/payments/events/?page=1&per_page=20
// Staff view of the gateway event log.
func (h *PaymentHandler) ListEvents(c *gin.Context) {
	events, pagination, err := h.paymentService.ListEvents(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.InternalError(c, err, "Failed to list payment events")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"events": events}, pagination)
}

// PaymentComplete godoc
// GET /payment-complete/?payment_id=
func (h *PaymentHandler) PaymentComplete(c *gin.Context) {
	response.Redirect(c, h.paymentService.CompleteRedirect(c.Query("payment_id")))
}

// PaymentCancelled godoc
// GET /payment-cancelled/
func (h *PaymentHandler) PaymentCancelled(c *gin.Context) {
	response.Redirect(c, h.paymentService.CancelRedirect())
}
