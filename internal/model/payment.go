package model

import (
	"encoding/json"
	"time"
)

// Gateway identifies the payment provider.
type Gateway string

const (
	GatewayPayPal Gateway = "paypal"
	GatewayChapa  Gateway = "chapa"
)

// Payment tracks one purchase of a course. Status moves from false to true
// exactly once, when the gateway confirms the transaction.
type Payment struct {
	ID         int64     `json:"id"`
	OrderID    string    `json:"order_id"`
	PaymentID  *string   `json:"payment_id"`
	UserID     int64     `json:"user_id"`
	CourseID   int64     `json:"course_id"`
	Amount     Money     `json:"amount"`
	Date       time.Time `json:"date"`
	Status     bool      `json:"status"`
	Gateway    Gateway   `json:"gateway"`
	ChapaTxRef *string   `json:"chapa_tx_ref"`
}

// GatewayEventOutcome records what the system did with a gateway event.
type GatewayEventOutcome string

const (
	GatewayEventReceived   GatewayEventOutcome = "received"
	GatewayEventProcessed  GatewayEventOutcome = "processed"
	GatewayEventIgnored    GatewayEventOutcome = "ignored"
	GatewayEventRejected   GatewayEventOutcome = "rejected"
	GatewayEventUnverified GatewayEventOutcome = "unverified"
)

// Gateway event types.
const (
	GatewayEventPayPalIPN   = "paypal.ipn"
	GatewayEventChapaNotify = "chapa.callback"
	GatewayEventChapaVerify = "chapa.verify"
)

// PaymentGatewayEvent is an audit record of one gateway round-trip.
// It never changes Payment state by itself.
type PaymentGatewayEvent struct {
	ID          int64               `json:"id"`
	Gateway     Gateway             `json:"gateway"`
	PaymentID   *int64              `json:"payment_id"`
	ExternalRef string              `json:"external_ref"`
	EventType   string              `json:"event_type"`
	Payload     json.RawMessage     `json:"payload"`
	Outcome     GatewayEventOutcome `json:"outcome"`
	Error       *string             `json:"error"`
	ReceivedAt  time.Time           `json:"received_at"`
}

// ─── Requests / responses ───────────────────────────────────────────────

// CreatePaymentRequest is the payload for the create-*-payment endpoints.
type CreatePaymentRequest struct {
	CourseID int64 `json:"course_id" binding:"required,min=1"`
}

// VerifyChapaRequest is the payload for POST /payments/verify-chapa/.
type VerifyChapaRequest struct {
	TxRef string `json:"tx_ref" binding:"required"`
}

// PaymentInitiation is the result of starting a purchase. Free courses are
// enrolled directly and only Status is set.
type PaymentInitiation struct {
	Status      string            `json:"status,omitempty"`
	PaymentURL  string            `json:"payment_url,omitempty"`
	PaymentData map[string]string `json:"payment_data,omitempty"`
	PaymentID   int64             `json:"payment_id,omitempty"`
}

// PaymentView is the client-facing rendering of a payment.
type PaymentView struct {
	ID         int64   `json:"id"`
	Amount     Money   `json:"amount"`
	Status     bool    `json:"status"`
	PaymentID  *string `json:"payment_id"`
	Course     string  `json:"course"`
	Gateway    Gateway `json:"gateway"`
	ChapaTxRef *string `json:"chapa_tx_ref"`
}

// PaymentConfirmation is the result of a successful gateway confirmation.
type PaymentConfirmation struct {
	Payment    *Payment    `json:"payment"`
	Enrollment *Enrollment `json:"enrollment"`
	// Newly reports whether this call flipped the payment status.
	Newly bool `json:"-"`
}

// PaymentStatusEvent is the message published on the payment status channel.
type PaymentStatusEvent struct {
	Type      string `json:"type"`
	PaymentID int64  `json:"payment_id"`
	CourseID  int64  `json:"course_id"`
	Status    bool   `json:"status"`
}

// PaymentStatusConfirmed is the type of PaymentStatusEvent sent on confirmation.
const PaymentStatusConfirmed = "payment.confirmed"

// EnrollmentMailJob is queued when a payment is confirmed; the mail worker
// resolves the recipient and course before sending.
type EnrollmentMailJob struct {
	PaymentID int64 `json:"payment_id"`
	UserID    int64 `json:"user_id"`
	CourseID  int64 `json:"course_id"`
}
