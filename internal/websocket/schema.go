package websocket

import "github.com/stemsi/elearning-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSnapshot  Event = "snapshot"
	EventConfirmed Event = model.PaymentStatusConfirmed
	EventPong      Event = "pong"
)

// SnapshotResponse is sent once after the upgrade with the current state.
type SnapshotResponse struct {
	Event   Event              `json:"event"`
	Payment *model.PaymentView `json:"payment"`
}

// ConfirmedResponse relays a confirmation published for the payment.
type ConfirmedResponse struct {
	Event     Event `json:"event"`
	PaymentID int64 `json:"payment_id"`
	CourseID  int64 `json:"course_id"`
	Status    bool  `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
