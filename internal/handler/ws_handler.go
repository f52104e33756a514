package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/model"
	ws "github.com/stemsi/elearning-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// PaymentStatusFeed delivers the status events published for a payment.
// The returned channel only starts receiving once the call returns.
type PaymentStatusFeed interface {
	SubscribePaymentStatus(ctx context.Context, paymentID int64) (<-chan *redis.Message, func() error, error)
}

// WSHandler streams payment status changes to the paying user.
type WSHandler struct {
	feed           PaymentStatusFeed
	paymentService PaymentService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. With a nil feed only the initial
// snapshot is sent.
func NewWSHandler(feed PaymentStatusFeed, paymentService PaymentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		feed:           feed,
		paymentService: paymentService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// PaymentStatusStream godoc
// WS /ws/v1/payments/:id/status?token=
// Sends a snapshot of the payment, then every confirmation published for it.
func (h *WSHandler) PaymentStatusStream(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so strangers get a plain 404.
	snapshot, err := h.paymentService.GetPayment(c.Request.Context(), p, paymentID)
	if err != nil {
		fail(c, err, "Failed to load payment")
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int64("user_id", p.UserID).
		Int64("payment_id", paymentID).
		Logger()
	wsLog.Debug().Msg("Payment status client connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before the snapshot is taken: a confirmation published in
	// between then shows up in the snapshot, the feed, or both.
	var events <-chan *redis.Message
	if h.feed != nil {
		ch, closeFeed, err := h.feed.SubscribePaymentStatus(ctx, paymentID)
		if err != nil {
			wsLog.Warn().Err(err).Msg("Live payment updates unavailable")
		} else {
			defer closeFeed()
			events = ch

			snapshot, err = h.paymentService.GetPayment(ctx, p, paymentID)
			if err != nil {
				wsLog.Error().Err(err).Msg("Failed to refresh payment")
				_ = conn.WriteError("failed to load payment")
				return
			}
		}
	}

	if err := conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, Payment: snapshot}); err != nil {
		return
	}
	if events != nil {
		go h.relay(ctx, conn, events, wsLog)
	}

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var err error
		switch msg.Action {
		case ws.ActionPing:
			err = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			err = conn.WriteError("unknown action")
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}

// relay forwards published status events until ctx is done.
func (h *WSHandler) relay(ctx context.Context, conn *ws.Conn, ch <-chan *redis.Message, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event model.PaymentStatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("Malformed payment status event")
				continue
			}
			if err := conn.WriteTyped(ws.ConfirmedResponse{
				Event:     ws.Event(event.Type),
				PaymentID: event.PaymentID,
				CourseID:  event.CourseID,
				Status:    event.Status,
			}); err != nil {
				return
			}
		}
	}
}
