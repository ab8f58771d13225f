package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-relay/internal/models"
	"chat-relay/internal/observability"
	"chat-relay/internal/repositories"
)

// User-facing error strings emitted over the error event.
const (
	errEmptyFields    = "username and content must not be empty"
	errContentTooLong = "content must not exceed 500 characters"
	errSendFailed     = "failed to send message"
	errBadPayload     = "invalid message payload"
)

// RelayHandler mediates between websocket sessions and the message store. It
// is the sole writer-trigger and sole broadcaster.
type RelayHandler struct {
	hub          *Hub
	messageRepo  repositories.MessageRepository
	window       time.Duration
	historyLimit int

	// insertMu serializes insert+broadcast so broadcast order always matches
	// id assignment order.
	insertMu sync.Mutex
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(hub *Hub, messageRepo repositories.MessageRepository, window time.Duration, historyLimit int) *RelayHandler {
	return &RelayHandler{
		hub:          hub,
		messageRepo:  messageRepo,
		window:       window,
		historyLimit: historyLimit,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, delivers the history snapshot and runs the
// session's read loop.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-relay/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn)
	h.hub.Add(client, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload("ws_connect", info, ""),
	}, observability.BuildHeaders(requestID, traceID))

	h.sendSnapshot(context.Background(), client, info)

	go func() {
		var closeReason string
		defer func() {
			h.hub.Remove(client)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			_ = observability.PublishEvent(context.Background(), "ws_events.relay", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   lifecyclePayload("ws_disconnect", info, closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
			h.handleInbound(context.Background(), client, info, raw)
		}
	}()
}

// sendSnapshot unicasts the bounded recent history to one session, oldest
// first. A store failure leaves the session connected with an empty view.
func (h *RelayHandler) sendSnapshot(ctx context.Context, sess SessionHandle, info ConnInfo) {
	msgs, err := h.messageRepo.Recent(ctx, h.window, h.historyLimit)
	if err != nil {
		log.Printf("history query failed conn_id=%s: %v", info.ConnID, err)
		return
	}

	event := models.RelayEvent{
		Type:    models.EventChatHistory,
		History: models.HistoryView(msgs),
	}
	if err := sess.Send(event); err != nil {
		log.Printf("history delivery failed conn_id=%s: %v", info.ConnID, err)
	}
}

// handleInbound validates one inbound chat message, stores it and broadcasts
// the stored record to every session. Validation and persistence failures are
// reported to the originating session only.
func (h *RelayHandler) handleInbound(ctx context.Context, sess SessionHandle, info ConnInfo, raw []byte) {
	var in models.InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		observability.IncMessageRejected("bad_payload")
		h.sendError(sess, info, errBadPayload)
		return
	}

	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Content) == "" {
		observability.IncMessageRejected("empty")
		h.sendError(sess, info, errEmptyFields)
		return
	}

	// Over-length content is rejected outright; the store's own truncation is
	// only a second bound for input that passed this check.
	if utf8.RuneCountInString(in.Content) > repositories.MaxContentLen {
		observability.IncMessageRejected("too_long")
		h.sendError(sess, info, errContentTooLong)
		return
	}

	h.insertMu.Lock()
	defer h.insertMu.Unlock()

	msg, err := h.messageRepo.Insert(ctx, in.Username, in.Content, info.IP)
	if err != nil {
		log.Printf("message insert failed conn_id=%s: %v", info.ConnID, err)
		observability.IncMessageRejected("persistence")
		h.sendError(sess, info, errSendFailed)
		return
	}

	observability.IncMessageStored()
	h.hub.Broadcast(models.RelayEvent{
		Type:    models.EventChatMessage,
		Message: &msg,
	})
}

func (h *RelayHandler) sendError(sess SessionHandle, info ConnInfo, text string) {
	event := models.RelayEvent{Type: models.EventError, Error: text}
	if err := sess.Send(event); err != nil {
		log.Printf("error delivery failed conn_id=%s: %v", info.ConnID, err)
	}
}

func lifecyclePayload(event string, info ConnInfo, reason string) map[string]interface{} {
	durationMS := int64(0)
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"ip":          info.IP,
			"duration_ms": durationMS,
			"reason":      reason,
		},
	}
}
