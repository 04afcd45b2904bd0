package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// Events understood by the relay. Incoming frames carry one of the client
// events; the relay answers with the server events.
const (
	EventHello      = "hello"
	EventAddUser    = "add user"
	EventLogin      = "login"
	EventUserJoined = "user joined"
	EventNewMessage = "new message"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
	EventUserLeft   = "user left"
)

const maxEventSize = 8 << 10

const routingKey = "ws_events.room"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var tracer trace.Tracer = otel.Tracer("messaging-service/ws")

// RelayHandler upgrades HTTP requests into room connections.
type RelayHandler struct {
	hub *Hub
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(hub *Hub) *RelayHandler {
	return &RelayHandler{hub: hub}
}

// Handle upgrades the connection, joins it to the shared room under the
// display name from the username query parameter and starts the read loop.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	username := c.Query("username")
	if username == "" {
		username = "anonymous"
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxEventSize)

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		Username:    username,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Add(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, routingKey, wsEnvelope("ws_connect", info, 0, ""), observability.BuildHeaders(info.RequestID, info.TraceID))

	// Greeting goes to the new connection only.
	h.hub.SendTo(info.ConnID, models.RoomEvent{Event: EventHello, Data: jsonString("connected")})

	go h.readLoop(context.WithoutCancel(ctx), conn, info)
}

func (h *RelayHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Remove(info.ConnID)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, routingKey, wsEnvelope("ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason), observability.BuildHeaders(info.RequestID, info.TraceID))

		h.hub.Broadcast(info.ConnID, models.RoomEvent{
			Event: EventUserLeft,
			Data:  jsonString(info.Username + " disconnected"),
		})
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.PublishEvent(ctx, routingKey, wsEnvelope("ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason), observability.BuildHeaders(info.RequestID, info.TraceID))
			}
			return
		}

		var event models.RoomEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		h.dispatch(event, info)
	}
}

// dispatch fans a client event out to the room. Every event is
// fire-and-forget: no acknowledgement, no persistence.
func (h *RelayHandler) dispatch(event models.RoomEvent, info ConnInfo) {
	switch event.Event {
	case EventAddUser:
		h.hub.SendTo(info.ConnID, models.RoomEvent{Event: EventLogin, Username: info.Username})
		h.hub.Broadcast(info.ConnID, models.RoomEvent{
			Event: EventUserJoined,
			Data:  jsonString(info.Username + " is connected"),
		})
	case EventNewMessage:
		// Relay the payload verbatim; this path is disjoint from the
		// persisted message store.
		h.hub.Broadcast(info.ConnID, models.RoomEvent{Event: EventNewMessage, Data: event.Data})
	case EventTyping:
		h.hub.Broadcast(info.ConnID, models.RoomEvent{Event: EventTyping, Username: info.Username})
	case EventStopTyping:
		h.hub.Broadcast(info.ConnID, models.RoomEvent{Event: EventStopTyping, Username: info.Username})
	default:
		return
	}
	observability.IncWSEvent(event.Event)
}

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func wsEnvelope(name string, info ConnInfo, durationMS int64, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"room":        "chatRoom",
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"username": info.Username,
				"ip":       info.IP,
			},
		},
	}
}
