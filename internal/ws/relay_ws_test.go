package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func dialRoom(t *testing.T, serverURL, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?username=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.RoomEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.RoomEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func TestRelayOverWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	hub := NewHub()
	router.GET("/ws", NewRelayHandler(hub).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	x := dialRoom(t, srv.URL, "x")
	greeting := readEvent(t, x)
	assert.Equal(t, EventHello, greeting.Event)
	assert.JSONEq(t, `"connected"`, string(greeting.Data))

	y := dialRoom(t, srv.URL, "y")
	readEvent(t, y) // greeting

	// x announces itself: login back to x, joined notice to y.
	require.NoError(t, x.WriteJSON(models.RoomEvent{Event: EventAddUser}))
	login := readEvent(t, x)
	assert.Equal(t, EventLogin, login.Event)
	assert.Equal(t, "x", login.Username)
	joined := readEvent(t, y)
	assert.Equal(t, EventUserJoined, joined.Event)
	assert.JSONEq(t, `"x is connected"`, string(joined.Data))

	// x types: y sees the indicator, x does not get an echo.
	require.NoError(t, x.WriteJSON(models.RoomEvent{Event: EventTyping}))
	typing := readEvent(t, y)
	assert.Equal(t, EventTyping, typing.Event)
	assert.Equal(t, "x", typing.Username)

	require.NoError(t, x.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := x.ReadMessage()
	assert.Error(t, err, "sender must not receive its own typing indicator")
}

func TestRelayBroadcastsUserLeft(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	hub := NewHub()
	router.GET("/ws", NewRelayHandler(hub).Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	x := dialRoom(t, srv.URL, "x")
	readEvent(t, x) // greeting
	y := dialRoom(t, srv.URL, "y")
	readEvent(t, y) // greeting

	require.NoError(t, y.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	y.Close()

	left := readEvent(t, x)
	assert.Equal(t, EventUserLeft, left.Event)
	assert.JSONEq(t, `"y disconnected"`, string(left.Data))
}
