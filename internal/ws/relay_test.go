package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func setupRoom(t *testing.T) (*RelayHandler, *fakeConn, *fakeConn, ConnInfo, ConnInfo) {
	t.Helper()
	hub := NewHub()
	handler := NewRelayHandler(hub)

	x := &fakeConn{}
	y := &fakeConn{}
	infoX := ConnInfo{ConnID: "conn-x", Username: "x"}
	infoY := ConnInfo{ConnID: "conn-y", Username: "y"}
	hub.Add(x, infoX)
	hub.Add(y, infoY)
	return handler, x, y, infoX, infoY
}

func TestDispatchTypingReachesOthersOnly(t *testing.T) {
	handler, x, y, infoX, _ := setupRoom(t)

	handler.dispatch(models.RoomEvent{Event: EventTyping}, infoX)

	assert.Empty(t, x.events(t))
	events := y.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventTyping, events[0].Event)
	assert.Equal(t, "x", events[0].Username)
}

func TestDispatchStopTypingCarriesSenderName(t *testing.T) {
	handler, _, y, infoX, _ := setupRoom(t)

	handler.dispatch(models.RoomEvent{Event: EventStopTyping}, infoX)

	events := y.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventStopTyping, events[0].Event)
	assert.Equal(t, "x", events[0].Username)
}

func TestDispatchNewMessageRelaysPayloadVerbatim(t *testing.T) {
	handler, x, y, infoX, _ := setupRoom(t)

	payload := json.RawMessage(`{"text":"hi room","anything":42}`)
	handler.dispatch(models.RoomEvent{Event: EventNewMessage, Data: payload}, infoX)

	assert.Empty(t, x.events(t))
	events := y.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewMessage, events[0].Event)
	assert.JSONEq(t, string(payload), string(events[0].Data))
}

func TestDispatchAddUser(t *testing.T) {
	handler, x, y, infoX, _ := setupRoom(t)

	handler.dispatch(models.RoomEvent{Event: EventAddUser}, infoX)

	senderEvents := x.events(t)
	require.Len(t, senderEvents, 1)
	assert.Equal(t, EventLogin, senderEvents[0].Event)
	assert.Equal(t, "x", senderEvents[0].Username)

	otherEvents := y.events(t)
	require.Len(t, otherEvents, 1)
	assert.Equal(t, EventUserJoined, otherEvents[0].Event)
	assert.JSONEq(t, `"x is connected"`, string(otherEvents[0].Data))
}

func TestDispatchIgnoresUnknownEvents(t *testing.T) {
	handler, x, y, infoX, _ := setupRoom(t)

	handler.dispatch(models.RoomEvent{Event: "presence"}, infoX)

	assert.Empty(t, x.events(t))
	assert.Empty(t, y.events(t))
}
