package handler

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boulder-editor/internal/catalogue"
	"boulder-editor/internal/repository"
	"boulder-editor/internal/service"
	"boulder-editor/internal/websocket"
)

func newMessageHandler(t *testing.T) (*WebSocketMessageHandler, *service.SessionService, *service.CollectionService) {
	t.Helper()
	provider := catalogue.NewProvider(catalogue.Source{})
	_, err := provider.Load(strings.NewReader(holdsDoc), "test")
	require.NoError(t, err)

	manager := websocket.NewManager(0, time.Second, time.Minute, 50*time.Second, 4096)
	collection := service.NewCollectionService(repository.NewMemoryBlobStore(), "test")
	session := service.NewSessionService(provider, collection, manager)
	return NewWebSocketMessageHandler(session, manager), session, collection
}

func message(t *testing.T, msgType websocket.MessageType, payload string) *websocket.Message {
	t.Helper()
	msg := &websocket.Message{Type: msgType}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	return msg
}

func TestWebSocketMessageHandler_Gestures(t *testing.T) {
	h, session, collection := newMessageHandler(t)
	client := &websocket.Client{ID: "c1"}

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeHoldTapped, `{"hold_id": `+id+`}`)))
	}
	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeMarkStart, `{"hold_id": "1"}`)))
	// No hold id: acts on the selection, hold 3.
	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeMarkFinish, `{}`)))

	snap := session.Snapshot()
	require.Len(t, snap.Holds, 3)
	assert.True(t, snap.Boulder.IsStart("1"))
	assert.True(t, snap.Boulder.IsFinish("3"))

	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeSaveBoulder, "")))
	assert.Equal(t, 1, collection.Len())
	id := snap.Boulder.ID

	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeNewBoulder, "")))
	assert.NotEqual(t, id, session.Snapshot().Boulder.ID)

	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeLoadBoulder, `{"id": "`+id+`"}`)))
	assert.Equal(t, id, session.Snapshot().Boulder.ID)

	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeRemoveHold, `{"hold_id": "2"}`)))
	assert.Len(t, session.Snapshot().Holds, 2)
}

func TestWebSocketMessageHandler_Failures(t *testing.T) {
	h, _, _ := newMessageHandler(t)
	client := &websocket.Client{ID: "c1"}

	assert.Error(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeHoldTapped, `{"hold_id": "99"}`)))
	assert.Error(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeHoldTapped, `{}`)))
	assert.Error(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeSaveBoulder, "")))
	assert.Error(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeLoadBoulder, `{"id": "nope"}`)))
	assert.NoError(t, h.HandleWebSocketMessage(client, message(t, "dance", "")))
	assert.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypePing, "")))
}

func TestWebSocketMessageHandler_ValidatesPayloads(t *testing.T) {
	h, session, collection := newMessageHandler(t)
	client := &websocket.Client{ID: "c1"}
	require.NoError(t, h.HandleWebSocketMessage(client, message(t, websocket.TypeHoldTapped, `{"hold_id": "1"}`)))
	before := session.Snapshot()

	tests := []struct {
		name    string
		msgType websocket.MessageType
		payload string
	}{
		{"tap without hold", websocket.TypeHoldTapped, `{}`},
		{"tap with empty hold", websocket.TypeHoldTapped, `{"hold_id": ""}`},
		{"tap without payload", websocket.TypeHoldTapped, ""},
		{"load without id", websocket.TypeLoadBoulder, `{"id": ""}`},
		{"load without payload", websocket.TypeLoadBoulder, ""},
		{"mark with oversized hold", websocket.TypeMarkStart, `{"hold_id": "` + strings.Repeat("9", 200) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.HandleWebSocketMessage(client, message(t, tt.msgType, tt.payload))
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
		})
	}

	after := session.Snapshot()
	assert.Equal(t, before.Boulder.ID, after.Boulder.ID, "rejected payloads leave the session alone")
	assert.Len(t, after.Holds, 1)
	assert.Equal(t, 0, collection.Len())
}
