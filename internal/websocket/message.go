package websocket

import (
	"encoding/json"
	"time"

	"boulder-editor/internal/domain"
)

type MessageType string

// Server to client.
const (
	TypeSessionState      MessageType = "session_state"
	TypeCollectionChanged MessageType = "collection_changed"
	TypeCatalogueLoaded   MessageType = "catalogue_loaded"
	TypeNotice            MessageType = "notice"
	TypePong              MessageType = "pong"
	TypeError             MessageType = "error"
)

// Client to server.
const (
	TypeHoldTapped  MessageType = "hold_tapped"
	TypeMarkStart   MessageType = "mark_start"
	TypeMarkFinish  MessageType = "mark_finish"
	TypeRemoveHold  MessageType = "remove_hold"
	TypeNewBoulder  MessageType = "new_boulder"
	TypeSaveBoulder MessageType = "save_boulder"
	TypeLoadBoulder MessageType = "load_boulder"
	TypePing        MessageType = "ping"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// HoldPayload carries the hold of a gesture. For mark and remove an empty
// hold id means the current selection.
type HoldPayload struct {
	HoldID domain.HoldID `json:"hold_id" validate:"max=128"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
