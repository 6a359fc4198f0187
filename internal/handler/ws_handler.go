package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/service"
	"boulder-editor/internal/websocket"
)

type WebSocketHandler struct {
	manager     *websocket.Manager
	authService *service.AuthService
	upgrader    ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, authService *service.AuthService, readBufferSize, writeBufferSize int) *WebSocketHandler {
	return &WebSocketHandler{
		manager:     manager,
		authService: authService,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	editorID := "anonymous"

	if h.authService != nil && h.authService.Enabled() {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			logrus.Warn("WebSocket connection without token")
			http.Error(w, "missing authorization token", http.StatusUnauthorized)
			return
		}

		claims, err := h.authService.ValidateToken(token)
		if err != nil {
			logrus.WithError(err).Warn("WebSocket token validation failed")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		editorID = claims.EditorID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}

	client := websocket.NewClient(uuid.New().String(), editorID, conn, h.manager)
	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler applies gestures received over the socket to the
// editing session. Results reach clients through the session broadcasts;
// failures are answered to the sender only.
type WebSocketMessageHandler struct {
	session  *service.SessionService
	manager  *websocket.Manager
	validate *validator.Validate
}

func NewWebSocketMessageHandler(session *service.SessionService, manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		session:  session,
		manager:  manager,
		validate: validator.New(),
	}
}

// HandleWebSocketConnect greets a new client with the current session.
func (h *WebSocketMessageHandler) HandleWebSocketConnect(client *websocket.Client) {
	h.send(client, websocket.TypeSessionState, h.session.Snapshot())
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeHoldTapped:
		var req domain.HoldGestureRequest
		if err := h.decode(msg, &req); err != nil {
			return h.fail(client, "bad_payload", err)
		}
		if _, err := h.session.TapHold(req.HoldID); err != nil {
			return h.fail(client, "tap_failed", err)
		}

	case websocket.TypeMarkStart, websocket.TypeMarkFinish, websocket.TypeRemoveHold:
		var payload websocket.HoldPayload
		if err := h.decode(msg, &payload); err != nil {
			return h.fail(client, "bad_payload", err)
		}
		h.gesture(msg.Type, payload.HoldID)

	case websocket.TypeNewBoulder:
		h.session.NewBoulder()

	case websocket.TypeSaveBoulder:
		if _, err := h.session.Save(context.Background()); err != nil {
			code := "save_failed"
			if ve, ok := domain.AsValidationError(err); ok {
				code = ve.Code
			}
			return h.fail(client, code, err)
		}

	case websocket.TypeLoadBoulder:
		var req domain.LoadBoulderRequest
		if err := h.decode(msg, &req); err != nil {
			return h.fail(client, "bad_payload", err)
		}
		if _, err := h.session.LoadBoulder(req.ID); err != nil {
			return h.fail(client, "load_failed", err)
		}

	case websocket.TypePing:
		h.send(client, websocket.TypePong, nil)

	default:
		logrus.WithField("type", msg.Type).Debug("Unknown WebSocket message type")
		h.send(client, websocket.TypeError, &websocket.ErrorPayload{
			Code:    "unknown_type",
			Message: "unknown message type: " + string(msg.Type),
		})
	}

	return nil
}

func (h *WebSocketMessageHandler) gesture(msgType websocket.MessageType, holdID domain.HoldID) {
	switch msgType {
	case websocket.TypeMarkStart:
		h.session.MarkStart(holdID)
	case websocket.TypeMarkFinish:
		h.session.MarkFinish(holdID)
	case websocket.TypeRemoveHold:
		h.session.RemoveHold(holdID)
	}
}

// decode unmarshals the payload into req and validates it.
func (h *WebSocketMessageHandler) decode(msg *websocket.Message, req interface{}) error {
	if err := msg.UnmarshalPayload(req); err != nil {
		return err
	}
	return h.validate.Struct(req)
}

func (h *WebSocketMessageHandler) fail(client *websocket.Client, code string, err error) error {
	h.send(client, websocket.TypeError, &websocket.ErrorPayload{Code: code, Message: err.Error()})
	return err
}

func (h *WebSocketMessageHandler) send(client *websocket.Client, msgType websocket.MessageType, payload interface{}) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode WebSocket message")
		return
	}
	if err := h.manager.SendToClient(client.ID, msg); err != nil {
		logrus.WithField("client_id", client.ID).WithError(err).Warn("Failed to send WebSocket message")
	}
}
