package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/metrics"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager is the hub every connected editor client registers with. All
// clients share the single editing session, so every broadcast goes to all
// of them.
type Manager struct {
	clients        map[string]*Client
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxClients     int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	messageHandler MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

// ConnectHandler is optionally implemented by a MessageHandler that wants
// to greet clients once they are registered.
type ConnectHandler interface {
	HandleWebSocketConnect(client *Client)
}

func NewManager(maxClients int, writeWait, pongWait, pingPeriod time.Duration, maxMessageSize int64) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxClients:     maxClients,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		maxMessageSize: maxMessageSize,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serialises registration and inbound messages until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return

		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	if m.maxClients > 0 && len(m.clients) >= m.maxClients {
		m.clientsMutex.Unlock()
		logrus.WithField("client_id", client.ID).Warn("Max WebSocket clients reached; rejecting connection")
		close(client.Send)
		return
	}
	m.clients[client.ID] = client
	count := len(m.clients)
	m.clientsMutex.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logrus.WithFields(logrus.Fields{
		"client_id": client.ID,
		"editor_id": client.EditorID,
	}).Info("WebSocket client registered")

	if h, ok := m.messageHandler.(ConnectHandler); ok {
		h.HandleWebSocketConnect(client)
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		metrics.WebSocketClients.Set(float64(len(m.clients)))
		logrus.WithField("client_id", client.ID).Info("WebSocket client unregistered")
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		delete(m.clients, id)
		close(client.Send)
	}
	metrics.WebSocketClients.Set(0)
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		logrus.WithField("client_id", clientMsg.Client.ID).WithError(err).Warn("Error unmarshaling message")
		m.sendError(clientMsg.Client, "bad_message", "message is not valid JSON")
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			logrus.WithFields(logrus.Fields{
				"client_id": clientMsg.Client.ID,
				"type":      msg.Type,
			}).WithError(err).Debug("Error handling message")
		}
	}
}

func (m *Manager) sendError(client *Client, code, message string) {
	msg, err := NewMessage(TypeError, &ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = m.SendToClient(client.ID, msg)
}

// Broadcast sends message to every client. A client whose buffer is full is
// dropped.
func (m *Manager) Broadcast(message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client
	m.clientsMutex.RLock()
	for _, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		logrus.WithField("client_id", client.ID).Warn("Client send buffer full, closing connection")
		go func(c *Client) { m.Unregister <- c }(client)
	}
	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		logrus.WithField("client_id", clientID).Warn("Client send buffer full")
	}

	return nil
}

func (m *Manager) ClientCount() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}
