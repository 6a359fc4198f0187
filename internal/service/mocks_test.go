package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/websocket"
)

var errDiskFull = errors.New("disk full")

type mockBlobStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	failErr error
	loadErr error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{data: make(map[string][]byte)}
}

func (m *mockBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *mockBlobStore) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failErr != nil {
		return m.failErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *mockBlobStore) Close() error { return nil }

type mockHolds struct {
	cat *domain.Catalogue
}

func (m *mockHolds) Catalogue() *domain.Catalogue { return m.cat }

type mockBroadcaster struct {
	mu   sync.Mutex
	msgs []*websocket.Message
}

func (m *mockBroadcaster) Broadcast(msg *websocket.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockBroadcaster) types() []websocket.MessageType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]websocket.MessageType, len(m.msgs))
	for i, msg := range m.msgs {
		out[i] = msg.Type
	}
	return out
}

func (m *mockBroadcaster) count(t websocket.MessageType) int {
	n := 0
	for _, got := range m.types() {
		if got == t {
			n++
		}
	}
	return n
}

const testKey = "boulderApp_boulders"

var testNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testCatalogue(ids ...domain.HoldID) *domain.Catalogue {
	holds := make([]domain.Hold, len(ids))
	for i, id := range ids {
		holds[i] = domain.Hold{ID: id, HoldType: "crimp"}
	}
	return domain.NewCatalogue(domain.ImageDimensions{Width: 1000, Height: 750}, holds, nil)
}

func storedBoulder(id, name string, created time.Time, holds ...domain.HoldID) *domain.Boulder {
	b := &domain.Boulder{
		ID:          id,
		Name:        name,
		Grade:       "V2",
		Style:       "Slab",
		Moves:       []domain.Move{},
		StartHolds:  []domain.HoldID{},
		FinishHolds: []domain.HoldID{},
		CreatedAt:   created,
	}
	for _, h := range holds {
		b.AppendHold(h)
	}
	if len(holds) > 0 {
		b.MarkStart(holds[0])
		b.MarkFinish(holds[len(holds)-1])
	}
	return b
}
