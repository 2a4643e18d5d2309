package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	qport "github.com/archosan/realtime-chat-v2/internal/infrastructure/queue/port"
)

// ---------- users ----------

type memUsers struct {
	ids []string
	err error
}

func (m *memUsers) ListIDs(context.Context) ([]string, error) {
	return m.ids, m.err
}

// ---------- conversations ----------

type memConvs struct {
	mu      sync.Mutex
	byPair  map[string]*domain.Conversation
	nextID  int
	findErr error
}

func newMemConvs() *memConvs {
	return &memConvs{byPair: make(map[string]*domain.Conversation)}
}

func (m *memConvs) FindOrCreate(_ context.Context, userA, userB string) (*domain.Conversation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	low, high, err := domain.PairKey(userA, userB)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := low + "|" + high
	if c, ok := m.byPair[key]; ok {
		out := *c
		return &out, nil
	}
	m.nextID++
	c := &domain.Conversation{
		ID:        fmt.Sprintf("conv-%d", m.nextID),
		UserLow:   low,
		UserHigh:  high,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.byPair[key] = c
	out := *c
	return &out, nil
}

func (m *memConvs) SetLastMessage(_ context.Context, conversationID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byPair {
		if c.ID == conversationID {
			id := messageID
			c.LastMessageID = &id
			return nil
		}
	}
	return port.ErrNotFound
}

func (m *memConvs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPair)
}

// ---------- messages ----------

type memMsgs struct {
	mu             sync.Mutex
	byID           map[string]*domain.Message
	nextID         int
	saveErr        error
	addReaderCalls int
}

func newMemMsgs() *memMsgs {
	return &memMsgs{byID: make(map[string]*domain.Message)}
}

func (m *memMsgs) Save(_ context.Context, msg *domain.Message) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = fmt.Sprintf("msg-%d", m.nextID)
	stored := *msg
	stored.ReadBy = append([]string(nil), msg.ReadBy...)
	m.byID[msg.ID] = &stored
	return nil
}

func (m *memMsgs) FindByID(_ context.Context, id string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.byID[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	out := *msg
	out.ReadBy = append([]string(nil), msg.ReadBy...)
	return &out, nil
}

func (m *memMsgs) AddReader(_ context.Context, messageID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addReaderCalls++
	if msg, ok := m.byID[messageID]; ok {
		msg.MarkRead(userID)
	}
	return nil
}

func (m *memMsgs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// ---------- auto messages ----------

type memAutoMsgs struct {
	mu      sync.Mutex
	byID    map[string]*domain.AutoMessage
	nextID  int
	bulkErr error
}

func newMemAutoMsgs() *memAutoMsgs {
	return &memAutoMsgs{byID: make(map[string]*domain.AutoMessage)}
}

func (m *memAutoMsgs) add(am domain.AutoMessage) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	am.ID = fmt.Sprintf("auto-%d", m.nextID)
	m.byID[am.ID] = &am
	return am.ID
}

func (m *memAutoMsgs) BulkCreate(_ context.Context, msgs []domain.AutoMessage) error {
	if m.bulkErr != nil {
		return m.bulkErr
	}
	for _, am := range msgs {
		m.add(am)
	}
	return nil
}

func (m *memAutoMsgs) FindByID(_ context.Context, id string) (*domain.AutoMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	am, ok := m.byID[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	out := *am
	return &out, nil
}

func (m *memAutoMsgs) MarkDueQueued(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched int64
	for _, am := range m.byID {
		if am.Status == domain.StatusPending && !am.SendDate.After(now) {
			am.Status = domain.StatusQueued
			matched++
		}
	}
	return matched, nil
}

func (m *memAutoMsgs) ListQueuedDue(_ context.Context, now time.Time) ([]domain.AutoMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []domain.AutoMessage
	for _, am := range m.byID {
		if am.Status == domain.StatusQueued && !am.SendDate.After(now) {
			due = append(due, *am)
		}
	}
	return due, nil
}

func (m *memAutoMsgs) SetStatus(_ context.Context, id string, status domain.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	am, ok := m.byID[id]
	if !ok {
		return port.ErrNotFound
	}
	am.Status = status
	return nil
}

func (m *memAutoMsgs) statusOf(id string) domain.DeliveryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

func (m *memAutoMsgs) all() []domain.AutoMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AutoMessage, 0, len(m.byID))
	for _, am := range m.byID {
		out = append(out, *am)
	}
	return out
}

// ---------- queue client ----------

type fakeQueue struct {
	mu       sync.Mutex
	pingErr  error
	failIDs  map[string]error
	enqueued []qport.Task
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{failIDs: make(map[string]error)}
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, _ ...qport.EnqueueOption) (string, error) {
	var payload struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(t.Payload, &payload)
	if err, ok := q.failIDs[payload.ID]; ok {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, t)
	return payload.ID, nil
}

func (q *fakeQueue) Ping(context.Context) error { return q.pingErr }
func (q *fakeQueue) Close() error               { return nil }

func (q *fakeQueue) enqueuedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ids []string
	for _, t := range q.enqueued {
		var payload struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(t.Payload, &payload)
		ids = append(ids, payload.ID)
	}
	return ids
}

// ---------- fanout ----------

type fanoutCall struct {
	room string
	ev   MessageReceivedEvent
}

type fakeFanout struct {
	mu    sync.Mutex
	calls []fanoutCall
	err   error
}

func (f *fakeFanout) MessageReceived(room string, ev MessageReceivedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fanoutCall{room: room, ev: ev})
	return nil
}
