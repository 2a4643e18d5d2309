package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyMessage  = errors.New("chat: message content must not be empty")
	ErrMissingSender = errors.New("chat: conversation_id and sender_id are required")
)

// Message is an immutable log entry in a conversation. The only mutation
// allowed after creation is growing the ReadBy set, which always contains
// the sender.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	ReadBy         []string  `db:"-"`
}

func NewMessage(conversationID, senderID, content string) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, ErrMissingSender
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		ReadBy:         []string{senderID},
	}, nil
}

// WasReadBy reports whether userID is already in the read set.
func (m *Message) WasReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// MarkRead adds userID to the read set. Adding an existing member is a
// no-op; the return value tells callers whether a persistence write is due.
func (m *Message) MarkRead(userID string) bool {
	if userID == "" || m.WasReadBy(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}
