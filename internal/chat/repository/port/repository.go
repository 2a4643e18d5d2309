package port

import (
	"context"
	"errors"
	"time"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("repository: not found")

// UserRepository exposes the slice of the user store this subsystem needs.
// Account CRUD lives in another service.
type UserRepository interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// ConversationRepository persists unordered participant pairs. FindOrCreate
// must uphold the invariant that at most one conversation exists per pair.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID, messageID string) error
}

// MessageRepository persists messages and their read sets.
type MessageRepository interface {
	Save(ctx context.Context, m *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	AddReader(ctx context.Context, messageID, userID string) error
}

// AutoMessageRepository persists scheduled deliveries and their status
// transitions.
type AutoMessageRepository interface {
	BulkCreate(ctx context.Context, msgs []domain.AutoMessage) error
	FindByID(ctx context.Context, id string) (*domain.AutoMessage, error)

	// MarkDueQueued atomically flips every PENDING row with send_date <= now
	// to QUEUED and returns how many rows matched. This single conditional
	// update is the dispatcher's only guard against double-publishing.
	MarkDueQueued(ctx context.Context, now time.Time) (int64, error)

	// ListQueuedDue returns every QUEUED row with send_date <= now.
	ListQueuedDue(ctx context.Context, now time.Time) ([]domain.AutoMessage, error)

	SetStatus(ctx context.Context, id string, status domain.DeliveryStatus) error
}
