package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
)

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

var _ port.ConversationRepository = (*PgConversationRepository)(nil)

// FindOrCreate returns the single conversation for the unordered pair,
// creating it lazily on first contact. The UNIQUE(user_low, user_high)
// constraint makes concurrent first contacts converge on one row; the
// no-op DO UPDATE lets the insert return the existing row instead of
// failing.
func (r *PgConversationRepository) FindOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	low, high, err := domain.PairKey(userA, userB)
	if err != nil {
		return nil, err
	}

	var c domain.Conversation
	err = r.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, user_low, user_high, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, now(), now())
		ON CONFLICT (user_low, user_high)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id::text, user_low::text, user_high::text, last_message_id::text, created_at, updated_at
	`, low, high).Scan(&c.ID, &c.UserLow, &c.UserHigh, &c.LastMessageID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetLastMessage appends the message reference to the conversation: the
// message row itself is the ordered sequence entry, this updates the head
// pointer.
func (r *PgConversationRepository) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgConversationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET last_message_id = $2::uuid, updated_at = now()
		WHERE id = $1::uuid
	`, conversationID, messageID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
