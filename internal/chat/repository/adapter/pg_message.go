package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ port.MessageRepository = (*PgMessageRepository)(nil)

// Save persists the message and its initial read set in one transaction.
// The DB generates the id; it is written back to m.
func (r *PgMessageRepository) Save(ctx context.Context, m *domain.Message) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES (gen_random_uuid(), $1::uuid, $2::uuid, $3, $4)
		RETURNING id::text
	`, m.ConversationID, m.SenderID, m.Content, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return err
	}

	for _, reader := range m.ReadBy {
		if _, err := tx.Exec(ctx, `
			INSERT INTO message_reads (message_id, reader_id)
			VALUES ($1::uuid, $2::uuid)
			ON CONFLICT (message_id, reader_id) DO NOTHING
		`, m.ID, reader); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PgMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	var m domain.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at
		FROM messages
		WHERE id = $1::uuid
	`, id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT reader_id::text FROM message_reads WHERE message_id = $1::uuid
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reader string
		if err := rows.Scan(&reader); err != nil {
			return nil, err
		}
		m.ReadBy = append(m.ReadBy, reader)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &m, nil
}

// AddReader grows the read set. Inserting an existing member is a no-op.
func (r *PgMessageRepository) AddReader(ctx context.Context, messageID, userID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO message_reads (message_id, reader_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (message_id, reader_id) DO NOTHING
	`, messageID, userID)
	return err
}
