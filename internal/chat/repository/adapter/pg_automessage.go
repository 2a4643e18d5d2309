package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
)

type PgAutoMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgAutoMessageRepository(pool *pgxpool.Pool) *PgAutoMessageRepository {
	return &PgAutoMessageRepository{pool: pool}
}

var _ port.AutoMessageRepository = (*PgAutoMessageRepository)(nil)

func (r *PgAutoMessageRepository) BulkCreate(ctx context.Context, msgs []domain.AutoMessage) error {
	if r == nil || r.pool == nil {
		return errors.New("PgAutoMessageRepository: nil pool")
	}
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`
			INSERT INTO auto_messages (id, sender_id, receiver_id, content, send_date, status, created_at, updated_at)
			VALUES (gen_random_uuid(), $1::uuid, $2::uuid, $3, $4, $5, now(), now())
		`, m.SenderID, m.ReceiverID, m.Content, m.SendDate, m.Status)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range msgs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgAutoMessageRepository) FindByID(ctx context.Context, id string) (*domain.AutoMessage, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgAutoMessageRepository: nil pool")
	}
	var m domain.AutoMessage
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, sender_id::text, receiver_id::text, content, send_date, status, created_at, updated_at
		FROM auto_messages
		WHERE id = $1::uuid
	`, id).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SendDate, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgAutoMessageRepository) MarkDueQueued(ctx context.Context, now time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgAutoMessageRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE auto_messages
		SET status = $1, updated_at = now()
		WHERE status = $2 AND send_date <= $3
	`, domain.StatusQueued, domain.StatusPending, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgAutoMessageRepository) ListQueuedDue(ctx context.Context, now time.Time) ([]domain.AutoMessage, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgAutoMessageRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, sender_id::text, receiver_id::text, content, send_date, status, created_at, updated_at
		FROM auto_messages
		WHERE status = $1 AND send_date <= $2
		ORDER BY send_date ASC
	`, domain.StatusQueued, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.AutoMessage
	for rows.Next() {
		var m domain.AutoMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SendDate, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgAutoMessageRepository) SetStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	if r == nil || r.pool == nil {
		return errors.New("PgAutoMessageRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE auto_messages
		SET status = $2, updated_at = now()
		WHERE id = $1::uuid
	`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
