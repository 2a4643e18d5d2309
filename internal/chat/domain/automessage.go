package domain

import "time"

// DeliveryStatus is the state machine of a scheduled delivery:
// PENDING -> QUEUED -> SENT. SENT is terminal; the only backward edge is
// the dispatcher's QUEUED -> PENDING compensation after a failed publish.
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "PENDING"
	StatusQueued  DeliveryStatus = "QUEUED"
	StatusSent    DeliveryStatus = "SENT"
)

// AutoMessage is a system-generated message scheduled for future delivery.
// Created by the planner, promoted by the dispatcher, materialized into a
// Conversation/Message by the consumer.
type AutoMessage struct {
	ID         string         `db:"id"`
	SenderID   string         `db:"sender_id"`
	ReceiverID string         `db:"receiver_id"`
	Content    string         `db:"content"`
	SendDate   time.Time      `db:"send_date"`
	Status     DeliveryStatus `db:"status"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}
