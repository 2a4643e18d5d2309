// Package task defines the broker work item for scheduled deliveries and
// binds its handler to the queue server.
package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	qport "github.com/archosan/realtime-chat-v2/internal/infrastructure/queue/port"
)

// DeliveryTaskType is the queue task name for processing a scheduled delivery.
const DeliveryTaskType = "delivery:process"

// DeliveryPayload is the JSON snapshot of the AutoMessage row at publish
// time. Consumers must re-fetch the authoritative row by ID and never trust
// the snapshot's status.
type DeliveryPayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender"`
	ReceiverID string    `json:"receiver"`
	Content    string    `json:"content"`
	SendDate   time.Time `json:"sendDate"`
	Status     string    `json:"status"`
}

// NewDeliveryTask serializes an AutoMessage into a broker work item.
func NewDeliveryTask(m domain.AutoMessage) (qport.Task, error) {
	b, err := json.Marshal(DeliveryPayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		SendDate:   m.SendDate,
		Status:     string(m.Status),
	})
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: DeliveryTaskType, Payload: b}, nil
}

// Processor materializes a delivery id into chat data.
type Processor interface {
	Execute(ctx context.Context, deliveryID string) error
}

// RegisterDeliveryHandler binds the delivery handler to the queue server.
// A handler error is the nack path: the broker redelivers until the retry
// budget is exhausted and the task is archived.
func RegisterDeliveryHandler(srv qport.Server, proc Processor, log zerolog.Logger) {
	srv.Register(DeliveryTaskType, func(ctx context.Context, t qport.Task) error {
		var p DeliveryPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}
		log.Info().Str("delivery_id", p.ID).Msg("delivery received from broker")

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return proc.Execute(ctx, p.ID)
	})
}
