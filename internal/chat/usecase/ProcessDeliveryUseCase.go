package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
)

// ProcessDeliveryUseCase is the consumer core: it materializes a queued
// delivery into a conversation + message, fans the event out to the
// canonical room, and finalizes the delivery status. Any error propagates
// to the queue handler, which nacks for redelivery.
type ProcessDeliveryUseCase struct {
	AutoMsgs port.AutoMessageRepository
	Send     *SendMessageUseCase
	Fanout   Fanout
	Log      zerolog.Logger
}

func NewProcessDeliveryUseCase(autoMsgs port.AutoMessageRepository, send *SendMessageUseCase, fanout Fanout, log zerolog.Logger) *ProcessDeliveryUseCase {
	return &ProcessDeliveryUseCase{AutoMsgs: autoMsgs, Send: send, Fanout: fanout, Log: log}
}

func (uc *ProcessDeliveryUseCase) Execute(ctx context.Context, deliveryID string) error {
	// Re-fetch the authoritative row; the queued payload's status is stale
	// by definition.
	am, err := uc.AutoMsgs.FindByID(ctx, deliveryID)
	if err != nil {
		if err == port.ErrNotFound {
			return fmt.Errorf("delivery %s not found", deliveryID)
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Idempotency guard against broker-level redelivery (e.g. a crash
	// after processing but before the ack).
	if am.Status == domain.StatusSent {
		metrics.DeliveriesDuplicate.Inc()
		uc.Log.Warn().Str("delivery_id", am.ID).Msg("delivery already processed, skipping")
		return nil
	}

	res, err := uc.Send.Execute(ctx, SendMessageInput{
		SenderID:   am.SenderID,
		ReceiverID: am.ReceiverID,
		Content:    am.Content,
		Source:     "consumer",
	})
	if err != nil {
		return err
	}

	room := domain.RoomName(am.SenderID, am.ReceiverID)
	if err := uc.Fanout.MessageReceived(room, MessageReceivedEvent{
		Message:        res.Message.Content,
		SenderID:       res.Message.SenderID,
		MessageID:      res.Message.ID,
		ConversationID: res.Conversation.ID,
	}); err != nil {
		return fmt.Errorf("fanout to room %s: %w", room, err)
	}
	uc.Log.Info().Str("room", room).Str("delivery_id", am.ID).Msg("emitted message_received")

	if err := uc.AutoMsgs.SetStatus(ctx, am.ID, domain.StatusSent); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.DeliveriesProcessed.Inc()
	return nil
}
