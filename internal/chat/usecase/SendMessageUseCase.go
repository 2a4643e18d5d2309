package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/search"
)

// SendMessageInput carries the data needed to deliver a message between two
// users. Source labels the write path for metrics ("realtime" or "consumer").
type SendMessageInput struct {
	SenderID   string
	ReceiverID string
	Content    string
	Source     string
}

// SendMessageResult returns both the persisted message and the conversation
// it landed in (created lazily on first contact).
type SendMessageResult struct {
	Message      *domain.Message
	Conversation *domain.Conversation
}

// SendMessageUseCase is the single conversation/message write path, shared
// by the realtime gateway (synchronous sends) and the queue consumer
// (scheduled deliveries).
type SendMessageUseCase struct {
	Convs   port.ConversationRepository
	Msgs    port.MessageRepository
	Indexer search.Indexer
	Log     zerolog.Logger
}

func NewSendMessageUseCase(convs port.ConversationRepository, msgs port.MessageRepository, indexer search.Indexer, log zerolog.Logger) *SendMessageUseCase {
	if indexer == nil {
		indexer = search.NopIndexer{}
	}
	return &SendMessageUseCase{Convs: convs, Msgs: msgs, Indexer: indexer, Log: log}
}

// Execute finds or creates the conversation for the unordered pair, creates
// the message with readBy={sender}, and advances the conversation head.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	conv, err := uc.Convs.FindOrCreate(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		if err == domain.ErrSameParticipant || err == domain.ErrEmptyParticipant {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg, err := domain.NewMessage(conv.ID, in.SenderID, in.Content)
	if err != nil {
		return nil, err
	}

	if err := uc.Msgs.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := uc.Convs.SetLastMessage(ctx, conv.ID, msg.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	source := in.Source
	if source == "" {
		source = "realtime"
	}
	metrics.MessagesSent.WithLabelValues(source).Inc()

	uc.indexAsync(*msg)

	return &SendMessageResult{Message: msg, Conversation: conv}, nil
}

// indexAsync pushes the message to the search index without blocking the
// write path. Indexing failure is logged, never surfaced.
func (uc *SendMessageUseCase) indexAsync(msg domain.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := uc.Indexer.IndexMessage(ctx, search.MessageDocument{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		}); err != nil {
			uc.Log.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to index message")
		}
	}()
}
