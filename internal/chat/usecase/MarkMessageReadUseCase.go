package usecase

import (
	"context"
	"fmt"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
)

// MarkMessageReadUseCase grows a message's read set. The operation is
// idempotent: marking a message read twice by the same user writes to the
// store at most once.
type MarkMessageReadUseCase struct {
	Msgs port.MessageRepository
}

func NewMarkMessageReadUseCase(msgs port.MessageRepository) *MarkMessageReadUseCase {
	return &MarkMessageReadUseCase{Msgs: msgs}
}

// Execute returns the message and whether a persistence write happened.
func (uc *MarkMessageReadUseCase) Execute(ctx context.Context, messageID, readerID string) (*domain.Message, bool, error) {
	if messageID == "" || readerID == "" {
		return nil, false, fmt.Errorf("messageId and readerId are required")
	}

	msg, err := uc.Msgs.FindByID(ctx, messageID)
	if err != nil {
		if err == port.ErrNotFound {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !msg.MarkRead(readerID) {
		return msg, false, nil
	}

	if err := uc.Msgs.AddReader(ctx, messageID, readerID); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msg, true, nil
}
