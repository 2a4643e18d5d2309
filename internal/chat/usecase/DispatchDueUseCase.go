package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	"github.com/archosan/realtime-chat-v2/internal/chat/task"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
	qport "github.com/archosan/realtime-chat-v2/internal/infrastructure/queue/port"
)

// DispatchDueUseCase promotes due deliveries PENDING -> QUEUED and publishes
// one broker item per row. The bulk conditional update is the only guard
// against double-publishing by overlapping runs.
type DispatchDueUseCase struct {
	AutoMsgs  port.AutoMessageRepository
	Queue     qport.Client
	QueueName string
	MaxRetry  int
	Now       func() time.Time
	Log       zerolog.Logger
}

func NewDispatchDueUseCase(autoMsgs port.AutoMessageRepository, queue qport.Client, queueName string, maxRetry int, log zerolog.Logger) *DispatchDueUseCase {
	return &DispatchDueUseCase{
		AutoMsgs:  autoMsgs,
		Queue:     queue,
		QueueName: queueName,
		MaxRetry:  maxRetry,
		Now:       time.Now,
		Log:       log,
	}
}

// Execute runs one dispatch pass. An unreachable broker aborts before any
// status mutation (fail-closed). A per-row publish failure compensates only
// that row back to PENDING so it is retried next tick.
func (uc *DispatchDueUseCase) Execute(ctx context.Context) error {
	if err := uc.Queue.Ping(ctx); err != nil {
		return fmt.Errorf("broker unreachable, aborting dispatch: %w", err)
	}

	now := uc.Now()
	matched, err := uc.AutoMsgs.MarkDueQueued(ctx, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if matched == 0 {
		uc.Log.Debug().Msg("no pending deliveries to queue")
		return nil
	}
	uc.Log.Info().Int64("matched", matched).Msg("deliveries promoted to queued")

	// Superset re-read: rows queued by this exact run plus any stragglers
	// from a previous run that updated but never published.
	due, err := uc.AutoMsgs.ListQueuedDue(ctx, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for _, m := range due {
		if err := uc.publish(ctx, m); err != nil {
			metrics.DeliveryPublishFailures.Inc()
			uc.Log.Error().Err(err).Str("delivery_id", m.ID).Msg("publish failed, reverting to pending")
			if revertErr := uc.AutoMsgs.SetStatus(ctx, m.ID, domain.StatusPending); revertErr != nil {
				uc.Log.Error().Err(revertErr).Str("delivery_id", m.ID).Msg("failed to revert delivery status")
			}
			continue
		}
		metrics.DeliveriesDispatched.Inc()
	}
	return nil
}

func (uc *DispatchDueUseCase) publish(ctx context.Context, m domain.AutoMessage) error {
	t, err := task.NewDeliveryTask(m)
	if err != nil {
		return err
	}
	_, err = uc.Queue.Enqueue(ctx, t, qport.EnqueueOption{
		Queue:    uc.QueueName,
		MaxRetry: uc.MaxRetry,
	})
	return err
}
