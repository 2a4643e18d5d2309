package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
)

const maxDelayMinutes = 10

// PlanMessagesUseCase pairs active users at random and schedules one
// future-dated delivery per pair. Runs are independent: consecutive runs
// may schedule duplicate pairs, which is accepted behavior.
type PlanMessagesUseCase struct {
	Users    port.UserRepository
	AutoMsgs port.AutoMessageRepository
	Samples  []string
	Now      func() time.Time
	Log      zerolog.Logger
}

func NewPlanMessagesUseCase(users port.UserRepository, autoMsgs port.AutoMessageRepository, log zerolog.Logger) *PlanMessagesUseCase {
	return &PlanMessagesUseCase{
		Users:    users,
		AutoMsgs: autoMsgs,
		Samples:  SampleMessages,
		Now:      time.Now,
		Log:      log,
	}
}

// Execute creates the scheduled deliveries and returns how many were
// planned. With an odd user count the trailing user is dropped for this
// run; fewer than two users is a no-op.
func (uc *PlanMessagesUseCase) Execute(ctx context.Context) (int, error) {
	ids, err := uc.Users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(ids) < 2 {
		uc.Log.Info().Int("users", len(ids)).Msg("not enough users for message planning")
		return 0, nil
	}

	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	now := uc.Now()
	var planned []domain.AutoMessage
	for i := 0; i+1 < len(shuffled); i += 2 {
		delay := time.Duration(rand.Intn(maxDelayMinutes)+1) * time.Minute
		planned = append(planned, domain.AutoMessage{
			SenderID:   shuffled[i],
			ReceiverID: shuffled[i+1],
			Content:    uc.Samples[rand.Intn(len(uc.Samples))],
			SendDate:   now.Add(delay),
			Status:     domain.StatusPending,
		})
	}

	if err := uc.AutoMsgs.BulkCreate(ctx, planned); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.DeliveriesPlanned.Add(float64(len(planned)))
	uc.Log.Info().Int("planned", len(planned)).Msg("auto messages created")
	return len(planned), nil
}
