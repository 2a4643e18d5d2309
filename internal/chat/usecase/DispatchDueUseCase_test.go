package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
)

func newDispatchFixture(t *testing.T) (*DispatchDueUseCase, *memAutoMsgs, *fakeQueue, time.Time) {
	t.Helper()
	autoMsgs := newMemAutoMsgs()
	queue := newFakeQueue()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	uc := NewDispatchDueUseCase(autoMsgs, queue, "deliveries", 25, zerolog.Nop())
	uc.Now = func() time.Time { return now }
	return uc, autoMsgs, queue, now
}

func TestDispatchDuePublishesDueRows(t *testing.T) {
	uc, autoMsgs, queue, now := newDispatchFixture(t)
	dueID := autoMsgs.add(domain.AutoMessage{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})
	futureID := autoMsgs.add(domain.AutoMessage{
		SenderID: "u3", ReceiverID: "u4", Content: "later",
		SendDate: now.Add(time.Hour), Status: domain.StatusPending,
	})

	require.NoError(t, uc.Execute(context.Background()))

	require.Equal(t, []string{dueID}, queue.enqueuedIDs(), "exactly one broker item per due row")
	require.Equal(t, domain.StatusQueued, autoMsgs.statusOf(dueID))
	require.Equal(t, domain.StatusPending, autoMsgs.statusOf(futureID), "future rows stay untouched")
}

func TestDispatchDueSecondRunPublishesNothing(t *testing.T) {
	uc, autoMsgs, queue, now := newDispatchFixture(t)
	autoMsgs.add(domain.AutoMessage{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})

	require.NoError(t, uc.Execute(context.Background()))
	require.NoError(t, uc.Execute(context.Background()))

	require.Len(t, queue.enqueuedIDs(), 1, "already queued rows must not be republished")
}

func TestDispatchDueFailClosedOnBrokerPing(t *testing.T) {
	uc, autoMsgs, queue, now := newDispatchFixture(t)
	id := autoMsgs.add(domain.AutoMessage{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})
	queue.pingErr = errors.New("broker down")

	err := uc.Execute(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.StatusPending, autoMsgs.statusOf(id), "no status mutation before broker check")
	require.Empty(t, queue.enqueuedIDs())
}

func TestDispatchDueRevertsFailedPublish(t *testing.T) {
	uc, autoMsgs, queue, now := newDispatchFixture(t)
	okID := autoMsgs.add(domain.AutoMessage{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})
	badID := autoMsgs.add(domain.AutoMessage{
		SenderID: "u3", ReceiverID: "u4", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})
	queue.failIDs[badID] = errors.New("publish refused")

	require.NoError(t, uc.Execute(context.Background()), "per-row publish failures do not fail the pass")

	require.Equal(t, []string{okID}, queue.enqueuedIDs())
	require.Equal(t, domain.StatusQueued, autoMsgs.statusOf(okID))
	require.Equal(t, domain.StatusPending, autoMsgs.statusOf(badID), "failed publish compensates back to pending")
}

func TestDispatchDuePicksUpRevertedRowNextTick(t *testing.T) {
	uc, autoMsgs, queue, now := newDispatchFixture(t)
	id := autoMsgs.add(domain.AutoMessage{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
		SendDate: now.Add(-time.Minute), Status: domain.StatusPending,
	})
	queue.failIDs[id] = errors.New("publish refused")

	require.NoError(t, uc.Execute(context.Background()))
	require.Empty(t, queue.enqueuedIDs())

	delete(queue.failIDs, id)
	require.NoError(t, uc.Execute(context.Background()))
	require.Equal(t, []string{id}, queue.enqueuedIDs())
	require.Equal(t, domain.StatusQueued, autoMsgs.statusOf(id))
}
