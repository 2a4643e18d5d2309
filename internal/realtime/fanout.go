package realtime

import (
	"encoding/json"

	"github.com/archosan/realtime-chat-v2/internal/chat/usecase"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
)

// HubFanout adapts the Hub to the consumer's fanout port: queued deliveries
// reach connected clients through the same room broadcast as live sends.
type HubFanout struct {
	hub *Hub
}

func NewHubFanout(hub *Hub) *HubFanout {
	return &HubFanout{hub: hub}
}

var _ usecase.Fanout = (*HubFanout)(nil)

func (f *HubFanout) MessageReceived(room string, ev usecase.MessageReceivedEvent) error {
	payload, err := json.Marshal(messageReceivedEvent{
		Type:           EventMessageReceived,
		Message:        ev.Message,
		SenderID:       ev.SenderID,
		MessageID:      ev.MessageID,
		ConversationID: ev.ConversationID,
	})
	if err != nil {
		return err
	}
	f.hub.BroadcastRoom(room, payload, "")
	metrics.FanoutEvents.WithLabelValues(EventMessageReceived).Inc()
	return nil
}
