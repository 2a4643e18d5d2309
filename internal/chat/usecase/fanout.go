package usecase

// MessageReceivedEvent is the payload broadcast to a room when a delivery
// is materialized into a message.
type MessageReceivedEvent struct {
	Message        string
	SenderID       string
	MessageID      string
	ConversationID string
}

// Fanout pushes events into the realtime layer's room broadcast. The
// consumer depends on this port so it can be exercised without sockets.
type Fanout interface {
	MessageReceived(room string, ev MessageReceivedEvent) error
}
