package realtime

// Inbound event names.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventMessageRead = "message_read"
	EventStartTyping = "start_typing"
	EventStopTyping  = "stop_typing"
)

// Outbound event names.
const (
	EventUserOnline      = "user_online"
	EventUserOffline     = "user_offline"
	EventMessageReceived = "message_received"
	EventMessageWasRead  = "message_was_read"
	EventUserTyping      = "user_typing"
	EventStoppedTyping   = "user_stopped_typing"
	EventError           = "error"
)

// inboundFrame is the envelope for every client -> server event. Fields
// not relevant to a given event type stay empty; per-event validation
// happens in the gateway handlers.
type inboundFrame struct {
	Type       string `json:"type"`
	RoomName   string `json:"roomName,omitempty"`
	Message    string `json:"message,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
}

// sendMessagePayload is the validated shape of a send_message event.
type sendMessagePayload struct {
	Message    string `validate:"required"`
	ReceiverID string `validate:"required"`
	RoomName   string `validate:"required"`
}

// messageReadPayload is the validated shape of a message_read event.
type messageReadPayload struct {
	MessageID string `validate:"required"`
	RoomName  string `validate:"required"`
}

type presenceEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type messageReceivedEvent struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	SenderID       string `json:"senderId"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId,omitempty"`
}

type messageWasReadEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
}

type typingEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
