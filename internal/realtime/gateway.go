package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/archosan/realtime-chat-v2/internal/auth"
	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/usecase"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/metrics"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/presence"
)

const (
	defaultReadTimeout = 60 * time.Second
	handlerTimeout     = 5 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway authenticates websocket connections, tracks presence and relays
// chat events. Per-connection lifecycle:
// unauthenticated -> authenticated -> rooms joined -> disconnected.
type Gateway struct {
	hub      *Hub
	presence presence.Store
	verifier *auth.Verifier
	send     *usecase.SendMessageUseCase
	read     *usecase.MarkMessageReadUseCase
	validate *validator.Validate
	log      zerolog.Logger
}

func NewGateway(hub *Hub, store presence.Store, verifier *auth.Verifier, send *usecase.SendMessageUseCase, read *usecase.MarkMessageReadUseCase, log zerolog.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		presence: store,
		verifier: verifier,
		send:     send,
		read:     read,
		validate: validator.New(),
		log:      log,
	}
}

// Handle upgrades HTTP connections to websocket and processes frames until
// the client disconnects. A missing or invalid token is rejected before the
// upgrade, so an unauthenticated client never observes a successful connect.
func (g *Gateway) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := g.verifier.Verify(handshakeToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
			return
		}
		userID := identity.UserID

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		conn := NewConnection(userID, ws)
		g.hub.Attach(conn)
		g.log.Info().Str("user_id", userID).Str("conn_id", conn.ID).Msg("user connected")

		cameOnline := g.connectPresence(c.Request.Context(), conn)
		metrics.RecordConnect(cameOnline)
		if cameOnline {
			g.broadcastPresence(EventUserOnline, userID)
		}

		defer g.teardown(conn)

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				g.log.Debug().Err(err).Str("user_id", userID).Msg("read error, closing connection")
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				g.replyError(conn, "invalid payload")
				continue
			}

			switch frame.Type {
			case EventJoinRoom:
				g.handleJoin(conn, frame)
			case EventSendMessage:
				g.guard(conn, "Could not send message.", func(ctx context.Context) error {
					return g.handleSendMessage(ctx, conn, frame)
				})
			case EventMessageRead:
				g.guard(conn, "Could not mark message as read.", func(ctx context.Context) error {
					return g.handleMessageRead(ctx, conn, frame)
				})
			case EventStartTyping:
				g.handleTyping(conn, frame, EventUserTyping)
			case EventStopTyping:
				g.handleTyping(conn, frame, EventStoppedTyping)
			default:
				g.replyError(conn, "unknown event type")
			}
		}
	}
}

// guard wraps a handler so a failure produces a client-visible error event
// instead of tearing down the connection.
func (g *Gateway) guard(conn *Connection, clientMessage string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		g.log.Error().Err(err).Str("user_id", conn.UserID).Msg("socket event error")
		g.replyError(conn, clientMessage)
	}
}

// handleJoin admits the connection to the room's broadcast group after
// checking the caller is one of the two identities encoded in the name.
func (g *Gateway) handleJoin(conn *Connection, frame inboundFrame) {
	if frame.RoomName == "" {
		g.replyError(conn, "roomName is required")
		return
	}
	if !domain.RoomHasMember(frame.RoomName, conn.UserID) {
		g.replyError(conn, "not a participant of this room")
		return
	}
	g.hub.Join(frame.RoomName, conn)
	g.log.Info().Str("user_id", conn.UserID).Str("room", frame.RoomName).Msg("user joined room")
}

func (g *Gateway) handleSendMessage(ctx context.Context, conn *Connection, frame inboundFrame) error {
	in := sendMessagePayload{
		Message:    frame.Message,
		ReceiverID: frame.ReceiverID,
		RoomName:   frame.RoomName,
	}
	if err := g.validate.Struct(in); err != nil {
		return err
	}

	res, err := g.send.Execute(ctx, usecase.SendMessageInput{
		SenderID:   conn.UserID,
		ReceiverID: in.ReceiverID,
		Content:    in.Message,
		Source:     "realtime",
	})
	if err != nil {
		return err
	}

	payload, err := json.Marshal(messageReceivedEvent{
		Type:           EventMessageReceived,
		Message:        res.Message.Content,
		SenderID:       res.Message.SenderID,
		MessageID:      res.Message.ID,
		ConversationID: res.Conversation.ID,
	})
	if err != nil {
		return err
	}

	// The emitting connection is excluded to avoid echo.
	g.hub.BroadcastRoom(in.RoomName, payload, conn.ID)
	metrics.FanoutEvents.WithLabelValues(EventMessageReceived).Inc()
	g.log.Info().Str("user_id", conn.UserID).Str("room", in.RoomName).Msg("message relayed")
	return nil
}

func (g *Gateway) handleMessageRead(ctx context.Context, conn *Connection, frame inboundFrame) error {
	in := messageReadPayload{MessageID: frame.MessageID, RoomName: frame.RoomName}
	if err := g.validate.Struct(in); err != nil {
		return err
	}

	if _, _, err := g.read.Execute(ctx, in.MessageID, conn.UserID); err != nil {
		return err
	}

	// Always notify, even when the read set was already up to date.
	payload, err := json.Marshal(messageWasReadEvent{
		Type:      EventMessageWasRead,
		MessageID: in.MessageID,
		ReaderID:  conn.UserID,
	})
	if err != nil {
		return err
	}
	g.hub.BroadcastRoom(in.RoomName, payload, conn.ID)
	metrics.FanoutEvents.WithLabelValues(EventMessageWasRead).Inc()
	return nil
}

// handleTyping is a pure ephemeral relay: no persistence, no validation
// beyond the room name being present.
func (g *Gateway) handleTyping(conn *Connection, frame inboundFrame, event string) {
	if frame.RoomName == "" {
		return
	}
	payload, err := json.Marshal(typingEvent{Type: event, UserID: conn.UserID})
	if err != nil {
		return
	}
	g.hub.BroadcastRoom(frame.RoomName, payload, conn.ID)
	metrics.FanoutEvents.WithLabelValues(event).Inc()
}

func (g *Gateway) connectPresence(ctx context.Context, conn *Connection) bool {
	cameOnline, err := g.presence.Connect(ctx, conn.UserID, conn.ID)
	if err != nil {
		g.log.Error().Err(err).Str("user_id", conn.UserID).Msg("failed to register online status")
		g.replyError(conn, "Could not register online status.")
		return false
	}
	return cameOnline
}

func (g *Gateway) teardown(conn *Connection) {
	g.hub.Detach(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	wentOffline, err := g.presence.Disconnect(ctx, conn.UserID, conn.ID)
	if err != nil {
		g.log.Error().Err(err).Str("user_id", conn.UserID).Msg("failed to clear online status")
	}
	metrics.RecordDisconnect(wentOffline)
	if wentOffline {
		g.broadcastPresence(EventUserOffline, conn.UserID)
	}

	conn.Close(websocket.CloseNormalClosure, "session closed")
	g.log.Info().Str("user_id", conn.UserID).Str("conn_id", conn.ID).Msg("user disconnected")
}

func (g *Gateway) broadcastPresence(event, userID string) {
	payload, err := json.Marshal(presenceEvent{Type: event, UserID: userID})
	if err != nil {
		return
	}
	g.hub.BroadcastAll(payload, userID)
	metrics.FanoutEvents.WithLabelValues(event).Inc()
}

func (g *Gateway) replyError(conn *Connection, message string) {
	payload, err := json.Marshal(errorEvent{Type: EventError, Message: message})
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

// handshakeToken pulls the access token from the query string or the
// Authorization header.
func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
