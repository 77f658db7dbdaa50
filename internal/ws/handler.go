package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dmann24/quantina-core/internal/auth"
	"github.com/Dmann24/quantina-core/internal/models"
	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/pipeline"
	"github.com/Dmann24/quantina-core/internal/registry"
)

// inboundFrame is a client-to-server event.
type inboundFrame struct {
	Type       string `json:"type"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

// ackFrame answers a chat_message on the submitting connection.
type ackFrame struct {
	Type string `json:"type"`
	models.Ack
}

// errorFrame reports a rejected inbound event.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Handler upgrades live-channel requests and runs the connection
// lifecycle against the registry.
type Handler struct {
	registry *registry.Registry
	pipeline *pipeline.Pipeline

	// jwtSecret enables handshake token verification; empty accepts a
	// bare user_id query parameter instead.
	jwtSecret []byte

	upgrader websocket.Upgrader
}

// NewHandler creates the live-channel handler.
func NewHandler(reg *registry.Registry, p *pipeline.Pipeline, jwtSecret []byte) *Handler {
	return &Handler{
		registry:  reg,
		pipeline:  p,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The widget is embedded on arbitrary customer sites.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the handshake, registers the connection and
// runs the pumps until disconnect.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identify(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, auth.ErrInvalidToken) {
			status = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	c := newConnection(userID, conn)
	logger := logging.WithConnection(userID, c.ID())

	first, err := h.registry.Register(userID, c)
	if err != nil {
		c.close()
		return
	}
	logger.Info().Msg("Live connection established")

	if first {
		h.registry.Broadcast(models.StatusEvent{
			Type: "user_status", UserID: userID, Status: "online",
		}, userID)
	}

	go c.writePump()
	h.readPump(r.Context(), c)

	if last := h.registry.Unregister(userID, c); last {
		h.registry.Broadcast(models.StatusEvent{
			Type: "user_status", UserID: userID, Status: "offline",
		}, userID)
	}
	c.close()
	logger.Info().Msg("Live connection closed")
}

// identify resolves the user identity from the handshake. Connections
// without an identity are rejected before the upgrade.
func (h *Handler) identify(r *http.Request) (string, error) {
	if len(h.jwtSecret) > 0 {
		token := r.URL.Query().Get("token")
		if token == "" {
			return "", auth.ErrInvalidToken
		}
		return auth.VerifyToken(token, h.jwtSecret)
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return "", errors.New("ws: user_id is required")
	}
	return userID, nil
}

// readPump consumes client events until the peer disconnects. Each
// chat_message runs the same pipeline as the REST ingress, and the ack
// goes back on the submitting connection.
func (h *Handler) readPump(ctx context.Context, c *Connection) {
	defer c.close()

	c.conn.SetReadLimit(maxInboundBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger := logging.WithConnection(c.userID, c.id)
				logger.Debug().
					Err(err).
					Msg("Unexpected close")
			}
			return
		}

		if frame.Type != "chat_message" {
			continue
		}

		sender := frame.SenderID
		if sender == "" {
			sender = c.userID
		}

		ack, err := h.pipeline.Process(ctx, pipeline.Request{
			SenderID:   sender,
			ReceiverID: frame.ReceiverID,
			Mode:       models.ModeText,
			Text:       frame.Text,
		})
		if err != nil {
			_ = c.Deliver(errorFrame{Type: "error", Error: err.Error()})
			continue
		}
		_ = c.Deliver(ackFrame{Type: "ack", Ack: ack})
	}
}
