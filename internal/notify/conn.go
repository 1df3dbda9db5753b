package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 32
)

// ProgressUpdater persists a progress update coming in over a connection.
type ProgressUpdater interface {
	Update(ctx context.Context, userID string, in service.ProgressInput) (model.UserProgress, error)
}

// Server upgrades authenticated requests to websocket connections and
// runs them against a Hub.
type Server struct {
	hub      *Hub
	progress ProgressUpdater
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer returns a websocket endpoint. allowedOrigins limits the Origin
// header; empty or "*" accepts any origin.
func NewServer(hub *Hub, progress ProgressUpdater, allowedOrigins []string, logger *slog.Logger) *Server {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &Server{
		hub:      hub,
		progress: progress,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve upgrades the request and blocks until the connection closes. The
// caller has already authenticated userID.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:     newConnectionID(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	s.hub.join(c)
	s.logger.Info("websocket connected",
		slog.String("userID", userID),
		slog.String("connectionID", c.id),
	)

	if frame, err := encode(EventConnected, ConnectedData{UserID: userID, ConnectionID: c.id}); err == nil {
		c.Send(frame)
	}

	go c.writePump()
	s.readPump(context.WithoutCancel(r.Context()), c)

	s.hub.leave(c)
	close(c.done)
	s.logger.Info("websocket disconnected",
		slog.String("userID", userID),
		slog.String("connectionID", c.id),
	)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(apperror.BadRequest("INVALID_JSON", "Message is not valid JSON"))
			continue
		}

		switch msg.Event {
		case EventProgressUpdate:
			s.handleProgress(ctx, c, msg.Data)
		default:
			c.sendError(apperror.BadRequest("UNKNOWN_EVENT", "Unknown event "+msg.Event))
		}
	}
}

// handleProgress persists the update. The saved record reaches the user's
// other connections through the hub; only failures are answered here.
func (s *Server) handleProgress(ctx context.Context, c *client, data json.RawMessage) {
	var in service.ProgressInput
	if err := json.Unmarshal(data, &in); err != nil {
		c.sendError(apperror.BadRequest("INVALID_JSON", "progress:update data is malformed"))
		return
	}

	_, err := s.progress.Update(WithOrigin(ctx, c.id), c.userID, in)
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			s.logger.Error("progress update over websocket failed",
				slog.String("userID", c.userID),
				slog.String("error", err.Error()),
			)
		}
		c.sendError(err)
	}
}

type client struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

func (c *client) ID() string     { return c.id }
func (c *client) UserID() string { return c.userID }

// Send never blocks. A full buffer or a closed connection drops the frame.
func (c *client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) sendError(err error) {
	msg := "Internal server error"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if frame, encErr := encode(EventError, ErrorData{Message: msg, Code: apperror.Code(err)}); encErr == nil {
		c.Send(frame)
	}
}

// writePump owns all writes to ws. It exits when done is closed or a
// write fails, closing the socket either way.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
