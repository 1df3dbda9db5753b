package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sakif/code-compass/internal/model"
)

// Envelope is one room broadcast as it travels through a Broker.
type Envelope struct {
	UserID  string          `json:"userId"`
	Exclude string          `json:"exclude,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Broker fans envelopes out across server instances. Subscribe blocks
// until ctx is done and calls deliver for every envelope published by any
// instance, this one included.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, deliver func(Envelope)) error
}

// subscriber is one open connection as the hub sees it.
type subscriber interface {
	ID() string
	UserID() string
	// Send queues a frame without blocking and reports whether it fit.
	Send(frame []byte) bool
}

// Hub tracks per-user rooms. It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]subscriber
	broker Broker
	logger *slog.Logger
}

// NewHub returns a hub. broker may be nil for single-instance delivery.
func NewHub(broker Broker, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]subscriber),
		broker: broker,
		logger: logger,
	}
}

// Run consumes the broker until ctx is done. Without a broker it returns
// immediately.
func (h *Hub) Run(ctx context.Context) error {
	if h.broker == nil {
		return nil
	}
	return h.broker.Subscribe(ctx, func(env Envelope) {
		h.deliver(env.UserID, env.Exclude, env.Payload)
	})
}

func newConnectionID() string { return uuid.NewString() }

func (h *Hub) join(s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[s.UserID()]
	if !ok {
		room = make(map[string]subscriber)
		h.rooms[s.UserID()] = room
	}
	room[s.ID()] = s
}

func (h *Hub) leave(s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[s.UserID()]
	delete(room, s.ID())
	if len(room) == 0 {
		delete(h.rooms, s.UserID())
	}
}

// Connections returns how many connections userID has on this instance.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// ProgressUpdated broadcasts rec to userID's room. The connection named by
// OriginFromContext(ctx) is skipped. Delivery is best effort: failures are
// logged and never returned.
func (h *Hub) ProgressUpdated(ctx context.Context, userID string, rec model.UserProgress) {
	origin := OriginFromContext(ctx)
	frame, err := encode(EventProgressUpdated, ProgressUpdatedData{UserID: userID, Progress: rec, Origin: origin})
	if err != nil {
		h.logger.Error("encoding progress event failed", slog.String("error", err.Error()))
		return
	}

	if h.broker == nil {
		h.deliver(userID, origin, frame)
		return
	}
	env := Envelope{UserID: userID, Exclude: origin, Payload: frame}
	if err := h.broker.Publish(context.WithoutCancel(ctx), env); err != nil {
		h.logger.Warn("publishing progress event failed, delivering locally",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		h.deliver(userID, origin, frame)
	}
}

// deliver sends frame to every local connection of userID except exclude.
func (h *Hub) deliver(userID, exclude string, frame []byte) {
	h.mu.RLock()
	targets := make([]subscriber, 0, len(h.rooms[userID]))
	for id, s := range h.rooms[userID] {
		if id != exclude {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.Send(frame) {
			h.logger.Warn("dropping event for slow connection",
				slog.String("userID", userID),
				slog.String("connectionID", s.ID()),
			)
		}
	}
}
