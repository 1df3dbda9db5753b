// Package notify pushes progress changes to a user's open websocket
// connections.
//
// Every authenticated connection joins its user's room. A saved progress
// record is sent to the room as "progress:updated"; the connection that
// caused the change (its origin) is skipped. With a Broker configured,
// events travel through it so that rooms on other server instances
// receive them too.
package notify

import (
	"context"
	"encoding/json"

	"github.com/sakif/code-compass/internal/model"
)

// Event names on the wire.
const (
	EventConnected       = "connected"
	EventProgressUpdate  = "progress:update"
	EventProgressUpdated = "progress:updated"
	EventError           = "error"
)

// Message is the {event, data} frame used in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ConnectedData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type ProgressUpdatedData struct {
	UserID   string             `json:"userId"`
	Progress model.UserProgress `json:"progress"`
	// Origin is the connection that caused the update, empty for REST.
	Origin string `json:"origin,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: raw})
}

type originKey struct{}

// WithOrigin marks ctx as carrying a request from connection connID, so
// the resulting broadcast skips that connection.
func WithOrigin(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, originKey{}, connID)
}

// OriginFromContext returns the connection ID set by WithOrigin.
func OriginFromContext(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}
