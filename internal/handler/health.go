package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	db      Pinger
	started time.Time
	now     func() time.Time
}

func NewHealthHandler(db Pinger, started time.Time) *HealthHandler {
	return &HealthHandler{db: db, started: started, now: time.Now}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"` // seconds
	Database  string    `json:"database,omitempty"`
}

// HandleHealth answers 200 {status: "OK"} while the database responds and
// 503 {status: "DEGRADED"} when it does not.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	res := healthResponse{
		Status:    "OK",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.started).Seconds(),
	}
	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			res.Status = "DEGRADED"
			res.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, res)
}
