package handler

import (
	"net/http"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/notify"
)

// WebsocketHandler hands authenticated upgrade requests to the notify
// server.
type WebsocketHandler struct {
	ws   *notify.Server
	resp *Responder
}

func NewWebsocketHandler(ws *notify.Server, resp *Responder) *WebsocketHandler {
	return &WebsocketHandler{ws: ws, resp: resp}
}

// HTTP: GET /ws (RequireAuth; the token may be sent as ?token=)
func (h *WebsocketHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized("Access denied. No token provided."))
		return
	}
	h.ws.Serve(w, r, userID)
}
