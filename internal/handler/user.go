package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/service"
)

// UserHandler serves the signed-in user's progress and profile under
// /api/users. Every route sits behind auth.RequireAuth.
type UserHandler struct {
	progress *service.ProgressService
	users    *service.UserService
	resp     *Responder
}

func NewUserHandler(progress *service.ProgressService, users *service.UserService, resp *Responder) *UserHandler {
	return &UserHandler{progress: progress, users: users, resp: resp}
}

// currentUser returns the authenticated user ID or writes 401.
func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized("Access denied. No token provided."))
	}
	return userID, ok
}

// HTTP: GET /api/users/progress
func (h *UserHandler) HandleListProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	records, err := h.progress.List(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, records)
}

// HandleGetProgress returns the record for one template, or data: null
// when the user has not started it.
//
// HTTP: GET /api/users/progress/{templateId}
func (h *UserHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.progress.Get(r.Context(), userID, chi.URLParam(r, "templateId"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, rec) // nil encodes as null
}

// HandleUpdateProgress saves completion for one template. The saved
// record is also pushed to every open websocket of the user.
//
// HTTP: PUT /api/users/progress
// REQUEST BODY: {"templateId": "...", "completedSteps": ["..."], "timeSpent": 5}
func (h *UserHandler) HandleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var in service.ProgressInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	rec, err := h.progress.Update(r.Context(), userID, in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, rec)
}

// HTTP: GET /api/users/stats
func (h *UserHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.progress.Stats(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, stats)
}

// HTTP: GET /api/users/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, u)
}

// HTTP: PUT /api/users/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, u)
}

// HTTP: PUT /api/users/preferences
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var in service.PreferencesInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	u, err := h.users.UpdatePreferences(r.Context(), userID, in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, u)
}
