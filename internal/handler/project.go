package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/service"
	"github.com/sakif/code-compass/internal/validate"
)

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects  *service.ProjectService
	validator *validate.Validator
	resp      *Responder
}

func NewProjectHandler(projects *service.ProjectService, v *validate.Validator, resp *Responder) *ProjectHandler {
	return &ProjectHandler{projects: projects, validator: v, resp: resp}
}

// HTTP: GET /api/projects?page=&limit=&difficulty=&tech=&featured=&search=
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r.URL.Query(), service.ProjectQuery, h.validator)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	items, page, err := h.projects.List(r.Context(), params)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.List(w, items, page)
}

// HTTP: GET /api/projects/featured/list
func (h *ProjectHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.Featured(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, items)
}

// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, p)
}

// HTTP: GET /api/projects/{id}/stats
func (h *ProjectHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projects.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, stats)
}

// HTTP: POST /api/projects (admin)
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	p, err := h.projects.Create(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, p)
}

// HTTP: PUT /api/projects/{id} (admin)
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	p, err := h.projects.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, p)
}

// HandleDelete deactivates the project.
//
// HTTP: DELETE /api/projects/{id} (admin)
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.Message(w, "Project deactivated")
}
