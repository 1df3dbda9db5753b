package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/service"
	"github.com/sakif/code-compass/internal/validate"
)

// TemplateHandler serves /api/templates.
type TemplateHandler struct {
	catalog   *service.CatalogService
	validator *validate.Validator
	resp      *Responder
}

func NewTemplateHandler(catalog *service.CatalogService, v *validate.Validator, resp *Responder) *TemplateHandler {
	return &TemplateHandler{catalog: catalog, validator: v, resp: resp}
}

// HandleList returns one page of published templates.
//
// HTTP: GET /api/templates?page=&limit=&category=&difficulty=&tags=&search=&sort=
func (h *TemplateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r.URL.Query(), service.TemplateQuery, h.validator)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	items, page, err := h.catalog.List(r.Context(), params)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.List(w, items, page)
}

// HTTP: GET /api/templates/categories/stats
func (h *TemplateHandler) HandleCategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.CategoryStats(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, stats)
}

// HandleGetByID returns the full template and counts a view.
//
// HTTP: GET /api/templates/{id}
func (h *TemplateHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, t)
}

// HTTP: GET /api/templates/slug/{slug}
func (h *TemplateHandler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalog.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, t)
}

// HandleGraph returns nodes, edges and the build order. It does not count
// as a view.
//
// HTTP: GET /api/templates/{id}/graph
func (h *TemplateHandler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.catalog.Graph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, g)
}

// HTTP: POST /api/templates (admin)
func (h *TemplateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	t, err := h.catalog.Create(r.Context(), in, userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, t)
}

// HTTP: PUT /api/templates/{id} (admin)
func (h *TemplateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	t, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, t)
}

// HandleDelete unpublishes; templates are never removed from the store.
//
// HTTP: DELETE /api/templates/{id} (admin)
func (h *TemplateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Unpublish(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.Message(w, "Template unpublished")
}
