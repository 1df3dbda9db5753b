package handler

import (
	"net/http"

	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/service"
	"github.com/sakif/code-compass/internal/validate"
)

// GlossaryHandler serves /api/glossary.
type GlossaryHandler struct {
	glossary  *service.GlossaryService
	validator *validate.Validator
	resp      *Responder
}

func NewGlossaryHandler(glossary *service.GlossaryService, v *validate.Validator, resp *Responder) *GlossaryHandler {
	return &GlossaryHandler{glossary: glossary, validator: v, resp: resp}
}

// HTTP: GET /api/glossary?page=&limit=&category=&difficulty=&search=
func (h *GlossaryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r.URL.Query(), service.GlossaryQuery, h.validator)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	items, page, err := h.glossary.List(r.Context(), params)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.List(w, items, page)
}

// HandleSearch is the quick lookup. A missing q is 400 MISSING_QUERY.
//
// HTTP: GET /api/glossary/search?q=
func (h *GlossaryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.glossary.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, items)
}

// HTTP: GET /api/glossary/categories
func (h *GlossaryHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.glossary.Categories(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, cats)
}

// HTTP: POST /api/glossary (admin)
func (h *GlossaryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.GlossaryInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	term, err := h.glossary.Create(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, term)
}
