package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/httpx"
	"github.com/hansupo/shad-label/internal/render"
	"github.com/hansupo/shad-label/internal/services"
)

const maxTemplateBodySize = 2 << 20

// TemplateHandlers exposes label template management.
type TemplateHandlers struct {
	templates services.TemplateService
}

func NewTemplateHandlers(svc services.TemplateService) *TemplateHandlers {
	return &TemplateHandlers{templates: svc}
}

// Routes registers the template endpoints beneath /label-templates.
func (h *TemplateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{templateId}", h.get)
	r.Put("/{templateId}", h.update)
	r.Delete("/{templateId}", h.delete)
	r.Post("/{templateId}/duplicate", h.duplicate)
}

func (h *TemplateHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.templates == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("template service not available"))
		return
	}
	templates, err := h.templates.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]templatePayload, 0, len(templates))
	for _, tpl := range templates {
		payload = append(payload, buildTemplatePayload(tpl))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *TemplateHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.templates == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("template service not available"))
		return
	}
	tpl, err := h.templates.Get(ctx, chi.URLParam(r, "templateId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildTemplatePayload(tpl))
}

func (h *TemplateHandlers) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *TemplateHandlers) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "templateId"))
}

func (h *TemplateHandlers) save(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	if h.templates == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("template service not available"))
		return
	}
	body, err := readLimitedBody(r, maxTemplateBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req templateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid JSON payload"))
		return
	}
	cmd := services.TemplateCommand{Name: req.Name, HTML: req.HTML}

	var (
		tpl    domain.LabelTemplate
		status = http.StatusCreated
	)
	if id == "" {
		tpl, err = h.templates.Create(ctx, cmd)
	} else {
		tpl, err = h.templates.Update(ctx, id, cmd)
		status = http.StatusOK
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, status, buildTemplatePayload(tpl))
}

func (h *TemplateHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.templates == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("template service not available"))
		return
	}
	if err := h.templates.Delete(ctx, chi.URLParam(r, "templateId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandlers) duplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.templates == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("template service not available"))
		return
	}
	tpl, err := h.templates.Duplicate(ctx, chi.URLParam(r, "templateId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildTemplatePayload(tpl))
}

type templateRequest struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

type templatePayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	HTML         string   `json:"html"`
	Placeholders []string `json:"placeholders"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func buildTemplatePayload(tpl domain.LabelTemplate) templatePayload {
	placeholders := render.Placeholders(tpl.HTML)
	if placeholders == nil {
		placeholders = []string{}
	}
	return templatePayload{
		ID:           tpl.ID,
		Name:         tpl.Name,
		HTML:         tpl.HTML,
		Placeholders: placeholders,
		CreatedAt:    formatTime(tpl.CreatedAt),
		UpdatedAt:    formatTime(tpl.UpdatedAt),
	}
}
