package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/httpx"
	"github.com/hansupo/shad-label/internal/services"
)

// AttributeHandlers exposes the attribute catalog.
type AttributeHandlers struct {
	attributes services.AttributeService
}

func NewAttributeHandlers(svc services.AttributeService) *AttributeHandlers {
	return &AttributeHandlers{attributes: svc}
}

// Routes registers the attribute endpoints beneath /attributes.
func (h *AttributeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/", h.flush)
	r.Get("/{attributeId}", h.get)
	r.Put("/{attributeId}", h.update)
	r.Delete("/{attributeId}", h.delete)
}

func (h *AttributeHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	attrs, err := h.attributes.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]attributePayload, 0, len(attrs))
	for _, attr := range attrs {
		payload = append(payload, buildAttributePayload(attr))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AttributeHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	attr, err := h.attributes.Get(ctx, chi.URLParam(r, "attributeId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildAttributePayload(attr))
}

func (h *AttributeHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	var req attributeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	attr, err := h.attributes.Create(ctx, services.CreateAttributeCommand{
		Name:     stringValue(req.Name),
		Label:    req.Label,
		Type:     stringValue(req.Type),
		Required: req.Required,
		Priority: req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildAttributePayload(attr))
}

func (h *AttributeHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	var req attributeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	attr, err := h.attributes.Update(ctx, services.UpdateAttributeCommand{
		ID:       chi.URLParam(r, "attributeId"),
		Name:     req.Name,
		Label:    req.Label,
		Type:     req.Type,
		Required: req.Required,
		Priority: req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildAttributePayload(attr))
}

func (h *AttributeHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	if err := h.attributes.Delete(ctx, chi.URLParam(r, "attributeId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttributeHandlers) flush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.attributes == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("attribute service not available"))
		return
	}
	n, err := h.attributes.DeleteAll(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, countPayload{Count: n})
}

type attributeRequest struct {
	Name     *string `json:"name"`
	Label    *string `json:"label"`
	Type     *string `json:"type"`
	Required *bool   `json:"required"`
	Priority *int    `json:"priority"`
}

type attributePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	Priority  int    `json:"priority"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type countPayload struct {
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

func buildAttributePayload(attr domain.Attribute) attributePayload {
	return attributePayload{
		ID:        attr.ID,
		Name:      attr.Name,
		Label:     attr.Label,
		Type:      string(attr.Type),
		Required:  attr.Required,
		Priority:  attr.Priority,
		CreatedAt: formatTime(attr.CreatedAt),
		UpdatedAt: formatTime(attr.UpdatedAt),
	}
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
