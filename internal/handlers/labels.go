package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hansupo/shad-label/internal/platform/httpx"
	"github.com/hansupo/shad-label/internal/services"
)

const exportHeader = "X-Label-Export"

// LabelHandlers exposes rendering and printing.
type LabelHandlers struct {
	labels services.LabelService
}

func NewLabelHandlers(svc services.LabelService) *LabelHandlers {
	return &LabelHandlers{labels: svc}
}

// Routes registers the label endpoints beneath /labels.
func (h *LabelHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/preview", h.preview)
	r.Post("/pdf", h.pdf)
}

func (h *LabelHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.labels == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("label service not available"))
		return
	}
	var req labelRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	res, err := h.labels.Preview(ctx, req.command())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	unresolved := res.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	writeJSONResponse(w, http.StatusOK, previewPayload{HTML: res.HTML, Unresolved: unresolved})
}

func (h *LabelHandlers) pdf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.labels == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("label service not available"))
		return
	}
	var req labelRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	res, err := h.labels.GeneratePDF(ctx, services.PDFCommand{RenderCommand: req.command(), Filename: req.Filename})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/pdf")
	header.Set("Content-Disposition", `attachment; filename="`+headerSafe(res.Filename)+`"`)
	header.Set("Content-Length", strconv.Itoa(len(res.Data)))
	header.Set("Cache-Control", "no-cache")
	if res.Export != nil {
		header.Set(exportHeader, res.Export.URI())
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

type labelRequest struct {
	TemplateID string `json:"template_id"`
	HTML       string `json:"html"`
	ProductID  string `json:"product_id"`
	Filename   string `json:"filename"`
}

func (r labelRequest) command() services.RenderCommand {
	return services.RenderCommand{
		TemplateID: strings.TrimSpace(r.TemplateID),
		HTML:       r.HTML,
		ProductID:  strings.TrimSpace(r.ProductID),
	}
}

type previewPayload struct {
	HTML       string   `json:"html"`
	Unresolved []string `json:"unresolved"`
}

func headerSafe(value string) string {
	return strings.NewReplacer(`"`, "", "\r", "", "\n", "", `\`, "").Replace(value)
}
