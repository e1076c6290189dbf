package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/httpx"
	"github.com/hansupo/shad-label/internal/services"
)

const (
	defaultMaxUploadBytes = 10 << 20
	csvFormField          = "file"
)

// ProductHandlers exposes product listing and bulk import.
type ProductHandlers struct {
	products       services.ProductService
	csv            services.CSVImportService
	importGuard    func(http.Handler) http.Handler
	maxUploadBytes int64
}

type ProductHandlersOption func(*ProductHandlers)

// WithImportMiddleware wraps both import endpoints, typically with the idempotency middleware.
func WithImportMiddleware(mw func(http.Handler) http.Handler) ProductHandlersOption {
	return func(h *ProductHandlers) { h.importGuard = mw }
}

func WithMaxUploadBytes(limit int64) ProductHandlersOption {
	return func(h *ProductHandlers) {
		if limit > 0 {
			h.maxUploadBytes = limit
		}
	}
}

func NewProductHandlers(products services.ProductService, csv services.CSVImportService, opts ...ProductHandlersOption) *ProductHandlers {
	h := &ProductHandlers{products: products, csv: csv, maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the product endpoints beneath /products.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Delete("/flush", h.flush)
	r.Group(func(imports chi.Router) {
		if h.importGuard != nil {
			imports.Use(h.importGuard)
		}
		imports.Post("/import", h.importJSON)
		imports.Post("/import/csv", h.importCSV)
	})
	r.Get("/{productId}", h.get)
	r.Delete("/{productId}", h.delete)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("product service not available"))
		return
	}
	products, err := h.products.List(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		payload = append(payload, buildProductPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *ProductHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("product service not available"))
		return
	}
	product, err := h.products.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("product service not available"))
		return
	}
	if err := h.products.Delete(ctx, chi.URLParam(r, "productId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandlers) flush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("product service not available"))
		return
	}
	n, err := h.products.Flush(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, countPayload{Count: n, Message: fmt.Sprintf("Successfully deleted %d products", n)})
}

func (h *ProductHandlers) importJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("product service not available"))
		return
	}
	body, err := readLimitedBody(r, h.maxUploadBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	inputs, err := services.DecodeProductImport(body)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	res, err := h.products.Import(ctx, services.ImportProductsCommand{Products: inputs, Source: "json"})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, countPayload{Count: res.Count, Message: importedMessage(res.Count)})
}

// importCSV accepts either a raw text/csv body or a multipart form with a "file" part.
func (h *ProductHandlers) importCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.csv == nil {
		httpx.WriteError(ctx, w, httpx.Unavailable("csv import not available"))
		return
	}

	data, opts, err := h.readCSVUpload(w, r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	query := r.URL.Query()
	opts.NameColumn = query.Get("name_column")
	dryRun, _ := strconv.ParseBool(query.Get("dry_run"))

	if dryRun {
		preview, err := h.csv.Preview(ctx, bytes.NewReader(data), opts)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, buildCSVPreviewPayload(preview))
		return
	}

	res, err := h.csv.Import(ctx, bytes.NewReader(data), opts)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := csvImportPayload{
		Count:   res.Count,
		Message: importedMessage(res.Count),
		Preview: buildCSVPreviewPayload(res.Preview),
	}
	if res.Source != nil {
		payload.SourceURI = res.Source.URI()
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *ProductHandlers) readCSVUpload(w http.ResponseWriter, r *http.Request) ([]byte, services.CSVOptions, error) {
	opts := services.CSVOptions{ContentType: r.Header.Get("Content-Type")}
	mediaType, _, _ := mime.ParseMediaType(opts.ContentType)
	if mediaType != "multipart/form-data" {
		data, err := readLimitedBody(r, h.maxUploadBytes)
		return data, opts, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+64<<10)
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, opts, err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, opts, errEmptyBody
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, opts, errBodyTooLarge
			}
			return nil, opts, err
		}
		if part.FormName() != csvFormField {
			_ = part.Close()
			continue
		}
		opts.FileName = part.FileName()
		opts.ContentType = part.Header.Get("Content-Type")
		data, err := io.ReadAll(io.LimitReader(part, h.maxUploadBytes+1))
		_ = part.Close()
		if err != nil {
			return nil, opts, err
		}
		if int64(len(data)) > h.maxUploadBytes {
			return nil, opts, errBodyTooLarge
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, opts, errEmptyBody
		}
		return data, opts, nil
	}
}

func importedMessage(n int) string {
	return fmt.Sprintf("Successfully imported %d products", n)
}

type productPayload struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

func buildProductPayload(p domain.Product) productPayload {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return productPayload{
		ID:         p.ID,
		Name:       p.Name,
		Attributes: attrs,
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
}

type csvPreviewPayload struct {
	Delimiter  string             `json:"delimiter"`
	Encoding   string             `json:"encoding"`
	Headers    []string           `json:"headers"`
	NameColumn string             `json:"name_column"`
	Mapping    map[string]string  `json:"mapping"`
	Rows       []csvProductRecord `json:"rows"`
	Skipped    int                `json:"skipped"`
}

type csvProductRecord struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

type csvImportPayload struct {
	Count     int               `json:"count"`
	Message   string            `json:"message"`
	SourceURI string            `json:"source_uri,omitempty"`
	Preview   csvPreviewPayload `json:"preview"`
}

func buildCSVPreviewPayload(p services.CSVPreview) csvPreviewPayload {
	rows := make([]csvProductRecord, 0, len(p.Products))
	for _, in := range p.Products {
		rows = append(rows, csvProductRecord{Name: in.Name, Attributes: in.Attributes})
	}
	headers := p.Headers
	if headers == nil {
		headers = []string{}
	}
	mapping := p.Mapping
	if mapping == nil {
		mapping = map[string]string{}
	}
	return csvPreviewPayload{
		Delimiter:  p.Delimiter,
		Encoding:   p.Encoding,
		Headers:    headers,
		NameColumn: p.NameColumn,
		Mapping:    mapping,
		Rows:       rows,
		Skipped:    p.Skipped,
	}
}
