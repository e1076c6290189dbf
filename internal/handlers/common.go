package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hansupo/shad-label/internal/platform/httpx"
	"github.com/hansupo/shad-label/internal/services"
)

const maxJSONBodySize = 1 << 20

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxJSONBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads and decodes a bounded JSON body, writing the error response itself.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxJSONBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid JSON payload"))
		return false
	}
	return true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.BadRequest("request body is required"))
	default:
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

// writeServiceError maps service sentinels onto the error envelope. Client errors carry the
// message the service attached; server errors never leak internals.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	message := services.Message(err)
	switch {
	case errors.Is(err, context.Canceled):
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", "request cancelled", 499))
	case errors.Is(err, services.ErrAttributeInvalidInput),
		errors.Is(err, services.ErrProductInvalidInput),
		errors.Is(err, services.ErrTemplateInvalidInput),
		errors.Is(err, services.ErrLabelInvalidInput),
		errors.Is(err, services.ErrCSVInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(orDefault(message, "invalid request")))
	case errors.Is(err, services.ErrAttributeNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrTemplateNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound(orDefault(message, "resource not found")))
	case errors.Is(err, services.ErrAttributeConflict):
		httpx.WriteError(ctx, w, httpx.Conflict(orDefault(message, "resource already exists")))
	case errors.Is(err, services.ErrLabelPDFUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable(orDefault(message, "pdf renderer unavailable")))
	case errors.Is(err, services.ErrLabelPDFFailed):
		httpx.WriteError(ctx, w, httpx.NewError("pdf_failed", orDefault(message, "Failed to generate PDF"), http.StatusInternalServerError))
	case errors.Is(err, services.ErrServiceUnavailable), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.Unavailable("storage temporarily unavailable"))
	default:
		httpx.WriteError(ctx, w, httpx.Internal("internal server error"))
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
