package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var fixedTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func newImportRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"count":2}`))
	})
}

func TestMiddleware_WithoutKeyPassesThrough(t *testing.T) {
	store := NewMemoryStore()
	var calls int
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(countingHandler(&calls, http.StatusCreated))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newImportRequest("", `{"products":[]}`))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, got %d", calls)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no records, got %d", store.Len())
	}
}

func TestMiddleware_RequiredKey(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore(), WithRequiredKey())(countingHandler(&calls, http.StatusCreated))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newImportRequest("", `{}`))

	if calls != 0 {
		t.Fatal("handler should not run without a key")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(countingHandler(&calls, http.StatusCreated))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newImportRequest("import-1", `{"products":[{"name":"a"}]}`))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newImportRequest("import-1", `{"products":[{"name":"a"}]}`))

	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatal("expected replay header")
	}
	if rr2.Body.String() != `{"count":2}` {
		t.Fatalf("unexpected replay body %q", rr2.Body.String())
	}
	if rr2.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected stored content type, got %q", rr2.Header().Get("Content-Type"))
	}
}

func TestMiddleware_KeyReusedWithDifferentBody(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore())(countingHandler(&calls, http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), newImportRequest("k", `{"products":[{"name":"a"}]}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newImportRequest("k", `{"products":[{"name":"b"}]}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_key_conflict")
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
}

func TestMiddleware_KeysAreScopedByPath(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore())(countingHandler(&calls, http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), newImportRequest("same", `{}`))
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/flush", nil)
	req.Header.Set("Idempotency-Key", "same")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || calls != 2 {
		t.Fatalf("expected independent keys, got status %d after %d calls", rr.Code, calls)
	}
}

func TestMiddleware_ServerErrorsAreNotStored(t *testing.T) {
	var calls int
	store := NewMemoryStore()
	handler := Middleware(store)(countingHandler(&calls, http.StatusServiceUnavailable))

	handler.ServeHTTP(httptest.NewRecorder(), newImportRequest("retry", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), newImportRequest("retry", `{}`))

	if calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", calls)
	}
	if store.Len() != 0 {
		t.Fatalf("expected released key, got %d records", store.Len())
	}
}

func TestMiddleware_PendingKeyConflicts(t *testing.T) {
	store := NewMemoryStore()
	req := newImportRequest("busy", `{}`)
	scoped := scopedKey(req, "busy")
	fingerprint := requestFingerprint(req, []byte(`{}`))
	if _, err := store.Reserve(context.Background(), scoped, fingerprint, fixedTime, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var calls int
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(countingHandler(&calls, http.StatusCreated))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newImportRequest("busy", `{}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_GetIsNotGuarded(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore())(countingHandler(&calls, http.StatusOK))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.Header.Set("Idempotency-Key", "k")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected GET to bypass middleware, got %d calls", calls)
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Reserve(ctx, "old", "f", fixedTime, time.Minute); err != nil {
		t.Fatalf("reserve old: %v", err)
	}
	if _, err := store.Reserve(ctx, "new", "f", fixedTime.Add(time.Hour), time.Hour); err != nil {
		t.Fatalf("reserve new: %v", err)
	}

	removed, err := store.CleanupExpired(ctx, fixedTime.Add(90*time.Minute), 0)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 || store.Len() != 1 {
		t.Fatalf("expected one removal and one survivor, got removed=%d len=%d", removed, store.Len())
	}

	res, err := store.Reserve(ctx, "old", "other", fixedTime.Add(2*time.Hour), time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected expired key to be reusable, got %v %v", res.State, err)
	}
}

func assertErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != code {
		t.Fatalf("expected error %q, got %v", code, payload["error"])
	}
}
