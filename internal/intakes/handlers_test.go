package intakes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/macrotracker/intake-service/internal/userctx"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	svc, _, _ := newTestService(t, 0)
	return NewHandlers(svc)
}

func doRequest(h http.HandlerFunc, method, target string, userID int64, body any, headers, pathValues map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != 0 {
		req = req.WithContext(userctx.WithUserID(req.Context(), userID))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandleCreate(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, CreateIntakeRequest{
		FoodID: "oats",
		Amount: 150,
		Date:   "2026-08-30",
	}, map[string]string{"X-Request-Id": "req-1"}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var dto IntakeDTO
	if err := json.Unmarshal(w.Body.Bytes(), &dto); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if dto.Nutriments.Calories != 300 {
		t.Errorf("expected 300 kcal, got %v", dto.Nutriments.Calories)
	}
}

func TestHandleCreateDuplicate(t *testing.T) {
	h := newTestHandlers(t)
	body := CreateIntakeRequest{FoodID: "oats", Amount: 100, Date: "2026-08-30"}
	headers := map[string]string{"X-Request-Id": "req-dup"}

	if w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, body, headers, nil); w.Code != http.StatusCreated {
		t.Fatalf("first create expected 201, got %d", w.Code)
	}

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, body, headers, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate expected 200, got %d", w.Code)
	}
	var resp DuplicateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != "duplicate" {
		t.Errorf("expected duplicate status, got %q", resp.Status)
	}
}

func TestHandleCreateUnauthorized(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 0, CreateIntakeRequest{
		FoodID: "oats", Amount: 100, Date: "2026-08-30",
	}, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without user identity, got %d", w.Code)
	}
}

func TestHandleCreateUnknownFood(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, CreateIntakeRequest{
		FoodID: "nope", Amount: 100, Date: "2026-08-30",
	}, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown food, got %d", w.Code)
	}
}

func TestHandleListTodayAlias(t *testing.T) {
	h := newTestHandlers(t)
	today := time.Now().Format("2006-01-02")

	if w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, CreateIntakeRequest{
		FoodID: "oats", Amount: 100, Date: today,
	}, nil, nil); w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	w := doRequest(h.HandleList, http.MethodGet, "/api/intake?date=today", 1, nil, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var page PagedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Errorf("expected today's intake in listing, got total %d", page.Pagination.Total)
	}
}

func TestHandleListBadPage(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleList, http.MethodGet, "/api/intake?page=-1", 1, nil, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative page, got %d", w.Code)
	}
}

func TestHandleUpdateAndDelete(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, CreateIntakeRequest{
		FoodID: "oats", Amount: 100, Date: "2026-08-30",
	}, nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}
	var created IntakeDTO
	json.Unmarshal(w.Body.Bytes(), &created)

	amount := 200
	w = doRequest(h.HandleUpdate, http.MethodPatch, "/api/intake/1", 1, UpdateIntakeRequest{Amount: &amount}, nil, map[string]string{"id": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("update expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated IntakeDTO
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Nutriments.Calories != 400 {
		t.Errorf("expected 400 kcal after doubling, got %v", updated.Nutriments.Calories)
	}

	if w = doRequest(h.HandleDelete, http.MethodDelete, "/api/intake/1", 1, nil, nil, map[string]string{"id": "1"}); w.Code != http.StatusNoContent {
		t.Errorf("delete expected 204, got %d", w.Code)
	}
	// Idempotent delete.
	if w = doRequest(h.HandleDelete, http.MethodDelete, "/api/intake/1", 1, nil, nil, map[string]string{"id": "1"}); w.Code != http.StatusNoContent {
		t.Errorf("repeated delete expected 204, got %d", w.Code)
	}
}

func TestHandleUpdateForeignIntake(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/intake", 1, CreateIntakeRequest{
		FoodID: "oats", Amount: 100, Date: "2026-08-30",
	}, nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	amount := 200
	w = doRequest(h.HandleUpdate, http.MethodPatch, "/api/intake/1", 2, UpdateIntakeRequest{Amount: &amount}, nil, map[string]string{"id": "1"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's intake, got %d", w.Code)
	}
}

func TestHandleUpdateInvalidID(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleUpdate, http.MethodPatch, "/api/intake/abc", 1, UpdateIntakeRequest{}, nil, map[string]string{"id": "abc"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", w.Code)
	}
}
