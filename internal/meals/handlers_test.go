package meals

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/macrotracker/intake-service/internal/userctx"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	svc, _, _ := newTestService(t)
	return NewHandlers(svc)
}

func doRequest(h http.HandlerFunc, method, target string, userID int64, body any, pathValues map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != 0 {
		req = req.WithContext(userctx.WithUserID(req.Context(), userID))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandleCreateAndList(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/meals", 1, TemplateRequest{
		Name:  "lunch bowl",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 150}},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(h.HandleList, http.MethodGet, "/api/meals", 1, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp TemplatesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Templates) != 1 || resp.Templates[0].Name != "lunch bowl" {
		t.Errorf("unexpected listing: %+v", resp.Templates)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/meals", 1, TemplateRequest{Name: "empty"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty items, got %d", w.Code)
	}
}

func TestHandleApplyAndRevert(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleCreate, http.MethodPost, "/api/meals", 1, TemplateRequest{
		Name:  "bowl",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 100}},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}
	var template TemplateDTO
	json.Unmarshal(w.Body.Bytes(), &template)

	w = doRequest(h.HandleApply, http.MethodPost, "/api/meals/1/apply?date=2026-08-30&period=dinner", 1, nil,
		map[string]string{"id": "1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("apply expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var applied ApplyResponse
	json.Unmarshal(w.Body.Bytes(), &applied)
	if applied.MealGroupID == "" || len(applied.Intakes) != 1 {
		t.Fatalf("unexpected apply response: %+v", applied)
	}

	w = doRequest(h.HandleRevert, http.MethodDelete, "/api/meals/group/"+applied.MealGroupID, 1, nil,
		map[string]string{"groupId": applied.MealGroupID})
	if w.Code != http.StatusOK {
		t.Fatalf("revert expected 200, got %d", w.Code)
	}
	var reverted RevertResponse
	json.Unmarshal(w.Body.Bytes(), &reverted)
	if reverted.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", reverted.Deleted)
	}
}

func TestHandleApplyMissingDate(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleApply, http.MethodPost, "/api/meals/1/apply", 1, nil, map[string]string{"id": "1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without date, got %d", w.Code)
	}
}

func TestHandleRevertUnknownGroup(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleRevert, http.MethodDelete, "/api/meals/group/unknown", 1, nil,
		map[string]string{"groupId": "unknown"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown group, got %d", w.Code)
	}
	var reverted RevertResponse
	json.Unmarshal(w.Body.Bytes(), &reverted)
	if reverted.Deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", reverted.Deleted)
	}
}

func TestHandleUpdateNotFound(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleUpdate, http.MethodPut, "/api/meals/42", 1, TemplateRequest{
		Name:  "ghost",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 100}},
	}, map[string]string{"id": "42"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleListUnauthorized(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.HandleList, http.MethodGet, "/api/meals", 0, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
