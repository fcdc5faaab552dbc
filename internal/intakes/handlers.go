package intakes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
	"github.com/macrotracker/intake-service/internal/userctx"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /api/intake
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	var req CreateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.FoodID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "foodId is required")
		return
	}
	req.Date = resolveDateAlias(req.Date)

	requestID := r.Header.Get("X-Request-Id")

	intake, err := h.service.Save(r.Context(), userID, requestID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if intake == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(DuplicateResponse{
			Status:  "duplicate",
			Message: "request already processed",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(intake)
}

// HandleList handles GET /api/intake?date=YYYY-MM-DD&page=0
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	var date *string
	if v := r.URL.Query().Get("date"); v != "" {
		resolved := resolveDateAlias(v)
		date = &resolved
	}

	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "page must be a non-negative integer")
			return
		}
		page = parsed
	}

	resp, err := h.service.FindByDate(r.Context(), userID, date, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// HandleUpdate handles PATCH /api/intake/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid intake ID")
		return
	}

	var req UpdateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Date != nil {
		resolved := resolveDateAlias(*req.Date)
		req.Date = &resolved
	}

	intake, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(intake)
}

// HandleDelete handles DELETE /api/intake/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid intake ID")
		return
	}

	if err := h.service.DeleteByID(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveDateAlias maps the "today" shortcut to the current date.
func resolveDateAlias(date string) string {
	if strings.EqualFold(date, "today") {
		return time.Now().Format("2006-01-02")
	}
	return date
}

func writeServiceError(w http.ResponseWriter, err error) {
	var unitErr *nutrient.UnsupportedUnit
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &unitErr):
		writeError(w, http.StatusBadRequest, "unsupported_unit", err.Error())
	case errors.Is(err, foodclient.ErrFoodNotFound):
		writeError(w, http.StatusNotFound, "food_not_found", err.Error())
	case errors.Is(err, foodclient.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "food_service_unavailable", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "intake_not_found", "intake not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
