package meals

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/intakes"
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

// HandleList handles GET /api/meals
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	templates, err := h.service.GetTemplates(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(TemplatesResponse{Templates: templates})
}

// HandleCreate handles POST /api/meals
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	template, err := h.service.CreateTemplate(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(template)
}

// HandleUpdate handles PUT /api/meals/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid template ID")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	template, err := h.service.UpdateTemplate(r.Context(), userID, id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(template)
}

// HandleDelete handles DELETE /api/meals/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid template ID")
		return
	}

	if err := h.service.DeleteTemplate(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleApply handles POST /api/meals/{id}/apply?date=YYYY-MM-DD&period=lunch
func (h *Handlers) HandleApply(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid template ID")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "date is required")
		return
	}
	period := r.URL.Query().Get("period")

	resp, err := h.service.ApplyTemplate(r.Context(), userID, id, date, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// HandleRevert handles DELETE /api/meals/group/{groupId}
func (h *Handlers) HandleRevert(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "user identity is missing")
		return
	}

	groupID := r.PathValue("groupId")

	deleted, err := h.service.RevertIntakeGroup(r.Context(), userID, groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(RevertResponse{Deleted: deleted})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var unitErr *nutrient.UnsupportedUnit
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrItemsRequired),
		errors.Is(err, ErrItemFoodID), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrEmptyGroupID),
		errors.Is(err, intakes.ErrInvalidDate), errors.Is(err, intakes.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &unitErr):
		writeError(w, http.StatusBadRequest, "unsupported_unit", err.Error())
	case errors.Is(err, foodclient.ErrFoodNotFound), errors.Is(err, foodclient.ErrIncompleteBatch):
		writeError(w, http.StatusNotFound, "food_not_found", err.Error())
	case errors.Is(err, foodclient.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "food_service_unavailable", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
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
