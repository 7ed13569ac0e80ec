package handlers

import (
	"encoding/json"
	"net/http"

	middleware "github.com/markdave123-py/damage-detector/internal/api/middlewares"
	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/services"
)

type HistoryHandler struct {
	history *services.HistoryService
	advisor *services.Advisor
}

func NewHistoryHandler(history *services.HistoryService, advisor *services.Advisor) *HistoryHandler {
	return &HistoryHandler{history: history, advisor: advisor}
}

func (h *HistoryHandler) SaveHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("unauthorized"))
		return
	}

	// an empty object counts as no data
	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil || len(raw) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "No data provided")
		return
	}
	var in services.HistoryInput
	if err := remarshal(raw, &in); err != nil {
		writeError(w, r, apperr.Validation("Invalid history record: "+err.Error()))
		return
	}

	if _, err := h.history.Save(r.Context(), userID, in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "History saved successfully"})
}

func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("unauthorized"))
		return
	}

	records, err := h.history.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *HistoryHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("unauthorized"))
		return
	}

	stats, err := h.history.Analytics(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HistoryHandler) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("unauthorized"))
		return
	}

	stats, err := h.history.Analytics(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"summary": h.advisor.AnalyticsSummary(r.Context(), stats),
	})
}

func remarshal(raw map[string]json.RawMessage, dst any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
