package handlers

import (
	"net/http"
	"strings"

	"github.com/markdave123-py/damage-detector/internal/models"
	"github.com/markdave123-py/damage-detector/internal/services"
)

// ChatHandler serves the LLM-backed endpoints. Replies are always 200 once the input is valid.
type ChatHandler struct {
	advisor *services.Advisor
}

func NewChatHandler(advisor *services.Advisor) *ChatHandler {
	return &ChatHandler{advisor: advisor}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type suggestionsRequest struct {
	CarType       *string               `json:"car_type"`
	Severity      *string               `json:"severity"`
	DamagedParts  *models.DamagedParts  `json:"damaged_parts"`
	EstimatedCost *models.EstimatedCost `json:"estimated_cost"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Message is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"response": h.advisor.Chat(r.Context(), req.Message),
	})
}

func (h *ChatHandler) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CarType == nil || req.Severity == nil || req.DamagedParts == nil || req.EstimatedCost == nil {
		writeErrorMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	suggestions := h.advisor.Suggestions(r.Context(), *req.CarType, *req.Severity, *req.DamagedParts, *req.EstimatedCost)
	writeJSON(w, http.StatusOK, map[string]string{"suggestions": suggestions})
}
