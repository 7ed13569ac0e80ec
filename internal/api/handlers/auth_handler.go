package handlers

import (
	"net/http"

	middleware "github.com/markdave123-py/damage-detector/internal/api/middlewares"
	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/models"
	"github.com/markdave123-py/damage-detector/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		Token:   res.Token,
		User:    res.User,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   res.Token,
		User:    res.User,
	})
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.users.GoogleAuth(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, msg := http.StatusOK, "Login successful via Google"
	if res.Created {
		status, msg = http.StatusCreated, "User registered successfully via Google"
	}
	writeJSON(w, status, authResponse{Message: msg, Token: res.Token, User: res.User})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Auth("unauthorized"))
		return
	}

	user, err := h.users.Me(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
