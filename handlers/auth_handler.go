package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/services"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(s *services.AuthService) *AuthHandler { return &AuthHandler{svc: s} }

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.InvalidArgument, "Bad request format"))
		return
	}

	user, token, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.InvalidArgument, "Bad request format"))
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the account the presented token resolves to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Verify(r.Context(), bearerToken(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// WithAuth verifies the bearer credential and passes the resolved user to
// the wrapped handler through the request context.
func (h *AuthHandler) WithAuth(next func(w http.ResponseWriter, r *http.Request, user *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.svc.Verify(r.Context(), bearerToken(r))
		if err != nil {
			respondError(w, err)
			return
		}
		next(w, r, user)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
