package handlers

import (
	"net/http"
	"strconv"

	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/services"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler { return &UserHandler{svc: s} }

// List serves the member picker: GET /api/users?search=&limit=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ *models.User) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	users, err := h.svc.Search(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}
