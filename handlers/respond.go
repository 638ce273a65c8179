package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Amit43verma/alumni-portal/apperrors"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps an error to its HTTP status and a generic JSON body.
// Internal detail is logged server-side and never sent to the client.
func respondError(w http.ResponseWriter, err error) {
	if apperrors.KindOf(err) == apperrors.Internal {
		log.Printf("Internal error: %v", err)
	}
	respondJSON(w, apperrors.HTTPStatus(err), messageResponse{Message: apperrors.Message(err)})
}
