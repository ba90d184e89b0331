package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/colabhq/campaignd/internal/campaign"
	"github.com/colabhq/campaignd/internal/notification"
)

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError converts domain errors to HTTP statuses. Downstream store
// failures become a 400 body rather than a 5xx so a bad request never
// reads as an outage.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotAdmin):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrFileRequired),
		errors.Is(err, campaign.ErrUnknownDecision):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
