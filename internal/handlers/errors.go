package handlers

import (
	"errors"
	"log"
	"net/http"

	"wastecollect-backend/internal/services"
	"wastecollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// statusForKind maps a business-rule failure to its HTTP status.
// Duplicate names are reported as 400, not 409.
var statusForKind = map[services.ErrorKind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindForbidden:    http.StatusForbidden,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusBadRequest,
	services.KindInvalidState: http.StatusBadRequest,
}

func respondServiceError(w http.ResponseWriter, err error) {
	var routeErr *services.RouteError
	if errors.As(err, &routeErr) {
		status, ok := statusForKind[routeErr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		log.Printf("❌ %d: %s", status, routeErr.Message)
		utils.RespondErrorDetails(w, status, routeErr.Message, routeErr.Details)
		return
	}

	log.Printf("❌ 500: %v", err)
	utils.RespondJSON(w, http.StatusInternalServerError, utils.Envelope{
		Success: false,
		Message: "Internal server error",
		Error:   err.Error(),
	})
}

// routeIDParam reads {id} and rejects anything that is not a UUID
func routeIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid route id")
		return "", false
	}
	return id, true
}
