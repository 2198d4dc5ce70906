package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"valve-backend/internal/apperrors"
)

// JSON writes a JSON response with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Fail writes the API's error envelope
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// WriteError maps a service error to its HTTP status. Validation errors keep
// their field and valve index so the form can highlight the exact problem
// without losing entered state.
func WriteError(w http.ResponseWriter, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		body := map[string]interface{}{
			"success": false,
			"message": ve.Message,
		}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		if ve.ValveIndex > 0 {
			body["valve_index"] = ve.ValveIndex
		}
		JSON(w, http.StatusBadRequest, body)
		return
	}

	var fe *apperrors.ForbiddenError
	if errors.As(err, &fe) {
		Fail(w, http.StatusForbidden, fe.Message)
		return
	}

	var nfe *apperrors.NotFoundError
	if errors.As(err, &nfe) {
		Fail(w, http.StatusNotFound, nfe.Error())
		return
	}

	var ce *apperrors.ConflictError
	if errors.As(err, &ce) {
		Fail(w, http.StatusConflict, ce.Message)
		return
	}

	var se *apperrors.StoreError
	if errors.As(err, &se) {
		// Opaque to the caller, details go to the log only
		log.Printf("[Store] %v", se)
		Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	Fail(w, http.StatusInternalServerError, err.Error())
}
